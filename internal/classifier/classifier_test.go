package classifier

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/linkminder/internal/models"
)

func TestExtract_LinkWithDeadline(t *testing.T) {
	c := NewKeywordClassifier(5)
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	result := c.Extract("Apply for this job https://example.com/careers/123 due in 3 days #swe", now)

	require.Len(t, result.Links, 1)
	require.Nil(t, result.Command)

	link := result.Links[0]
	assert.Equal(t, "https://example.com/careers/123", link.URL)
	assert.Equal(t, models.CategoryJobApplication, link.Category)
	require.NotNil(t, link.Deadline)
	assert.Equal(t, now.AddDate(0, 0, 3), *link.Deadline)
	assert.Contains(t, link.Tags, "swe")
	assert.NotEmpty(t, link.Title)
}

func TestExtract_NoURLNoCommand(t *testing.T) {
	c := NewKeywordClassifier(5)
	result := c.Extract("just some chatter", time.Now())
	assert.Empty(t, result.Links)
	assert.Nil(t, result.Command)
}

func TestExtract_DuplicateURLsCollapse(t *testing.T) {
	c := NewKeywordClassifier(5)
	result := c.Extract("see https://example.com/a and again https://example.com/a", time.Now())
	assert.Len(t, result.Links, 1)
}

func TestExtract_DoneCommand(t *testing.T) {
	c := NewKeywordClassifier(5)
	result := c.Extract("done abc12345", time.Now())

	require.NotNil(t, result.Command)
	assert.Equal(t, "abc12345", result.Command.IDPrefix)
	assert.Equal(t, models.StatusDone, result.Command.Status)
	assert.Empty(t, result.Links)
}

func TestExtract_MarkCommand(t *testing.T) {
	c := NewKeywordClassifier(5)

	result := c.Extract("mark abc12345 as in_progress", time.Now())
	require.NotNil(t, result.Command)
	assert.Equal(t, models.StatusInProgress, result.Command.Status)

	result = c.Extract("mark abc12345 as nonsense", time.Now())
	assert.Nil(t, result.Command, "unknown statuses are not commands")
}

func TestParseDeadline(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		text string
		want time.Time
	}{
		{"due in 2 weeks", now.AddDate(0, 0, 14)},
		{"deadline 2026-09-15", time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)},
		{"apply by 9/30/2026", time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)},
		{"closes 15 sep 2026", time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		got := parseDeadline(tc.text, now)
		require.NotNil(t, got, tc.text)
		assert.Equal(t, tc.want, *got, tc.text)
	}

	assert.Nil(t, parseDeadline("no date here", now))
}

func TestClassifyText_Categories(t *testing.T) {
	tests := []struct {
		text string
		want models.LinkCategory
	}{
		{"software engineer position, send your resume", models.CategoryJobApplication},
		{"research grant funding opportunity", models.CategoryGrantApplication},
		{"great tutorial on goroutines", models.CategoryLearning},
		{"survey methodology and findings", models.CategoryResearch},
		{"interesting blog post", models.CategoryNotesToRead},
		{"random stuff", models.CategoryOther},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, classifyText(tc.text), tc.text)
	}
}

func TestGuessPriority(t *testing.T) {
	assert.Equal(t, 5, guessPriority("URGENT: apply now"))
	assert.Equal(t, 3, guessPriority("this is important"))
	assert.Equal(t, 1, guessPriority("whenever"))
}

func TestDeriveTitle_TruncatesOnRuneBoundary(t *testing.T) {
	c := NewKeywordClassifier(5)
	content := strings.Repeat("日", 100) + " https://example.com/a"

	result := c.Extract(content, time.Now())
	require.Len(t, result.Links, 1)

	title := result.Links[0].Title
	assert.True(t, utf8.ValidString(title), "truncation must not split a rune")
	assert.Equal(t, 80, utf8.RuneCountInString(title))
}

func TestDeriveTitle_FallsBackToHost(t *testing.T) {
	c := NewKeywordClassifier(5)
	result := c.Extract("https://news.example.org/story/42", time.Now())
	require.Len(t, result.Links, 1)
	assert.Equal(t, "news.example.org", result.Links[0].Title)
}
