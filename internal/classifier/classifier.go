package classifier

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xaenox/linkminder/internal/models"
)

// StatusCommand is an extracted "mark item X as Y" instruction.
type StatusCommand struct {
	IDPrefix string
	Status   models.TaskStatus
}

// Result is the typed output consumed by the core: zero or more link
// candidates and optionally a status-update command.
type Result struct {
	Links   []*models.LinkItem
	Command *StatusCommand
}

// Classifier extracts link candidates and commands from free text.
type Classifier interface {
	Extract(content string, now time.Time) Result
}

var (
	urlPattern     = regexp.MustCompile(`https?://[^\s<>"']+`)
	hashtagPattern = regexp.MustCompile(`#(\w+)`)

	inDaysPattern  = regexp.MustCompile(`in\s+(\d+)\s+(day|days|week|weeks)`)
	isoDatePattern = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	slashPattern   = regexp.MustCompile(`(?:deadline[:\s]+|due[:\s]+|apply\s+by\s+|closes\s+|ends\s+)?(\d{1,2})/(\d{1,2})/(\d{4})`)
	monthPattern   = regexp.MustCompile(`(\d{1,2})\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+(\d{4})`)

	doneCmdPattern = regexp.MustCompile(`^done\s+(\S+)`)
	markCmdPattern = regexp.MustCompile(`^mark\s+(\S+)\s+as\s+(\S+)`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var categoryKeywords = map[models.LinkCategory][]string{
	models.CategoryJobApplication: {
		"job", "position", "career", "employment", "hire", "recruit",
		"apply", "application", "resume", "cv", "interview",
	},
	models.CategoryGrantApplication: {
		"grant", "funding", "scholarship", "fellowship", "award",
		"submission", "proposal", "fund",
	},
	models.CategoryNotesToRead: {
		"read", "article", "paper", "document", "note", "blog", "post",
	},
	models.CategoryResearch: {
		"research", "study", "investigation", "survey",
		"experiment", "data", "findings", "methodology",
	},
	models.CategoryLearning: {
		"learn", "course", "tutorial", "education", "training",
		"workshop", "seminar", "lecture", "class", "lesson",
	},
	models.CategoryPersonal: {
		"personal", "private", "family", "friend", "hobby",
	},
}

// categoryOrder fixes the precedence when several keyword tables
// match; more specific categories win.
var categoryOrder = []models.LinkCategory{
	models.CategoryJobApplication,
	models.CategoryGrantApplication,
	models.CategoryLearning,
	models.CategoryResearch,
	models.CategoryNotesToRead,
	models.CategoryPersonal,
}

// KeywordClassifier extracts candidates with regex and keyword tables.
// It is the fallback behind the GPT classifier and the default in
// tests and offline setups.
type KeywordClassifier struct {
	maxTags int
}

func NewKeywordClassifier(maxTags int) *KeywordClassifier {
	return &KeywordClassifier{maxTags: maxTags}
}

func (c *KeywordClassifier) Extract(content string, now time.Time) Result {
	if cmd := parseStatusCommand(content); cmd != nil {
		return Result{Command: cmd}
	}

	urls := urlPattern.FindAllString(content, -1)
	if len(urls) == 0 {
		return Result{}
	}

	category := classifyText(content)
	deadline := parseDeadline(content, now)
	tags := extractTags(content, category, c.maxTags)
	priority := guessPriority(content)

	links := make([]*models.LinkItem, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, url := range urls {
		url = strings.TrimRight(url, ".,;)")
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}

		link := models.NewLink(url, deriveTitle(content, url), category)
		link.Tags = tags
		link.Priority = priority
		if deadline != nil {
			d := *deadline
			link.Deadline = &d
		}
		links = append(links, link)
	}
	return Result{Links: links}
}

func parseStatusCommand(content string) *StatusCommand {
	text := strings.ToLower(strings.TrimSpace(content))

	if m := doneCmdPattern.FindStringSubmatch(text); m != nil {
		return &StatusCommand{IDPrefix: m[1], Status: models.StatusDone}
	}
	if m := markCmdPattern.FindStringSubmatch(text); m != nil {
		if status, ok := models.ParseStatus(m[2]); ok {
			return &StatusCommand{IDPrefix: m[1], Status: status}
		}
	}
	return nil
}

func classifyText(content string) models.LinkCategory {
	text := strings.ToLower(content)
	for _, category := range categoryOrder {
		for _, keyword := range categoryKeywords[category] {
			if strings.Contains(text, keyword) {
				return category
			}
		}
	}
	return models.CategoryOther
}

// parseDeadline understands "in N days/weeks", ISO dates, m/d/Y and
// "12 mar 2026" forms. Anything else yields no deadline.
func parseDeadline(content string, now time.Time) *time.Time {
	text := strings.ToLower(content)

	if m := inDaysPattern.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		if strings.HasPrefix(m[2], "week") {
			n *= 7
		}
		d := now.AddDate(0, 0, n)
		return &d
	}

	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
		return &d
	}

	if m := slashPattern.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
			return &d
		}
	}

	if m := monthPattern.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		d := time.Date(year, months[m[2]], day, 0, 0, 0, 0, now.Location())
		return &d
	}

	return nil
}

func extractTags(content string, category models.LinkCategory, maxTags int) []string {
	var tags []string
	seen := make(map[string]struct{})
	add := func(tag string) {
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	for _, m := range hashtagPattern.FindAllStringSubmatch(content, -1) {
		add(strings.ToLower(m[1]))
	}

	text := strings.ToLower(content)
	for _, keyword := range categoryKeywords[category] {
		if strings.Contains(text, keyword) {
			add(keyword)
		}
	}

	if maxTags > 0 && len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	return tags
}

func guessPriority(content string) int {
	text := strings.ToLower(content)
	switch {
	case strings.Contains(text, "urgent") || strings.Contains(text, "asap"):
		return 5
	case strings.Contains(text, "important"):
		return 3
	default:
		return 1
	}
}

// deriveTitle uses the message text minus URLs, or the URL host when
// nothing readable remains.
func deriveTitle(content, url string) string {
	title := urlPattern.ReplaceAllString(content, "")
	title = strings.Join(strings.Fields(title), " ")
	if runes := []rune(title); len(runes) > 80 {
		title = string(runes[:80])
	}
	if title != "" {
		return title
	}

	host := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	if i := strings.IndexByte(host, '/'); i > 0 {
		host = host[:i]
	}
	return host
}
