package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/linkminder/internal/models"
	"go.uber.org/zap"
)

type gptLink struct {
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Deadline string   `json:"deadline"`
	Tags     []string `json:"tags"`
	Priority int      `json:"priority"`
	Notes    string   `json:"notes"`
}

type gptCommand struct {
	IDPrefix string `json:"id_prefix"`
	Status   string `json:"status"`
}

type gptResponse struct {
	Links   []gptLink   `json:"links"`
	Command *gptCommand `json:"command"`
}

// GPTClassifier asks the chat model for a structured extraction and
// falls back to the keyword classifier when the call or the parse
// fails.
type GPTClassifier struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	fallback    *KeywordClassifier
	logger      *zap.Logger
}

func NewGPTClassifier(apiKey, model string, maxTokens int, temperature float64, maxTags int, logger *zap.Logger) *GPTClassifier {
	return &GPTClassifier{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		fallback:    NewKeywordClassifier(maxTags),
		logger:      logger,
	}
}

func (c *GPTClassifier) Extract(content string, now time.Time) Result {
	ctx := context.Background()

	prompt := fmt.Sprintf(`Extract tracked links and commands from the user message below.

For every URL in the message produce a link object:
- url: the URL
- title: short human title
- category: one of job_application, grant_application, notes_to_read, research, learning, personal, other
- deadline: the deadline as YYYY-MM-DD if one is mentioned, else ""
- tags: up to 5 lowercase keywords
- priority: 1 (lowest) to 5 (highest)
- notes: any extra context worth keeping, else ""

If the message is a status command like "done abc12345" or "mark abc12345 as in_progress",
set command to {"id_prefix": "...", "status": "..."} and leave links empty; else set command to null.

Today is %s. Return only a JSON object: {"links": [...], "command": ...}

Message: %s`, now.Format("2006-01-02"), content)

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: float32(c.temperature),
		},
	)
	if err != nil {
		c.logger.Error("Failed to get GPT response", zap.Error(err))
		return c.fallback.Extract(content, now)
	}

	var parsed gptResponse
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.Trim(raw, "` \n")
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		c.logger.Error("Failed to parse GPT response",
			zap.Error(err),
			zap.String("response", raw))
		return c.fallback.Extract(content, now)
	}

	return c.toResult(parsed, now)
}

func (c *GPTClassifier) toResult(parsed gptResponse, now time.Time) Result {
	var result Result

	if parsed.Command != nil {
		if status, ok := models.ParseStatus(parsed.Command.Status); ok {
			result.Command = &StatusCommand{
				IDPrefix: parsed.Command.IDPrefix,
				Status:   status,
			}
			return result
		}
	}

	for _, gl := range parsed.Links {
		if gl.URL == "" {
			continue
		}
		link := models.NewLink(gl.URL, gl.Title, models.ParseCategory(gl.Category))
		link.Tags = gl.Tags
		link.Notes = gl.Notes
		if gl.Priority >= 1 && gl.Priority <= 5 {
			link.Priority = gl.Priority
		}
		if gl.Deadline != "" {
			if d, err := time.ParseInLocation("2006-01-02", gl.Deadline, now.Location()); err == nil {
				link.Deadline = &d
			} else {
				c.logger.Warn("Ignoring unparseable deadline from GPT",
					zap.String("deadline", gl.Deadline),
					zap.String("url", gl.URL))
			}
		}
		result.Links = append(result.Links, link)
	}
	return result
}
