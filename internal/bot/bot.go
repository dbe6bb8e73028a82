package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/linkminder/internal/classifier"
	"github.com/xaenox/linkminder/internal/models"
	"github.com/xaenox/linkminder/internal/reminder"
	"github.com/xaenox/linkminder/internal/storage"
	"go.uber.org/zap"
)

// telegramAPI is the slice of the Bot API surface the bot uses; tests
// substitute a capturing fake.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

type Bot struct {
	api        telegramAPI
	storage    storage.Storage
	classifier classifier.Classifier
	reminders  *reminder.Scheduler
	logger     *zap.Logger
}

func New(token string, store storage.Storage, clf classifier.Classifier, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		api:        api,
		storage:    store,
		classifier: clf,
		logger:     logger,
	}, nil
}

// AttachScheduler wires the reminder scheduler used by the `remind`
// command. The scheduler itself delivers through this bot's Send.
func (b *Bot) AttachScheduler(s *reminder.Scheduler) {
	b.reminders = s
}

// Send implements reminder.Messenger. The user id is the Telegram chat
// id in string form.
func (b *Bot) Send(userID string, text string) error {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (b *Bot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}

		go b.handleMessage(update.Message)
	}

	return nil
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	ctx := context.Background()

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if strings.TrimSpace(content) == "" {
		return
	}

	userID := strconv.FormatInt(message.From.ID, 10)
	chatID := message.Chat.ID

	if b.handleTextCommand(ctx, userID, chatID, content) {
		return
	}

	result := b.classifier.Extract(content, time.Now())

	if result.Command != nil {
		b.applyStatusCommand(ctx, userID, chatID, result.Command)
		return
	}

	if len(result.Links) == 0 {
		b.sendMessage(chatID, "I didn't find a link or a command in that message. Use /help to see what I understand.")
		return
	}

	for _, candidate := range result.Links {
		saved, isNew, err := b.storage.AddOrUpdateLink(ctx, userID, candidate)
		if err != nil {
			b.logger.Error("Failed to save link",
				zap.Error(err),
				zap.String("user_id", userID),
				zap.String("url", candidate.URL))
			b.sendErrorMessage(chatID, "Sorry, I couldn't save that link. Please try again.")
			continue
		}
		b.sendLinkSaved(chatID, saved, isNew)
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	userID := strconv.FormatInt(message.From.ID, 10)

	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "list":
		b.handleList(ctx, message.Chat.ID, userID, "all")
	case "overdue":
		b.handleList(ctx, message.Chat.ID, userID, "overdue")
	case "deadlines":
		b.handleList(ctx, message.Chat.ID, userID, "deadlines")
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

// handleTextCommand handles the plain-text command grammar. Returns
// false when the text is not a command and should go to the
// classifier.
func (b *Bot) handleTextCommand(ctx context.Context, userID string, chatID int64, content string) bool {
	text := strings.TrimSpace(content)
	lower := strings.ToLower(text)
	fields := strings.Fields(text)

	switch {
	case lower == "list":
		b.handleList(ctx, chatID, userID, "all")
	case lower == "list overdue":
		b.handleList(ctx, chatID, userID, "overdue")
	case lower == "list deadlines":
		b.handleList(ctx, chatID, userID, "deadlines")
	case strings.HasPrefix(lower, "delete ") && len(fields) == 2:
		b.handleDelete(ctx, chatID, userID, fields[1])
	case strings.HasPrefix(lower, "add milestone ") && len(fields) >= 4:
		b.handleAddMilestone(ctx, chatID, userID, fields[2], strings.Join(fields[3:], " "))
	case strings.HasPrefix(lower, "complete milestone ") && len(fields) == 3:
		b.handleCompleteMilestone(ctx, chatID, userID, fields[2])
	case strings.HasPrefix(lower, "list milestones ") && len(fields) == 3:
		b.handleListMilestones(ctx, chatID, userID, fields[2])
	case strings.HasPrefix(lower, "progress ") && len(fields) == 2:
		b.handleProgress(ctx, chatID, userID, fields[1])
	case strings.HasPrefix(lower, "remind ") && len(fields) == 2:
		b.handleRemind(chatID, userID, fields[1])
	default:
		return false
	}
	return true
}

func (b *Bot) applyStatusCommand(ctx context.Context, userID string, chatID int64, cmd *classifier.StatusCommand) {
	links, err := b.storage.GetUserLinks(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to load links",
			zap.Error(err),
			zap.String("user_id", userID))
		b.sendErrorMessage(chatID, "Sorry, I couldn't load your links.")
		return
	}

	link := models.FindByIDPrefix(links, cmd.IDPrefix)
	if link == nil {
		b.sendMessage(chatID, fmt.Sprintf("No item found with ID `%s`.", cmd.IDPrefix))
		return
	}

	ok, err := b.storage.UpdateLinkStatus(ctx, userID, link.ID, cmd.Status)
	if err != nil {
		b.logger.Error("Failed to update status",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("link_id", link.ShortID()))
		b.sendErrorMessage(chatID, "Sorry, I couldn't update that item.")
		return
	}
	if !ok {
		// Deleted between lookup and update.
		b.sendMessage(chatID, fmt.Sprintf("No item found with ID `%s`.", cmd.IDPrefix))
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("✅ *%s* is now %s.", link.Title, cmd.Status))
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome to LinkMinder! 🔗
Send me links with deadlines and I'll keep track of them and remind you before they're due.

Example: "Apply here https://example.com/job, deadline 2026-09-15"
Use /help to see all commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/list - Show all your items
/overdue - Show overdue items
/deadlines - Show upcoming deadlines

Text commands:
done <id> - Mark item as completed
mark <id> as <status> - Set status (todo, in_progress, paused, waiting, done, expired)
delete <id> - Remove an item
add milestone <id> <title> - Break an item into steps
complete milestone <id> - Mark a milestone done
list milestones <id> - Show an item's milestones
progress <id|all> - Show progress
remind <id> - Send a reminder right now

Send any message with a URL and I'll track it; mention a deadline and I'll remind you at 4, 3, 2 and 1 weeks before, plus the day before and the day it's due.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleList(ctx context.Context, chatID int64, userID, filter string) {
	var (
		links []*models.LinkItem
		err   error
		title string
	)

	switch filter {
	case "overdue":
		title = "*Overdue items:*"
		links, err = b.storage.GetOverdueLinks(ctx, userID)
	case "deadlines":
		title = "*Upcoming deadlines (14 days):*"
		links, err = b.storage.GetUpcomingDeadlines(ctx, userID, 14)
	default:
		title = "*Your items:*"
		links, err = b.storage.GetUserLinks(ctx, userID)
	}
	if err != nil {
		b.logger.Error("Failed to list links",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("filter", filter))
		b.sendErrorMessage(chatID, "Sorry, I couldn't load your items.")
		return
	}

	if len(links) == 0 {
		b.sendMessage(chatID, "Nothing here yet.")
		return
	}

	now := time.Now()
	parts := []string{title, ""}
	for _, link := range links {
		line := fmt.Sprintf("• *%s* (%s)\n  🔗 %s\n  🆔 `%s`", link.Title, link.Status, link.URL, link.ShortID())
		if days, ok := link.DaysUntilDeadline(now); ok {
			switch {
			case days < 0:
				line += fmt.Sprintf("\n  ⚠️ overdue by %d days", -days)
			case days == 0:
				line += "\n  ⏰ due today"
			default:
				line += fmt.Sprintf("\n  📅 due in %d days", days)
			}
		}
		parts = append(parts, line)
	}
	b.sendMessage(chatID, strings.Join(parts, "\n"))
}

func (b *Bot) handleDelete(ctx context.Context, chatID int64, userID, idPrefix string) {
	link, ok := b.findByPrefix(ctx, chatID, userID, idPrefix)
	if !ok {
		return
	}

	deleted, err := b.storage.DeleteLink(ctx, userID, link.ID)
	if err != nil {
		b.logger.Error("Failed to delete link",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("link_id", link.ShortID()))
		b.sendErrorMessage(chatID, "Sorry, I couldn't delete that item.")
		return
	}
	if !deleted {
		b.sendMessage(chatID, fmt.Sprintf("No item found with ID `%s`.", idPrefix))
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("🗑 Deleted *%s*.", link.Title))
}

func (b *Bot) handleAddMilestone(ctx context.Context, chatID int64, userID, idPrefix, title string) {
	link, ok := b.findByPrefix(ctx, chatID, userID, idPrefix)
	if !ok {
		return
	}

	milestone := link.AddMilestone(title)
	if _, err := b.storage.UpdateLink(ctx, userID, link.ID, link); err != nil {
		b.logger.Error("Failed to save milestone",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("link_id", link.ShortID()))
		b.sendErrorMessage(chatID, "Sorry, I couldn't save that milestone.")
		return
	}

	b.sendMessage(chatID, fmt.Sprintf(
		"🎯 Milestone added to *%s*\n\n📋 *%s*\n🆔 Milestone ID: `%s`\n\nUse `complete milestone %s` to mark as done.",
		link.Title, milestone.Title, milestone.ID[:8], milestone.ID[:8]))
}

func (b *Bot) handleCompleteMilestone(ctx context.Context, chatID int64, userID, milestonePrefix string) {
	links, err := b.storage.GetUserLinks(ctx, userID)
	if err != nil {
		b.sendErrorMessage(chatID, "Sorry, I couldn't load your items.")
		return
	}

	for _, link := range links {
		if !link.CompleteMilestone(milestonePrefix, time.Now()) {
			continue
		}
		if _, err := b.storage.UpdateLink(ctx, userID, link.ID, link); err != nil {
			b.logger.Error("Failed to save milestone completion",
				zap.Error(err),
				zap.String("user_id", userID),
				zap.String("link_id", link.ShortID()))
			b.sendErrorMessage(chatID, "Sorry, I couldn't save that change.")
			return
		}

		note := "Keep up the great work!"
		if link.Progress == 100 {
			note = "🎉 Task completed!"
		}
		b.sendMessage(chatID, fmt.Sprintf("✅ Milestone completed on *%s*\n\n📊 %s\n\n%s",
			link.Title, link.ProgressSummary(), note))
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("Could not find milestone with ID `%s`.", milestonePrefix))
}

func (b *Bot) handleListMilestones(ctx context.Context, chatID int64, userID, idPrefix string) {
	link, ok := b.findByPrefix(ctx, chatID, userID, idPrefix)
	if !ok {
		return
	}

	if len(link.Milestones) == 0 {
		b.sendMessage(chatID, fmt.Sprintf("📭 No milestones for *%s*\n\nUse `add milestone %s <title>` to add one.",
			link.Title, link.ShortID()))
		return
	}

	parts := []string{fmt.Sprintf("🎯 *Milestones for %s*", link.Title), fmt.Sprintf("📊 %s", link.ProgressSummary()), ""}
	for i, m := range link.Milestones {
		status := "⭕"
		completed := ""
		if m.Completed {
			status = "✅"
			completed = fmt.Sprintf(" (completed %s)", m.CompletedAt.Format("01/02"))
		}
		parts = append(parts, fmt.Sprintf("%d. %s *%s*%s\n   🆔 ID: `%s`", i+1, status, m.Title, completed, m.ID[:8]))
	}
	b.sendMessage(chatID, strings.Join(parts, "\n"))
}

func (b *Bot) handleProgress(ctx context.Context, chatID int64, userID, target string) {
	if strings.EqualFold(target, "all") {
		links, err := b.storage.GetUserLinks(ctx, userID)
		if err != nil {
			b.sendErrorMessage(chatID, "Sorry, I couldn't load your items.")
			return
		}
		if len(links) == 0 {
			b.sendMessage(chatID, "Nothing here yet.")
			return
		}
		parts := []string{"📊 *Progress overview:*", ""}
		for _, link := range links {
			parts = append(parts, fmt.Sprintf("• *%s* — %s", link.Title, link.ProgressSummary()))
		}
		b.sendMessage(chatID, strings.Join(parts, "\n"))
		return
	}

	link, ok := b.findByPrefix(ctx, chatID, userID, target)
	if !ok {
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("📊 *%s*: %s", link.Title, link.ProgressSummary()))
}

func (b *Bot) handleRemind(chatID int64, userID, idPrefix string) {
	if b.reminders == nil || !b.reminders.SendImmediate(userID, idPrefix) {
		b.sendMessage(chatID, fmt.Sprintf("No item found with ID `%s`.", idPrefix))
	}
}

func (b *Bot) findByPrefix(ctx context.Context, chatID int64, userID, idPrefix string) (*models.LinkItem, bool) {
	links, err := b.storage.GetUserLinks(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to load links",
			zap.Error(err),
			zap.String("user_id", userID))
		b.sendErrorMessage(chatID, "Sorry, I couldn't load your items.")
		return nil, false
	}

	link := models.FindByIDPrefix(links, idPrefix)
	if link == nil {
		b.sendMessage(chatID, fmt.Sprintf("No item found with ID `%s`.", idPrefix))
		return nil, false
	}
	return link, true
}

func (b *Bot) sendLinkSaved(chatID int64, link *models.LinkItem, isNew bool) {
	header := "✅ *Link added*"
	if !isNew {
		header = "🔄 *Link updated*"
	}

	text := fmt.Sprintf("%s\n\n*%s*\n🔗 %s\n📂 %s\n🆔 `%s`",
		header, link.Title, link.URL, link.Category, link.ShortID())
	if link.Deadline != nil {
		text += fmt.Sprintf("\n⏰ Deadline: %s", link.Deadline.Format("2006-01-02"))
	}
	if len(link.Tags) > 0 {
		tags := make([]string, len(link.Tags))
		for i, tag := range link.Tags {
			tags[i] = "#" + strings.ReplaceAll(tag, " ", "_")
		}
		text += fmt.Sprintf("\n🏷 %s", strings.Join(tags, " "))
	}

	b.sendMessage(chatID, text)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
