package reminder

import (
	"fmt"
	"strings"
	"time"

	"github.com/xaenox/linkminder/internal/models"
)

func categoryEmoji(c models.LinkCategory) string {
	switch c {
	case models.CategoryJobApplication:
		return "💼"
	case models.CategoryGrantApplication:
		return "💰"
	case models.CategoryNotesToRead:
		return "📖"
	case models.CategoryResearch:
		return "🔬"
	case models.CategoryLearning:
		return "📝"
	case models.CategoryPersonal:
		return "👤"
	default:
		return "🔗"
	}
}

// titleCase turns an enum value like "job_application" into "Job Application".
func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func linkLine(link *models.LinkItem) string {
	return fmt.Sprintf("%s *%s*\n🔗 %s\n🆔 ID: `%s`\n",
		categoryEmoji(link.Category), link.Title, link.URL, link.ShortID())
}

func deadlineText(link *models.LinkItem, now time.Time) string {
	days, ok := link.DaysUntilDeadline(now)
	switch {
	case !ok:
		return "No deadline set"
	case days < 0:
		return fmt.Sprintf("⚠️ *OVERDUE* (%d days ago)", -days)
	case days == 0:
		return "⏰ *Due today!*"
	default:
		return fmt.Sprintf("📅 Due in %d days", days)
	}
}

func renderOverdue(links []*models.LinkItem, now time.Time) string {
	parts := []string{"🚨 *OVERDUE ITEMS ALERT!* 🚨\n", "The following items are past their deadlines:\n"}
	for _, link := range links {
		days, _ := link.DaysUntilDeadline(now)
		parts = append(parts, fmt.Sprintf("%s *%s*\n⚠️ Overdue by %d days\n🔗 %s\n🆔 ID: `%s`\n",
			categoryEmoji(link.Category), link.Title, -days, link.URL, link.ShortID()))
	}
	parts = append(parts, "\n💡 Use `done <id>` to mark as completed or `mark <id> as expired` if no longer relevant.")
	return strings.Join(parts, "\n")
}

func renderDueToday(links []*models.LinkItem) string {
	parts := []string{"⏰ *DUE TODAY!* ⏰\n", "These items are due today:\n"}
	for _, link := range links {
		parts = append(parts, linkLine(link))
	}
	parts = append(parts, "\n🎯 Don't forget to complete these today!")
	return strings.Join(parts, "\n")
}

func renderDueTomorrow(links []*models.LinkItem) string {
	parts := []string{"📅 *Due Tomorrow* 📅\n"}
	for _, link := range links {
		parts = append(parts, linkLine(link))
	}
	return strings.Join(parts, "\n")
}

func renderDueIn3Days(links []*models.LinkItem) string {
	parts := []string{"⚡ *Due in 3 Days* ⚡\n"}
	for _, link := range links {
		parts = append(parts, linkLine(link))
	}
	return strings.Join(parts, "\n")
}

func renderWeeksAhead(links []*models.LinkItem, weeks int) string {
	unit := "week"
	if weeks > 1 {
		unit = "weeks"
	}
	parts := []string{fmt.Sprintf("📅 *Due in %d %s* 📅\n", weeks, unit)}
	for _, link := range links {
		parts = append(parts, linkLine(link))
	}
	return strings.Join(parts, "\n")
}

func renderImmediate(link *models.LinkItem, now time.Time) string {
	return fmt.Sprintf(
		"✅ *Link Added with Deadline!* ✅\n\n"+
			"%s *%s*\n"+
			"🔗 %s\n"+
			"📂 Category: %s\n"+
			"⏰ %s\n"+
			"🆔 ID: `%s`\n\n"+
			"📋 You'll receive reminders at 4, 3, 2, and 1 week(s) before the deadline.\n"+
			"💡 Use `add milestone %s <title>` to break this into smaller steps!",
		categoryEmoji(link.Category), link.Title, link.URL,
		titleCase(string(link.Category)), deadlineText(link, now),
		link.ShortID(), link.ShortID())
}

func renderManualReminder(link *models.LinkItem, now time.Time) string {
	return fmt.Sprintf(
		"🔔 *Reminder* 🔔\n\n"+
			"%s *%s*\n"+
			"🔗 %s\n"+
			"📂 Category: %s\n"+
			"📊 Status: %s\n"+
			"⏰ %s\n"+
			"🆔 ID: `%s`\n\n"+
			"💡 Use `done %s` to mark as completed",
		categoryEmoji(link.Category), link.Title, link.URL,
		titleCase(string(link.Category)),
		titleCase(string(link.Status)),
		deadlineText(link, now), link.ShortID(), link.ShortID())
}

// renderDailySummary returns "" when the user has nothing worth
// summarizing; the scheduler then skips the send entirely.
func renderDailySummary(links []*models.LinkItem, now time.Time) string {
	if len(links) == 0 {
		return ""
	}

	var todo, inProgress, overdue, upcoming int
	for _, link := range links {
		switch link.Status {
		case models.StatusTodo:
			todo++
		case models.StatusInProgress:
			inProgress++
		}
		if link.IsOverdue(now) {
			overdue++
		}
		if days, ok := link.DaysUntilDeadline(now); ok && link.Status != models.StatusDone && days >= 0 && days <= 7 {
			upcoming++
		}
	}

	if todo == 0 && inProgress == 0 && overdue == 0 && upcoming == 0 {
		return ""
	}

	parts := []string{"🌅 *Daily Summary*\n"}
	if overdue > 0 {
		parts = append(parts, fmt.Sprintf("🚨 %d overdue items", overdue))
	}
	if upcoming > 0 {
		parts = append(parts, fmt.Sprintf("📅 %d items due in the next 7 days", upcoming))
	}
	if todo > 0 {
		parts = append(parts, fmt.Sprintf("📋 %d items to start", todo))
	}
	if inProgress > 0 {
		parts = append(parts, fmt.Sprintf("🔄 %d items in progress", inProgress))
	}
	parts = append(parts, "\nUse `list overdue` or `list deadlines` to see details.")
	return strings.Join(parts, "\n")
}

func renderWeeklySummary(links []*models.LinkItem, now time.Time) string {
	if len(links) == 0 {
		return ""
	}

	weekAgo := now.AddDate(0, 0, -7)
	var completed, jobs, grants, nextTwoWeeks int
	for _, link := range links {
		if link.Status == models.StatusDone && link.UpdatedAt.After(weekAgo) {
			completed++
		}
		if link.Status != models.StatusDone {
			switch link.Category {
			case models.CategoryJobApplication:
				jobs++
			case models.CategoryGrantApplication:
				grants++
			}
		}
		if days, ok := link.DaysUntilDeadline(now); ok && link.Status != models.StatusDone && days >= 0 && days <= 14 {
			nextTwoWeeks++
		}
	}

	parts := []string{"📊 *Weekly Summary*\n"}
	if completed > 0 {
		parts = append(parts, fmt.Sprintf("✅ %d items completed this week", completed))
	}
	if jobs > 0 {
		parts = append(parts, fmt.Sprintf("💼 %d active job applications", jobs))
	}
	if grants > 0 {
		parts = append(parts, fmt.Sprintf("💰 %d active grant applications", grants))
	}
	if nextTwoWeeks > 0 {
		parts = append(parts, fmt.Sprintf("📅 %d deadlines in the next 2 weeks", nextTwoWeeks))
	}

	if len(parts) == 1 {
		return ""
	}
	parts = append(parts, "\nKeep up the great work! 🎉")
	return strings.Join(parts, "\n")
}
