package cli

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
)

const timeLayout = "2006-01-02 15:04"

func formatMessage(m models.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d [%s] %s", m.Seq, m.CreatedAt.Local().Format(timeLayout), m.Sender)
	if m.ReplyToSender != nil {
		fmt.Fprintf(&b, " (reply to %s)", *m.ReplyToSender)
	}
	b.WriteString(": ")
	b.WriteString(m.Text)
	if m.IsEdited {
		b.WriteString(" (edited)")
	}
	return b.String()
}

func formatRoom(i int, r models.Room) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s", i, r.Name)
	if r.UnreadCount > 0 {
		fmt.Fprintf(&b, " [%d unread]", r.UnreadCount)
	}
	if len(r.Participants) > 0 {
		fmt.Fprintf(&b, " with %s", strings.Join(r.Participants, ", "))
	}
	if r.Latest != nil {
		fmt.Fprintf(&b, "\n   last: %s: %s", r.Latest.Sender, preview(r.Latest.Text, 60))
	}
	return b.String()
}

func formatMember(m models.Member) string {
	return fmt.Sprintf("%s (joined %s)", m.Username, m.JoinedAt.Local().Format(timeLayout))
}

// preview cuts s to at most n runes on a single line.
func preview(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
