package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/matheus3301/msgr/internal/chat"
	"github.com/matheus3301/msgr/internal/tui/model"
	"github.com/matheus3301/msgr/internal/tui/ui"
)

// ConversationInfo displays details of the active conversation.
type ConversationInfo struct {
	*tview.TextView
	theme *ui.Theme
	now   func() time.Time
}

// NewConversationInfo creates a new conversation info view.
func NewConversationInfo(theme *ui.Theme) *ConversationInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Conversation ")
	tv.SetTitleColor(theme.TitleColor)

	return &ConversationInfo{
		TextView: tv,
		theme:    theme,
		now:      time.Now,
	}
}

// Name implements ui.Component.
func (ci *ConversationInfo) Name() string { return "info" }

// FocusTarget implements ui.Component.
func (ci *ConversationInfo) FocusTarget() tview.Primitive { return ci.TextView }

// Hints implements ui.Component.
func (ci *ConversationInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "D", Description: "Delete"},
	}
}

// Update renders conversation details. pending counts unconfirmed local messages.
func (ci *ConversationInfo) Update(c chat.Conversation, pending int) {
	ci.Clear()

	lastActive := formatTimestamp(c.LastMessageAt, ci.now())
	if lastActive == "" {
		lastActive = "-"
	}

	fg := ui.ColorName(ci.theme.FgColor)
	ct := ui.ColorName(ci.theme.CounterColor)
	row := func(label, value string) {
		_, _ = fmt.Fprintf(ci, " [%s::b]%-14s[-:-:-] [%s]%s[-]\n", fg, label+":", ct, clean(value))
	}
	_, _ = fmt.Fprintln(ci)
	row("With", model.DisplayName(c))
	row("User id", c.Counterpart.ID)
	row("Presence", string(c.Counterpart.Presence))
	row("Conversation", c.ID)
	row("Unread", fmt.Sprint(c.UnreadCount))
	row("Pending", fmt.Sprint(pending))
	row("Last active", lastActive)
	row("Last message", singleLine(c.LastMessagePreview))

	ci.SetTitle(fmt.Sprintf(" %s ", tview.Escape(model.DisplayName(c))))
}
