package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/msgr/internal/chat"
	"github.com/matheus3301/msgr/internal/tui/ui"
)

// MessageThread displays the active conversation and a composer.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	title    string
	selfID   string
	history  []chat.Message
	now      func() time.Time
	onSend   func(text string)
}

// NewMessageThread creates a new message thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" Messages ")
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus, Esc to leave) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
		now:      time.Now,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || mt.onSend == nil {
			return
		}
		text := composer.GetText()
		if singleLine(text) == "" {
			return
		}
		mt.onSend(text)
		composer.SetText("")
	})

	return mt
}

// Name implements ui.Component.
func (mt *MessageThread) Name() string { return "chat" }

// FocusTarget implements ui.Component.
func (mt *MessageThread) FocusTarget() tview.Primitive { return mt.messages }

// Hints implements ui.Component.
func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "d", Description: "Details"},
		{Key: "D", Description: "Delete"},
		{Key: "Ctrl-R", Description: "Retry failed"},
		{Key: "Ctrl-X", Description: "Discard failed"},
	}
}

// SetConversation sets the title and the id used to tell own messages apart.
func (mt *MessageThread) SetConversation(title, selfID string) {
	mt.title = title
	mt.selfID = selfID
	mt.messages.SetTitle(fmt.Sprintf(" %s ", tview.Escape(title)))
}

// Title returns the conversation title.
func (mt *MessageThread) Title() string {
	return mt.title
}

// SetOnSend sets the callback when the composer is submitted.
func (mt *MessageThread) SetOnSend(fn func(text string)) {
	mt.onSend = fn
}

// Update re-renders the history, oldest first, pending entries last.
func (mt *MessageThread) Update(history []chat.Message) {
	mt.history = history
	mt.messages.Clear()

	now := mt.now()
	for _, m := range history {
		sender, color := mt.title, mt.theme.OtherSenderColor
		if m.SenderID == mt.selfID || m.Pending() {
			sender, color = "You", mt.theme.OwnSenderColor
		}
		_, _ = fmt.Fprintf(mt.messages, "[%s::b]%s[-:-:-] [::d]%s[-:-:-]%s\n%s\n\n",
			ui.ColorName(color), clean(sender),
			formatTimestamp(m.CreatedAt, now),
			mt.marker(m),
			clean(m.Body))
	}
	if len(history) == 0 {
		_, _ = fmt.Fprint(mt.messages, "[::d]No messages yet. Say hello.[-:-:-]")
	}

	mt.messages.ScrollToEnd()
}

func (mt *MessageThread) marker(m chat.Message) string {
	switch m.Delivery {
	case chat.Sending:
		return fmt.Sprintf(" [%s]sending…[-]", ui.ColorName(mt.theme.PendingColor))
	case chat.Sent:
		return fmt.Sprintf(" [%s]sent[-]", ui.ColorName(mt.theme.PendingColor))
	case chat.Failed:
		return fmt.Sprintf(" [%s]failed, Ctrl-R retry, Ctrl-X discard[-]", ui.ColorName(mt.theme.FailedColor))
	}
	return ""
}

// LastFailed returns the temp id of the newest failed message, or "".
func (mt *MessageThread) LastFailed() string {
	for i := len(mt.history) - 1; i >= 0; i-- {
		if mt.history[i].Delivery == chat.Failed {
			return mt.history[i].TempID
		}
	}
	return ""
}

// Messages returns the history view.
func (mt *MessageThread) Messages() *tview.TextView {
	return mt.messages
}

// Composer returns the composer input field.
func (mt *MessageThread) Composer() *tview.InputField {
	return mt.composer
}
