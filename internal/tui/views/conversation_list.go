package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/msgr/internal/chat"
	"github.com/matheus3301/msgr/internal/tui/model"
	"github.com/matheus3301/msgr/internal/tui/ui"
)

// ConversationList is the chat list page.
type ConversationList struct {
	*tview.Table
	theme   *ui.Theme
	chats   []chat.Conversation
	visible []chat.Conversation
	active  string
	shown   string // active id the cursor was last moved to
	filter  string
	now     func() time.Time
	onOpen  func(id string)
}

// NewConversationList creates the conversation table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	cl := &ConversationList{
		Table: table,
		theme: theme,
		now:   time.Now,
	}
	table.SetSelectedFunc(func(row, _ int) {
		if id := cl.idAt(row); id != "" && cl.onOpen != nil {
			cl.onOpen(id)
		}
	})
	cl.render()
	return cl
}

// Name implements ui.Component.
func (cl *ConversationList) Name() string { return "chats" }

// FocusTarget implements ui.Component.
func (cl *ConversationList) FocusTarget() tview.Primitive { return cl.Table }

// Hints implements ui.Component.
func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
		{Key: "r", Description: "Refresh"},
		{Key: "1-9", Description: "Jump", Numeric: true},
	}
}

// SetOnOpen sets the callback for Enter on a row.
func (cl *ConversationList) SetOnOpen(fn func(id string)) {
	cl.onOpen = fn
}

// Update replaces the data. The cursor follows the active conversation.
func (cl *ConversationList) Update(chats []chat.Conversation, active string) {
	cl.chats = chats
	cl.active = active
	cl.render()
}

// SetFilter sets the active filter text and re-renders.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

// Filter returns the active filter.
func (cl *ConversationList) Filter() string {
	return cl.filter
}

// SelectedID returns the conversation under the cursor.
func (cl *ConversationList) SelectedID() string {
	row, _ := cl.GetSelection()
	return cl.idAt(row)
}

// IDByIndex returns the id of the nth visible conversation, 1-based.
func (cl *ConversationList) IDByIndex(n int) string {
	return cl.idAt(n)
}

// Find returns the first conversation whose counterpart name contains name.
func (cl *ConversationList) Find(name string) string {
	for _, c := range cl.chats {
		if containsFold(model.DisplayName(c), name) {
			return c.ID
		}
	}
	return ""
}

func (cl *ConversationList) idAt(row int) string {
	idx := row - 1 // header
	if idx < 0 || idx >= len(cl.visible) {
		return ""
	}
	return cl.visible[idx].ID
}

func (cl *ConversationList) matches(c chat.Conversation) bool {
	return cl.filter == "" ||
		containsFold(model.DisplayName(c), cl.filter) ||
		containsFold(c.LastMessagePreview, cl.filter)
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" #", 0},
		{" NAME", 1},
		{" LAST MESSAGE", 3},
		{" UNREAD", 0},
		{" TIME", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	cl.visible = cl.visible[:0]
	now := cl.now()
	cursor := 0
	for _, c := range cl.chats {
		if !cl.matches(c) {
			continue
		}
		cl.visible = append(cl.visible, c)
		row := len(cl.visible)
		if c.ID == cl.active {
			cursor = row
		}

		presence := "○ "
		nameColor := cl.theme.FgColor
		if c.Counterpart.Presence == chat.Online {
			presence = "● "
			nameColor = cl.theme.OnlineColor
		}
		unread, unreadColor := "", cl.theme.FgColor
		if c.UnreadCount > 0 {
			unread, unreadColor = fmt.Sprintf("%d", c.UnreadCount), cl.theme.UnreadColor
		}

		cl.SetCell(row, 0, tview.NewTableCell(fmt.Sprintf(" %d", row)).SetTextColor(cl.theme.NumericKeyColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+presence+clean(model.DisplayName(c))).SetExpansion(1).SetTextColor(nameColor))
		cl.SetCell(row, 2, tview.NewTableCell(" "+clean(singleLine(c.LastMessagePreview))).SetExpansion(3).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 3, tview.NewTableCell(unread).SetAlign(tview.AlignRight).SetTextColor(unreadColor))
		cl.SetCell(row, 4, tview.NewTableCell(" "+formatTimestamp(c.LastMessageAt, now)).SetAlign(tview.AlignRight).SetTextColor(cl.theme.FgColor))
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d/%d) filter: %s ", len(cl.visible), len(cl.chats), tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d) ", len(cl.chats)))
	}

	// Follow the active conversation only when it changes.
	if cursor > 0 && cl.active != cl.shown {
		cl.shown = cl.active
		cl.Select(cursor, 0)
	} else if len(cl.visible) > 0 {
		if row, _ := cl.GetSelection(); row < 1 || row > len(cl.visible) {
			cl.Select(1, 0)
		}
	}
}
