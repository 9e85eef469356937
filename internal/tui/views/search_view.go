package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/msgr/internal/chat"
	"github.com/matheus3301/msgr/internal/tui/ui"
)

// SearchView finds users as you type and starts conversations with them.
type SearchView struct {
	*tview.Flex
	theme   *ui.Theme
	input   *tview.InputField
	state   *tview.TextView
	results *tview.Table
	users   []chat.Identity
	onType  func(text string)
	onPick  func(user chat.Identity)
}

// NewSearchView creates a new search view.
func NewSearchView(theme *ui.Theme) *SearchView {
	input := tview.NewInputField().
		SetLabel(" Find user: ").
		SetFieldWidth(0)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	state := tview.NewTextView().SetDynamicColors(true)
	state.SetBackgroundColor(theme.BgColor)

	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	results.SetBorder(true)
	results.SetBorderColor(theme.BorderColor)
	results.SetBackgroundColor(theme.BgColor)
	results.SetTitle(" Users ")
	results.SetTitleColor(theme.TitleColor)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(input, 1, 0, true).
		AddItem(state, 1, 0, false).
		AddItem(results, 0, 1, false)

	sv := &SearchView{
		Flex:    flex,
		theme:   theme,
		input:   input,
		state:   state,
		results: results,
	}

	input.SetChangedFunc(func(text string) {
		if sv.onType != nil {
			sv.onType(text)
		}
	})
	results.SetSelectedFunc(func(row, _ int) {
		if u, ok := sv.userAt(row); ok && sv.onPick != nil {
			sv.onPick(u)
		}
	})
	sv.Update(chat.SearchState{Status: chat.SearchIdle})
	return sv
}

// Name implements ui.Component.
func (sv *SearchView) Name() string { return "search" }

// FocusTarget implements ui.Component.
func (sv *SearchView) FocusTarget() tview.Primitive { return sv.input }

// Hints implements ui.Component.
func (sv *SearchView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Tab", Description: "Results"},
		{Key: "Enter", Description: "Start chat"},
	}
}

// SetOnType sets the callback fired on every edit of the query.
func (sv *SearchView) SetOnType(fn func(text string)) {
	sv.onType = fn
}

// SetOnPick sets the callback fired when a result is chosen.
func (sv *SearchView) SetOnPick(fn func(user chat.Identity)) {
	sv.onPick = fn
}

// Reset clears the query without firing the change callback.
func (sv *SearchView) Reset() {
	fn := sv.onType
	sv.onType = nil
	sv.input.SetText("")
	sv.onType = fn
}

// SetQuery fills the input as if typed.
func (sv *SearchView) SetQuery(q string) {
	sv.input.SetText(q)
}

// Update renders the search state.
func (sv *SearchView) Update(st chat.SearchState) {
	sv.users = st.Results
	sv.state.Clear()
	dim := ui.ColorName(sv.theme.PendingColor)
	switch st.Status {
	case chat.SearchIdle:
		_, _ = fmt.Fprintf(sv.state, " [%s]Type at least two characters[-]", dim)
	case chat.SearchDebouncing, chat.SearchLoading:
		_, _ = fmt.Fprintf(sv.state, " [%s]Searching…[-]", dim)
	case chat.SearchFailed:
		msg := "search failed"
		if st.Err != nil {
			msg = st.Err.Error()
		}
		_, _ = fmt.Fprintf(sv.state, " [%s]%s[-]", ui.ColorName(sv.theme.FailedColor), tview.Escape(msg))
	case chat.SearchDone:
		if len(st.Results) == 0 {
			_, _ = fmt.Fprintf(sv.state, " [%s]No users found[-]", dim)
		} else {
			_, _ = fmt.Fprintf(sv.state, " %d found", len(st.Results))
		}
	}

	sv.results.Clear()
	for col, h := range []string{" USER", " STATUS"} {
		sv.results.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(sv.theme.TableHeaderFg).
			SetBackgroundColor(sv.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(1))
	}
	for i, u := range st.Results {
		color := sv.theme.FgColor
		if u.Presence == chat.Online {
			color = sv.theme.OnlineColor
		}
		sv.results.SetCell(i+1, 0, tview.NewTableCell(" "+clean(u.DisplayName)).SetExpansion(1).SetTextColor(sv.theme.FgColor))
		sv.results.SetCell(i+1, 1, tview.NewTableCell(" "+string(u.Presence)).SetExpansion(1).SetTextColor(color))
	}
}

// SelectedUser returns the result under the cursor.
func (sv *SearchView) SelectedUser() (chat.Identity, bool) {
	row, _ := sv.results.GetSelection()
	return sv.userAt(row)
}

func (sv *SearchView) userAt(row int) (chat.Identity, bool) {
	idx := row - 1
	if idx < 0 || idx >= len(sv.users) {
		return chat.Identity{}, false
	}
	return sv.users[idx], true
}

// Input returns the query field.
func (sv *SearchView) Input() *tview.InputField {
	return sv.input
}

// Results returns the results table.
func (sv *SearchView) Results() *tview.Table {
	return sv.results
}
