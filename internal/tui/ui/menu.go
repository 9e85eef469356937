package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// menuRows is how many hints fit in one column of the header.
const menuRows = 5

// Menu displays keyboard shortcut hints in columns.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates a new menu hint panel.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders hints column by column, menuRows per column.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()

	cols := (len(hints) + menuRows - 1) / menuRows
	for row := 0; row < menuRows; row++ {
		for col := 0; col < cols; col++ {
			i := col*menuRows + row
			if i >= len(hints) {
				continue
			}
			_, _ = fmt.Fprint(m, m.cell(hints[i]))
		}
		_, _ = fmt.Fprintln(m)
	}
}

func (m *Menu) cell(h MenuHint) string {
	kc := ColorName(m.theme.MenuKeyColor)
	if h.Numeric {
		kc = ColorName(m.theme.NumericKeyColor)
	}
	key := fmt.Sprintf("<%s>", h.Key)
	return fmt.Sprintf("[%s::b]%-8s[-:-:-] %-14s", kc, tview.Escape(key), h.Description)
}
