package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Logo displays the compact ASCII logo in the header.
type Logo struct {
	*tview.TextView
}

// NewLogo creates a new logo component.
func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(1, 0, 1, 0)

	title := ColorName(theme.TitleColor)
	_, _ = fmt.Fprintf(tv,
		"[%s::b]╔╦╗╔═╗╔═╗╦═╗[-:-:-]\n"+
			"[%s::b]║║║╚═╗║ ╦╠╦╝[-:-:-]\n"+
			"[%s::b]╩ ╩╚═╝╚═╝╩╚═[-:-:-]\n"+
			"[%s]terminal chat[-:-:-]",
		title, title, title, ColorName(theme.FgColor),
	)
	return &Logo{TextView: tv}
}
