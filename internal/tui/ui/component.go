package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// MenuHint describes a keyboard shortcut for display in the menu bar.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // true for 1-9 shortcuts (displayed in a different color)
}

// Component is a page of the TUI.
type Component interface {
	tview.Primitive
	// Name is the page id and the crumb label.
	Name() string
	Hints() []MenuHint
	// FocusTarget is the primitive that receives focus when the page is shown.
	FocusTarget() tview.Primitive
}

func fmtHex(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}
