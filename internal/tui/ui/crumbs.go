package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// Crumbs is a breadcrumb bar showing the page stack.
type Crumbs struct {
	*tview.TextView
	theme  *Theme
	titles map[string]string
}

// NewCrumbs creates a breadcrumb bar. titles maps page names to labels;
// pages without an entry show their name.
func NewCrumbs(theme *Theme, titles map[string]string) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &Crumbs{
		TextView: tv,
		theme:    theme,
		titles:   titles,
	}
}

// Rename overrides the label of one page, e.g. with the open conversation's name.
func (c *Crumbs) Rename(page, label string) {
	c.titles[page] = label
}

// Update renders the trail.
func (c *Crumbs) Update(stack []string) {
	c.Clear()
	parts := make([]string, 0, len(stack))
	for i, name := range stack {
		label := name
		if t, ok := c.titles[name]; ok && t != "" {
			label = t
		}
		label = tview.Escape(label)
		fg, bg, attr := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg, ""
		if i == len(stack)-1 {
			fg, bg, attr = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg, "b"
		}
		parts = append(parts, fmt.Sprintf("[%s:%s:%s] %s [-:-:-]", ColorName(fg), ColorName(bg), attr, label))
	}
	_, _ = fmt.Fprint(c, strings.Join(parts, " "))
}
