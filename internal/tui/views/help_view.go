package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/matheus3301/msgr/internal/tui/ui"
)

// HelpView displays the key binding reference.
type HelpView struct {
	*tview.TextView
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{TextView: tv}
	hv.render(ui.ColorName(theme.MenuKeyColor))
	return hv
}

// Name implements ui.Component.
func (hv *HelpView) Name() string { return "help" }

// FocusTarget implements ui.Component.
func (hv *HelpView) FocusTarget() tview.Primitive { return hv.TextView }

// Hints implements ui.Component.
func (hv *HelpView) Hints() []ui.MenuHint { return nil }

var helpSections = []struct {
	title string
	keys  [][2]string
}{
	{"Global", [][2]string{
		{":", "Command mode"},
		{"Esc", "Back / leave input"},
		{"s", "Find users"},
		{"p", "Profile"},
		{"?", "This help"},
		{"q", "Quit"},
	}},
	{"Conversations", [][2]string{
		{"Enter", "Open conversation"},
		{"/", "Filter"},
		{"1-9", "Jump to Nth conversation"},
		{"r", "Refresh now"},
	}},
	{"Conversation", [][2]string{
		{"i", "Focus composer"},
		{"Enter", "Send (in composer)"},
		{"d", "Details"},
		{"D", "Delete conversation"},
		{"Ctrl-R", "Retry last failed message"},
		{"Ctrl-X", "Discard last failed message"},
	}},
	{"Commands", [][2]string{
		{":search <query>", "Find users"},
		{":chat <name>", "Open conversation by name"},
		{":profile", "Show profile"},
		{":logout", "Sign out"},
		{":help", "This help"},
		{":quit", "Quit"},
	}},
}

func (hv *HelpView) render(keyColor string) {
	var b strings.Builder
	for _, s := range helpSections {
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, k := range s.keys {
			fmt.Fprintf(&b, "  [%s]%-18s[-:-:-] %s\n", keyColor, tview.Escape(k[0]), k[1])
		}
	}
	_, _ = fmt.Fprint(hv, b.String())
}
