package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/matheus3301/msgr/internal/chat"
	"github.com/matheus3301/msgr/internal/tui/ui"
)

// ProfileView shows the signed-in identity.
type ProfileView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewProfileView creates the profile page.
func NewProfileView(theme *ui.Theme) *ProfileView {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Profile ")
	tv.SetTitleColor(theme.TitleColor)

	return &ProfileView{TextView: tv, theme: theme}
}

// Name implements ui.Component.
func (pv *ProfileView) Name() string { return "profile" }

// FocusTarget implements ui.Component.
func (pv *ProfileView) FocusTarget() tview.Primitive { return pv.TextView }

// Hints implements ui.Component.
func (pv *ProfileView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "L", Description: "Log out"},
	}
}

// Update renders the identity under profile on server.
func (pv *ProfileView) Update(id chat.Identity, profile, server string) {
	pv.Clear()

	fg := ui.ColorName(pv.theme.FgColor)
	ct := ui.ColorName(pv.theme.CounterColor)
	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		_, _ = fmt.Fprintf(pv, " [%s::b]%-10s[-:-:-] [%s]%s[-]\n", fg, label+":", ct, clean(value))
	}
	_, _ = fmt.Fprintln(pv)
	row("Username", id.DisplayName)
	row("User id", id.ID)
	row("Presence", string(id.Presence))
	row("Avatar", id.AvatarRef)
	row("Profile", profile)
	row("Server", server)
	_, _ = fmt.Fprintf(pv, "\n [::d]Press L to log out. The saved session is removed.[-:-:-]")
}
