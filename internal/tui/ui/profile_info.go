package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// ProfileData is what the header shows about the running client.
type ProfileData struct {
	Profile       string
	User          string
	Server        string
	Status        string
	Conversations int
	Unread        int
}

// ProfileInfo displays profile and sync metadata in the header.
type ProfileInfo struct {
	*tview.TextView
	theme *Theme
}

// NewProfileInfo creates the header info panel.
func NewProfileInfo(theme *Theme) *ProfileInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &ProfileInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders data.
func (pi *ProfileInfo) Update(data ProfileData) {
	pi.Clear()

	user := data.User
	if user == "" {
		user = "-"
	}
	unread := ColorName(pi.theme.CounterColor)
	if data.Unread > 0 {
		unread = ColorName(pi.theme.UnreadColor)
	}

	label := ColorName(pi.theme.FgColor)
	value := ColorName(pi.theme.CounterColor)
	row := func(name, color, v string) {
		_, _ = fmt.Fprintf(pi, "[%s::b]%-8s[-:-:-] [%s]%s[-]\n", label, name+":", color, tview.Escape(v))
	}
	row("Profile", value, data.Profile)
	row("User", value, user)
	row("Server", value, data.Server)
	row("Status", value, data.Status)
	row("Chats", value, fmt.Sprint(data.Conversations))
	row("Unread", unread, fmt.Sprint(data.Unread))
}
