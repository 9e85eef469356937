package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/msgr/internal/remote"
	"github.com/matheus3301/msgr/internal/tui/ui"
)

const (
	fieldUsername = "Username"
	fieldPassword = "Password"
)

// AuthView is the sign in / register form.
type AuthView struct {
	*tview.Flex
	theme    *ui.Theme
	form     *tview.Form
	message  *tview.TextView
	busy     bool
	onSubmit func(mode remote.AuthMode, username, password string)
}

// NewAuthView creates the auth page.
func NewAuthView(theme *ui.Theme) *AuthView {
	form := tview.NewForm().
		AddInputField(fieldUsername, "", 32, nil, nil).
		AddPasswordField(fieldPassword, "", 32, '*', nil)
	form.SetBorder(true)
	form.SetBorderColor(theme.BorderColor)
	form.SetBackgroundColor(theme.BgColor)
	form.SetFieldBackgroundColor(theme.BgColor)
	form.SetFieldTextColor(theme.FgColor)
	form.SetLabelColor(theme.MenuKeyColor)
	form.SetButtonBackgroundColor(theme.BorderColor)
	form.SetTitle(" Sign in ")
	form.SetTitleColor(theme.TitleColor)

	message := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	message.SetBackgroundColor(theme.BgColor)

	inner := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(form, 9, 0, true).
		AddItem(message, 2, 0, false).
		AddItem(nil, 0, 1, false)
	outer := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(inner, 56, 0, true).
		AddItem(nil, 0, 1, false)

	av := &AuthView{
		Flex:    outer,
		theme:   theme,
		form:    form,
		message: message,
	}
	form.AddButton("Sign in", func() { av.submit(remote.Login) })
	form.AddButton("Register", func() { av.submit(remote.Register) })
	return av
}

// Name implements ui.Component.
func (av *AuthView) Name() string { return "auth" }

// FocusTarget implements ui.Component.
func (av *AuthView) FocusTarget() tview.Primitive { return av.form }

// Hints implements ui.Component.
func (av *AuthView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Submit"},
	}
}

// SetOnSubmit sets the callback for both buttons.
func (av *AuthView) SetOnSubmit(fn func(mode remote.AuthMode, username, password string)) {
	av.onSubmit = fn
}

func (av *AuthView) submit(mode remote.AuthMode) {
	if av.busy || av.onSubmit == nil {
		return
	}
	username := av.form.GetFormItemByLabel(fieldUsername).(*tview.InputField).GetText()
	password := av.form.GetFormItemByLabel(fieldPassword).(*tview.InputField).GetText()
	av.busy = true
	av.ShowInfo("Contacting server…")
	av.onSubmit(mode, username, password)
}

// Done re-enables the form after a submit returned.
func (av *AuthView) Done() {
	av.busy = false
}

// Reset empties the password field and the message.
func (av *AuthView) Reset() {
	av.busy = false
	av.form.GetFormItemByLabel(fieldPassword).(*tview.InputField).SetText("")
	av.message.Clear()
	av.form.SetFocus(0)
}

// ShowInfo displays a neutral message under the form.
func (av *AuthView) ShowInfo(msg string) {
	av.show(av.theme.FgColor, msg)
}

// ShowError displays an error under the form.
func (av *AuthView) ShowError(msg string) {
	av.show(av.theme.FailedColor, msg)
}

func (av *AuthView) show(color tcell.Color, msg string) {
	av.message.Clear()
	_, _ = fmt.Fprintf(av.message, "[%s]%s[-]", ui.ColorName(color), tview.Escape(msg))
}
