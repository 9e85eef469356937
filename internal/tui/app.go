// Package tui is the terminal front end: a stack of tview pages driven by
// client events.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/msgr/internal/chat"
	"github.com/matheus3301/msgr/internal/client"
	"github.com/matheus3301/msgr/internal/remote"
	"github.com/matheus3301/msgr/internal/tui/keys"
	"github.com/matheus3301/msgr/internal/tui/model"
	"github.com/matheus3301/msgr/internal/tui/ui"
	"github.com/matheus3301/msgr/internal/tui/views"
)

const (
	pageAuth    = "auth"
	pageChats   = "chats"
	pageChat    = "chat"
	pageInfo    = "info"
	pageSearch  = "search"
	pageProfile = "profile"
	pageHelp    = "help"

	confirmPage = "confirm"
)

// Options describe the running client for the header.
type Options struct {
	Profile string
	Server  string
}

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	client   *client.Client
	vm       *model.ViewModel
	registry *keys.Registry
	flash    *ui.FlashModel
	opts     Options

	pages    *ui.Pages
	body     *tview.Flex
	info     *ui.ProfileInfo
	menu     *ui.Menu
	crumbs   *ui.Crumbs
	flashBar *ui.FlashBar
	prompt   *ui.Prompt

	authView *views.AuthView
	chatList *views.ConversationList
	thread   *views.MessageThread
	convInfo *views.ConversationInfo
	searchV  *views.SearchView
	profileV *views.ProfileView
	helpV    *views.HelpView

	// UI goroutine only.
	threadID  string
	promptOn  bool
	confirmOn bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI for c.
func NewApp(c *client.Client, opts Options) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		theme:    theme,
		client:   c,
		vm:       model.NewViewModel(c),
		registry: keys.NewRegistry(),
		flash:    ui.NewFlashModel(),
		opts:     opts,
		pages:    ui.NewPages(),
		info:     ui.NewProfileInfo(theme),
		menu:     ui.NewMenu(theme),
		crumbs: ui.NewCrumbs(theme, map[string]string{
			pageAuth:    "Sign in",
			pageChats:   "Conversations",
			pageInfo:    "Details",
			pageSearch:  "Find users",
			pageProfile: "Profile",
			pageHelp:    "Help",
		}),
		flashBar: ui.NewFlashBar(theme),
		prompt:   ui.NewPrompt(theme),
		authView: views.NewAuthView(theme),
		chatList: views.NewConversationList(theme),
		thread:   views.NewMessageThread(theme),
		convInfo: views.NewConversationInfo(theme),
		searchV:  views.NewSearchView(theme),
		profileV: views.NewProfileView(theme),
		helpV:    views.NewHelpView(theme),
		ctx:      ctx,
		cancel:   cancel,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'q', Description: "Quit", Visible: true,
		Handler: func() { a.app.Stop() },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':', Description: "Command", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptCommand) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 's', Description: "Find users", Visible: true,
		Handler: func() { a.showSearch("") },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'p', Description: "Profile", Visible: true,
		Handler: a.showProfile,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '?', Description: "Help", Visible: true,
		Handler: func() { a.pages.Push(pageHelp) },
	})

	a.registry.AddPage(pageChats, &keys.Action{
		Key: tcell.KeyRune, Rune: '/',
		Handler: func() { a.showPrompt(ui.PromptFilter) },
	})
	a.registry.AddPage(pageChats, &keys.Action{
		Key: tcell.KeyRune, Rune: 'r',
		Handler: func() {
			go func() {
				if err := a.client.RefreshChats(a.ctx); err != nil {
					a.queue(func() { a.flash.Err(err) })
				}
			}()
		},
	})
	for n := 1; n <= 9; n++ {
		a.registry.AddPage(pageChats, &keys.Action{
			Key: tcell.KeyRune, Rune: rune('0' + n),
			Handler: func() {
				if id := a.chatList.IDByIndex(n); id != "" {
					a.openChat(id)
				}
			},
		})
	}

	a.registry.AddPage(pageChat, &keys.Action{
		Key: tcell.KeyRune, Rune: 'i',
		Handler: func() { a.app.SetFocus(a.thread.Composer()) },
	})
	a.registry.AddPage(pageChat, &keys.Action{
		Key: tcell.KeyRune, Rune: 'd',
		Handler: a.showDetails,
	})
	a.registry.AddPage(pageChat, &keys.Action{
		Key: tcell.KeyRune, Rune: 'D',
		Handler: a.confirmDelete,
	})
	a.registry.AddPage(pageChat, &keys.Action{
		Key:     tcell.KeyCtrlR,
		Handler: a.retryFailed,
	})
	a.registry.AddPage(pageChat, &keys.Action{
		Key:     tcell.KeyCtrlX,
		Handler: a.discardFailed,
	})
	a.registry.AddPage(pageInfo, &keys.Action{
		Key: tcell.KeyRune, Rune: 'D',
		Handler: a.confirmDelete,
	})
	a.registry.AddPage(pageProfile, &keys.Action{
		Key: tcell.KeyRune, Rune: 'L',
		Handler: a.logout,
	})
}

func (a *App) setupCallbacks() {
	a.authView.SetOnSubmit(a.authenticate)
	a.chatList.SetOnOpen(a.openChat)
	a.thread.SetOnSend(a.send)
	a.searchV.SetOnType(a.client.Search)
	a.searchV.SetOnPick(a.startConversation)

	a.prompt.SetOnChange(func(mode ui.PromptMode, text string) {
		if mode == ui.PromptFilter {
			a.chatList.SetFilter(text)
		}
	})
	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		if mode == ui.PromptCommand {
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(func() {
		if a.prompt.Mode() == ui.PromptFilter {
			a.chatList.SetFilter("")
		}
		a.hidePrompt()
	})

	a.pages.SetOnChange(func(stack []string) {
		top := a.pages.Current()
		a.client.SetChatsVisible(top == pageChats)
		a.crumbs.Update(stack)
		a.menu.Update(a.hints())
		if c := a.pages.CurrentComponent(); c != nil && !a.promptOn {
			a.app.SetFocus(c.FocusTarget())
		}
	})
}

func (a *App) setupLayout() {
	for _, c := range []ui.Component{a.authView, a.chatList, a.thread, a.convInfo, a.searchV, a.profileV, a.helpV} {
		a.pages.Register(c)
	}

	header := tview.NewFlex().
		AddItem(ui.NewLogo(a.theme), 16, 0, false).
		AddItem(a.info, 0, 1, false).
		AddItem(a.menu, 0, 2, false)

	a.body = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true)

	footer := tview.NewFlex().
		AddItem(a.crumbs, 0, 1, false).
		AddItem(a.flashBar, 0, 1, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 6, 0, false).
		AddItem(a.body, 0, 1, true).
		AddItem(footer, 1, 0, false)

	a.app.SetRoot(root, true)
	a.app.SetInputCapture(a.capture)
}

func (a *App) capture(ev *tcell.EventKey) *tcell.EventKey {
	if a.promptOn || a.confirmOn {
		return ev
	}
	page := a.pages.Current()
	focus := a.app.GetFocus()

	switch ev.Key() {
	case tcell.KeyEscape:
		switch {
		case page == pageAuth:
			return ev
		case focus == a.thread.Composer():
			a.app.SetFocus(a.thread.Messages())
		case page == pageSearch && focus == a.searchV.Results():
			a.app.SetFocus(a.searchV.Input())
		default:
			a.back()
		}
		return nil
	case tcell.KeyTab:
		if page == pageSearch {
			if focus == a.searchV.Input() {
				a.app.SetFocus(a.searchV.Results())
			} else {
				a.app.SetFocus(a.searchV.Input())
			}
			return nil
		}
	case tcell.KeyRune:
		if _, typing := focus.(*tview.InputField); typing || page == pageAuth {
			return ev
		}
	}

	if a.registry.HandleEvent(page, ev) {
		return nil
	}
	return ev
}

func (a *App) hints() []ui.MenuHint {
	var hints []ui.MenuHint
	if c := a.pages.CurrentComponent(); c != nil {
		hints = append(hints, c.Hints()...)
	}
	if a.pages.Current() == pageAuth {
		return hints
	}
	return append(hints, a.registry.Hints(a.pages.Current())...)
}

// queue runs fn on the UI goroutine unless the app is shutting down.
func (a *App) queue(fn func()) {
	if a.ctx.Err() != nil {
		return
	}
	a.app.QueueUpdateDraw(fn)
}

func (a *App) back() {
	switch a.pages.Current() {
	case pageChats:
		if a.chatList.Filter() != "" {
			a.chatList.SetFilter("")
		}
	case pageSearch:
		a.leaveSearch()
		a.pages.Pop()
	default:
		a.pages.Pop()
	}
}

func (a *App) showPrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	a.promptOn = true
	a.body.Clear().
		AddItem(a.prompt, 3, 0, true).
		AddItem(a.pages, 0, 1, false)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.promptOn = false
	a.body.Clear().AddItem(a.pages, 0, 1, true)
	if c := a.pages.CurrentComponent(); c != nil {
		a.app.SetFocus(c.FocusTarget())
	}
}

func (a *App) signedIn() bool {
	_, ok := a.vm.Identity()
	return ok
}

func (a *App) authenticate(mode remote.AuthMode, username, password string) {
	go func() {
		var (
			ident chat.Identity
			err   error
		)
		if mode == remote.Register {
			ident, err = a.client.Register(a.ctx, username, password)
		} else {
			ident, err = a.client.Login(a.ctx, username, password)
		}
		a.queue(func() {
			a.authView.Done()
			if err != nil {
				a.authView.ShowError(authMessage(err))
				return
			}
			a.authView.Reset()
			a.flash.Info("Signed in as " + ident.DisplayName)
			a.pages.Reset(pageChats)
			a.apply(model.DirtyChats|model.DirtyMessages|model.DirtyStatus, nil)
		})
	}()
}

// authMessage turns a sign in failure into something to show under the form.
func authMessage(err error) string {
	var (
		ae *chat.AuthError
		ve *chat.ValidationError
		te *chat.TransportError
	)
	switch {
	case errors.As(err, &ae):
		if ae.Message != "" {
			return ae.Message
		}
		return "Authentication failed"
	case errors.As(err, &ve):
		return fmt.Sprintf("%s is required", ve.Field)
	case errors.As(err, &te):
		return "Cannot reach the server: " + te.Error()
	default:
		return err.Error()
	}
}

func (a *App) openChat(id string) {
	a.client.Select(id)
	a.bindThread(id)
	a.pages.Push(pageChat)
}

// bindThread points the thread view at conversation id.
func (a *App) bindThread(id string) {
	a.threadID = id
	title := "conversation " + id
	if c, ok := a.client.Store().Conversation(id); ok {
		title = model.DisplayName(c)
	}
	ident, _ := a.vm.Identity()
	a.thread.SetConversation(title, ident.ID)
	a.thread.Update(a.client.Store().Messages(id))
	a.crumbs.Rename(pageChat, title)
}

func (a *App) send(text string) {
	id := a.threadID
	go func() {
		_, err := a.client.Send(a.ctx, id, text)
		var ve *chat.ValidationError
		if errors.As(err, &ve) || errors.Is(err, chat.ErrNotAuthenticated) {
			a.queue(func() { a.flash.Err(err) })
		}
	}()
}

func (a *App) retryFailed() {
	id, temp := a.threadID, a.thread.LastFailed()
	if temp == "" {
		a.flash.Info("Nothing to retry")
		return
	}
	go func() {
		if _, err := a.client.Retry(a.ctx, id, temp); err == nil {
			a.queue(func() { a.flash.Info("Message sent") })
		}
	}()
}

func (a *App) discardFailed() {
	temp := a.thread.LastFailed()
	if temp == "" {
		a.flash.Info("Nothing to discard")
		return
	}
	if err := a.client.Discard(a.threadID, temp); err != nil {
		a.flash.Err(err)
	}
}

func (a *App) showDetails() {
	c, ok := a.client.Store().Conversation(a.threadID)
	if !ok {
		return
	}
	pending := 0
	for _, m := range a.client.Store().Messages(a.threadID) {
		if m.Pending() {
			pending++
		}
	}
	a.convInfo.Update(c, pending)
	a.pages.Push(pageInfo)
}

func (a *App) confirmDelete() {
	id := a.threadID
	if id == "" {
		return
	}
	modal := tview.NewModal().
		SetText(fmt.Sprintf("Delete the conversation with %s?\nAll of its messages are removed.", a.thread.Title())).
		AddButtons([]string{"Delete", "Cancel"}).
		SetDoneFunc(func(_ int, label string) {
			a.pages.RemovePage(confirmPage)
			a.confirmOn = false
			if c := a.pages.CurrentComponent(); c != nil {
				a.app.SetFocus(c.FocusTarget())
			}
			if label == "Delete" {
				a.deleteConversation(id)
			}
		})
	a.confirmOn = true
	a.pages.AddPage(confirmPage, modal, false, true)
	a.app.SetFocus(modal)
}

func (a *App) deleteConversation(id string) {
	go func() {
		err := a.client.DeleteConversation(a.ctx, id)
		a.queue(func() {
			if err != nil {
				a.flash.Err(err)
				return
			}
			a.flash.Info("Conversation deleted")
			a.threadID = ""
			a.pages.Reset(pageChats)
		})
	}()
}

func (a *App) showSearch(query string) {
	if !a.signedIn() {
		return
	}
	a.leaveSearch()
	a.pages.Push(pageSearch)
	if query != "" {
		a.searchV.SetQuery(query)
	}
}

func (a *App) leaveSearch() {
	a.searchV.Reset()
	a.client.ResetSearch()
}

func (a *App) startConversation(user chat.Identity) {
	go func() {
		id, err := a.client.StartConversation(a.ctx, user.ID)
		a.queue(func() {
			if err != nil {
				a.flash.Err(err)
				return
			}
			a.leaveSearch()
			a.pages.Reset(pageChats)
			a.openChat(id)
		})
	}()
}

func (a *App) showProfile() {
	ident, ok := a.vm.Identity()
	if !ok {
		return
	}
	a.profileV.Update(ident, a.opts.Profile, a.opts.Server)
	a.pages.Push(pageProfile)
}

func (a *App) logout() {
	go func() {
		if err := a.client.Logout(); err != nil {
			a.queue(func() { a.flash.Err(err) })
		}
	}()
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "":
	case "search":
		a.showSearch(cmd.Args)
	case "chat":
		if id := a.chatList.Find(cmd.Args); cmd.Args != "" && id != "" {
			a.pages.Reset(pageChats)
			a.openChat(id)
		} else {
			a.flash.Warn("No conversation matches " + strconv.Quote(cmd.Args))
		}
	case "profile":
		a.showProfile()
	case "logout":
		a.logout()
	case "help":
		a.pages.Push(pageHelp)
	case "quit":
		a.app.Stop()
	default:
		a.flash.Warn("Unknown command: " + cmd.Name)
	}
	a.flashBar.Update(a.flash.Current())
}

// apply redraws what d marks dirty. UI goroutine only.
func (a *App) apply(d model.Dirty, notices []model.Notice) {
	if d.Has(model.DirtySession) && !a.signedIn() {
		a.threadID = ""
		a.leaveSearch()
		a.chatList.SetFilter("")
		a.authView.Reset()
		a.pages.Reset(pageAuth)
	}

	active := a.vm.ActiveID()
	if d.Has(model.DirtyChats) {
		a.chatList.Update(a.vm.Chats(), active)
	}
	if page := a.pages.Current(); page == pageChat || page == pageInfo {
		switch {
		case active == "":
			a.threadID = ""
			a.pages.Reset(pageChats)
		case active != a.threadID:
			a.bindThread(active)
		case d.Has(model.DirtyMessages):
			a.thread.Update(a.vm.ActiveMessages())
		}
	}
	if d.Has(model.DirtySearch) {
		a.searchV.Update(a.vm.Search())
	}

	for _, n := range notices {
		if n.Warn {
			a.flash.Warn(n.Text)
		} else {
			a.flash.Info(n.Text)
		}
	}
	a.renderHeader()
	a.flashBar.Update(a.flash.Current())
}

func (a *App) renderHeader() {
	ident, _ := a.vm.Identity()
	a.info.Update(ui.ProfileData{
		Profile:       a.opts.Profile,
		User:          ident.DisplayName,
		Server:        a.opts.Server,
		Status:        string(a.vm.Status()),
		Conversations: len(a.vm.Chats()),
		Unread:        a.vm.Unread(),
	})
}

func (a *App) loop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.vm.RefreshCh():
			d, notices := a.vm.Drain()
			a.queue(func() { a.apply(d, notices) })
		case <-ticker.C:
			a.queue(func() { a.flashBar.Update(a.flash.Current()) })
		}
	}
}

// Run starts syncing and blocks until the user quits.
func (a *App) Run() error {
	a.vm.Start(a.ctx)
	a.client.StartSync(a.ctx)

	if a.signedIn() {
		a.pages.Reset(pageChats)
	} else {
		a.pages.Reset(pageAuth)
	}
	a.apply(model.DirtyChats|model.DirtyMessages|model.DirtySearch|model.DirtyStatus, nil)

	go a.loop()
	err := a.app.Run()

	a.cancel()
	a.client.StopSync()
	a.vm.Wait()
	return err
}

// Stop ends Run.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
