package ui

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rivo/tview"
)

type page struct {
	*tview.Box
	name string
}

func (p page) Name() string { return p.name }
func (p page) Hints() []MenuHint { return nil }
func (p page) FocusTarget() tview.Primitive { return p.Box }

func newPages(names ...string) *Pages {
	p := NewPages()
	for _, n := range names {
		p.Register(page{Box: tview.NewBox(), name: n})
	}
	return p
}

func TestPagesStack(t *testing.T) {
	p := newPages("chats", "chat", "info", "search")
	var last []string
	p.SetOnChange(func(stack []string) { last = stack })

	p.Reset("chats")
	p.Push("chat")
	p.Push("info")
	if got := p.Stack(); !reflect.DeepEqual(got, []string{"chats", "chat", "info"}) {
		t.Fatalf("stack = %v", got)
	}

	p.Push("chat")
	if got := p.Stack(); !reflect.DeepEqual(got, []string{"chats", "chat"}) {
		t.Fatalf("push of deeper page should unwind, stack = %v", got)
	}
	if !reflect.DeepEqual(last, []string{"chats", "chat"}) {
		t.Fatalf("onChange saw %v", last)
	}

	if top := p.Pop(); top != "chats" {
		t.Fatalf("pop = %q, want chats", top)
	}
	if top := p.Pop(); top != "chats" {
		t.Fatalf("popping the last page should keep it, got %q", top)
	}
	if p.CurrentComponent().Name() != "chats" {
		t.Fatalf("current component = %q", p.CurrentComponent().Name())
	}
}

func TestFlashExpires(t *testing.T) {
	f := NewFlashModel()
	now := time.Unix(1000, 0)
	f.now = func() time.Time { return now }

	if f.Current() != nil {
		t.Fatal("empty model should have no message")
	}
	f.Warn("careful")
	msg := f.Current()
	if msg == nil || msg.Text != "careful" || msg.Level != FlashWarn {
		t.Fatalf("current = %+v", msg)
	}
	now = now.Add(9 * time.Second)
	if f.Current() != nil {
		t.Fatal("message should have expired")
	}
}

func TestCrumbsUseLabels(t *testing.T) {
	c := NewCrumbs(DefaultTheme(), map[string]string{"chats": "Chats"})
	c.Rename("chat", "bob")
	c.Update([]string{"chats", "chat"})

	text := c.GetText(true)
	if !strings.Contains(text, "Chats") || !strings.Contains(text, "bob") {
		t.Fatalf("crumbs = %q", text)
	}
}

func TestMenuColumns(t *testing.T) {
	m := NewMenu(DefaultTheme())
	var hints []MenuHint
	for _, d := range []string{"a", "b", "c", "d", "e", "f"} {
		hints = append(hints, MenuHint{Key: d, Description: "do " + d})
	}
	m.Update(hints)

	lines := strings.Split(strings.TrimRight(m.GetText(true), "\n"), "\n")
	if len(lines) != menuRows {
		t.Fatalf("got %d lines, want %d", len(lines), menuRows)
	}
	if !strings.Contains(lines[0], "do a") || !strings.Contains(lines[0], "do f") {
		t.Fatalf("first row = %q, want hints a and f side by side", lines[0])
	}
}
