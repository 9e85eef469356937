package tui

import (
	"errors"
	"testing"

	"github.com/matheus3301/msgr/internal/chat"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		want Command
	}{
		{"quit", Command{Name: "quit"}},
		{"  Search  al ice ", Command{Name: "search", Args: "al ice"}},
		{"chat bob", Command{Name: "chat", Args: "bob"}},
		{":q", Command{Name: "quit"}},
		{"open  bob ", Command{Name: "chat", Args: "bob"}},
		{"find al", Command{Name: "search", Args: "al"}},
		{"", Command{}},
	}
	for _, c := range cases {
		if got := ParseCommand(c.in); got != c.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestAuthMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&chat.AuthError{Op: "authenticate", Message: "Username already exists"}, "Username already exists"},
		{&chat.AuthError{Op: "authenticate"}, "Authentication failed"},
		{&chat.ValidationError{Field: "password", Reason: "empty"}, "password is required"},
		{errors.New("odd"), "odd"},
	}
	for _, c := range cases {
		if got := authMessage(c.err); got != c.want {
			t.Errorf("authMessage(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}
