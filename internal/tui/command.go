package tui

import "strings"

// Command is a parsed ":" prompt line.
type Command struct {
	Name string
	Args string
}

var commandAliases = map[string]string{
	"q":    "quit",
	"exit": "quit",
	"find": "search",
	"s":    "search",
	"open": "chat",
	"c":    "chat",
	"h":    "help",
	"me":   "profile",
}

// ParseCommand splits a prompt line into a lower-cased command name and its
// argument text. A leading ':' is ignored and aliases resolve to their
// canonical name.
func ParseCommand(input string) Command {
	input = strings.TrimPrefix(strings.TrimSpace(input), ":")
	name, args, _ := strings.Cut(strings.TrimSpace(input), " ")
	name = strings.ToLower(name)
	if canonical, ok := commandAliases[name]; ok {
		name = canonical
	}
	return Command{Name: name, Args: strings.TrimSpace(args)}
}
