package views

import "github.com/gdamore/tcell/v2"

func tcellEnter() *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)
}
