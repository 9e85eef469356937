package ui

import "github.com/rivo/tview"

// Pages is a stack of components on top of tview.Pages.
type Pages struct {
	*tview.Pages
	components map[string]Component
	stack      []string
	onChange   func(stack []string)
}

// NewPages creates an empty page stack.
func NewPages() *Pages {
	return &Pages{
		Pages:      tview.NewPages(),
		components: make(map[string]Component),
	}
}

// Register adds a component as a hidden page.
func (p *Pages) Register(c Component) {
	p.components[c.Name()] = c
	p.AddPage(c.Name(), c, true, false)
}

// Component returns a registered component by name.
func (p *Pages) Component(name string) Component {
	return p.components[name]
}

// SetOnChange sets a callback fired after every stack change.
func (p *Pages) SetOnChange(fn func(stack []string)) {
	p.onChange = fn
}

// Push shows name on top of the stack. Pushing the page already on top is a no-op;
// pushing one already deeper in the stack unwinds to it.
func (p *Pages) Push(name string) {
	if p.Current() == name {
		return
	}
	for i, n := range p.stack {
		if n == name {
			p.unwind(i + 1)
			return
		}
	}
	if top := p.Current(); top != "" {
		p.HidePage(top)
	}
	p.stack = append(p.stack, name)
	p.show(name)
}

// Pop removes the top page unless it is the last one and returns the new top.
func (p *Pages) Pop() string {
	if len(p.stack) <= 1 {
		return p.Current()
	}
	p.unwind(len(p.stack) - 1)
	return p.Current()
}

// Reset makes name the only page on the stack.
func (p *Pages) Reset(name string) {
	for _, n := range p.stack {
		p.HidePage(n)
	}
	p.stack = []string{name}
	p.show(name)
}

// Current returns the name of the top page, or "".
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// CurrentComponent returns the top component, or nil.
func (p *Pages) CurrentComponent() Component {
	return p.components[p.Current()]
}

// Stack returns a copy of the page stack, bottom first.
func (p *Pages) Stack() []string {
	return append([]string(nil), p.stack...)
}

func (p *Pages) unwind(depth int) {
	for _, n := range p.stack[depth:] {
		p.HidePage(n)
	}
	p.stack = p.stack[:depth]
	p.show(p.Current())
}

func (p *Pages) show(name string) {
	p.ShowPage(name)
	p.SendToFront(name)
	if p.onChange != nil {
		p.onChange(p.Stack())
	}
}
