package console

type focus int

const (
	focusRepl focus = iota
	focusSelector
)

func (f focus) String() string {
	if f == focusSelector {
		return "Logger selector"
	}
	return "REPL"
}

// navKey selects the handler of a navigation key. Shift turns Up and Down
// into Output scrolling whichever panel has focus.
type navKey struct {
	focus focus
	kind  keyKind
	shift bool
}

var navTable = map[navKey]func(*Console){
	{focusRepl, keyUp, false}:       func(c *Console) { c.input.HistoryPrev() },
	{focusRepl, keyDown, false}:     func(c *Console) { c.input.HistoryNext() },
	{focusRepl, keyUp, true}:        func(c *Console) { c.output.ScrollUp() },
	{focusRepl, keyDown, true}:      func(c *Console) { c.output.ScrollDown() },
	{focusSelector, keyUp, false}:   func(c *Console) { c.selector.SelectPrev() },
	{focusSelector, keyDown, false}: func(c *Console) { c.selector.SelectNext() },
	{focusSelector, keyUp, true}:    func(c *Console) { c.output.ScrollUp() },
	{focusSelector, keyDown, true}:  func(c *Console) { c.output.ScrollDown() },
}
