// Package console is the interactive wash dashboard: a REPL panel, an
// Output panel and a log selector drawn on a raw-mode terminal.
package console

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wascc/wcc/internal/command"
	"github.com/wascc/wcc/internal/logsink"
	"github.com/wascc/wcc/internal/logx"
	"github.com/wascc/wcc/lattice"
	"github.com/wascc/wcc/schema"
)

// DefaultPollInterval is how long the loop waits for a key before redrawing.
const DefaultPollInterval = 50 * time.Millisecond

// Options configures a Console.
type Options struct {
	Sink           *logsink.Sink
	Dialer         lattice.Dialer
	Endpoint       schema.Endpoint
	PollInterval   time.Duration
	OutputMaxLines int
	// DisplayLevel is the selector's initial display level for every target.
	DisplayLevel logsink.Level
	// SessionID tags this console's records; a random id is used when empty.
	SessionID schema.SessionID
	// Member delivers the id of the embedded lattice member, if one starts.
	Member <-chan schema.HostID
}

// Console runs one dashboard on one terminal. Its state is owned by the
// goroutine calling Run.
type Console struct {
	term       Terminal
	opts       Options
	screen     *screen
	styles     styles
	input      *InputState
	output     *OutputState
	selector   *Selector
	dispatcher *command.Dispatcher
	focus      focus
	seq        uint64
	memberID   schema.HostID
	member     <-chan schema.HostID
}

// New constructs a console drawing on term.
func New(term Terminal, opts Options) *Console {
	if opts.Sink == nil {
		opts.Sink = logsink.New(logsink.Options{})
	}
	if opts.Dialer == nil {
		opts.Dialer = lattice.NewDialer()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.DisplayLevel == logsink.LevelOff {
		opts.DisplayLevel = logsink.LevelInfo
	}
	if opts.SessionID == "" {
		opts.SessionID = schema.SessionID(uuid.NewString())
	}
	return &Console{
		term:       term,
		opts:       opts,
		screen:     newScreen(term),
		styles:     newStyles(term.Renderer()),
		input:      NewInputState(1),
		output:     NewOutputState(opts.OutputMaxLines),
		selector:   NewSelector(opts.Sink, opts.DisplayLevel),
		dispatcher: command.NewDispatcher(opts.Dialer, opts.Endpoint),
		member:     opts.Member,
	}
}

// SessionID returns the id tagging this console's records.
func (c *Console) SessionID() schema.SessionID { return c.opts.SessionID }

// Dispatcher returns the command dispatcher of this console.
func (c *Console) Dispatcher() *command.Dispatcher { return c.dispatcher }

// Run drives the console until a quit command or a terminal failure. The
// terminal is restored on every return path. Cancelling ctx does not end the
// loop; it only reaches commands in flight.
func (c *Console) Run(ctx context.Context) (err error) {
	ctx = logx.ContextWithSession(ctx, c.opts.SessionID)
	log := logx.Target(logx.WithSession(ctx), logx.LogTarget)
	if err := c.term.Enter(); err != nil {
		return &TerminalError{Op: "enter", Err: err}
	}
	defer func() {
		if rerr := c.term.Restore(); rerr != nil && err == nil {
			err = &TerminalError{Op: "restore", Err: rerr}
		}
	}()
	log.Info("console started")

	done := make(chan struct{})
	defer close(done)
	keys := make(chan key, 16)
	readErr := make(chan error, 1)
	go func() {
		readErr <- readKeys(c.term, keys, done)
		close(keys)
	}()

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()
	if err := c.draw(); err != nil {
		return err
	}
	for {
		select {
		case k, ok := <-keys:
			if !ok {
				return &TerminalError{Op: "read", Err: <-readErr}
			}
			if c.handleKey(ctx, k) {
				log.Info("console stopped")
				return nil
			}
		case id := <-c.member:
			c.memberID = id
			c.member = nil
		case <-ticker.C:
		}
		if err := c.draw(); err != nil {
			return err
		}
	}
}

// handleKey applies one key and reports whether the console should quit.
func (c *Console) handleKey(ctx context.Context, k key) bool {
	if k.kind == keyTab {
		if c.focus == focusRepl {
			c.focus = focusSelector
		} else {
			c.focus = focusRepl
		}
		logx.Command(ctx).Info("Switched command focus to " + c.focus.String())
		return false
	}
	if handle, ok := navTable[navKey{focus: c.focus, kind: k.kind, shift: k.shift}]; ok {
		handle(c)
		return false
	}
	if c.focus == focusSelector {
		c.selector.handleKey(k)
		return false
	}
	switch k.kind {
	case keyRune:
		c.input.Insert(k.r)
	case keyBackspace:
		c.input.Backspace()
	case keyDelete:
		c.input.Delete()
	case keyLeft:
		c.input.MoveLeft()
	case keyRight:
		c.input.MoveRight()
	case keyHome, keyCtrlA:
		c.input.MoveStart()
	case keyEnd, keyCtrlE:
		c.input.MoveEnd()
	case keyCtrlC, keyCtrlU:
		c.input.KillLine()
	case keyPageUp:
		c.output.ScrollUp()
	case keyPageDown:
		c.output.ScrollDown()
	case keyEnter:
		line := c.input.Submit()
		switch c.dispatcher.Submit(ctx, line) {
		case command.SignalQuit:
			return true
		case command.SignalClear:
			c.input.Clear()
			c.output.Clear()
		}
	}
	return false
}

// collect moves this session's Output records from the sink into the Output panel.
func (c *Console) collect() {
	records, next := c.opts.Sink.Since(c.seq)
	c.seq = next
	for _, rec := range records {
		if rec.Target == logx.OutputTarget && rec.Session == c.opts.SessionID {
			c.output.Append(rec.Message)
		}
	}
}

func (c *Console) draw() error {
	c.collect()
	width, height, err := c.term.Size()
	if err != nil {
		return &TerminalError{Op: "size", Err: err}
	}
	lines, row, col := c.frame(width, height)
	if err := c.screen.Render(lines, row, col); err != nil {
		return &TerminalError{Op: "write", Err: err}
	}
	return nil
}
