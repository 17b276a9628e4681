package console

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Terminal is the device a console draws on and reads keys from.
type Terminal interface {
	io.Reader
	io.Writer
	// Size returns the current width and height in cells.
	Size() (width, height int, err error)
	// Enter switches to raw input and the alternate screen.
	Enter() error
	// Restore undoes Enter. It must be safe to call more than once.
	Restore() error
	// Renderer styles output for this terminal's color profile.
	Renderer() *lipgloss.Renderer
}

// TerminalError reports a failure of the terminal itself. It ends the console loop.
type TerminalError struct {
	Op  string
	Err error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("terminal %s: %v", e.Op, e.Err)
}

func (e *TerminalError) Unwrap() error {
	return e.Err
}

// TTY is the local controlling terminal.
type TTY struct {
	in       *os.File
	out      *os.File
	renderer *lipgloss.Renderer

	mu    sync.Mutex
	state *term.State
}

// NewTTY wraps in and out; in must be a terminal for Enter to succeed.
func NewTTY(in, out *os.File) *TTY {
	return &TTY{in: in, out: out, renderer: lipgloss.NewRenderer(out)}
}

func (t *TTY) Read(p []byte) (int, error) { return t.in.Read(p) }

func (t *TTY) Write(p []byte) (int, error) { return t.out.Write(p) }

func (t *TTY) Renderer() *lipgloss.Renderer { return t.renderer }

// Size reports the size of the output terminal.
func (t *TTY) Size() (int, int, error) {
	return term.GetSize(int(t.out.Fd()))
}

// Enter puts the input into raw mode and switches to the alternate screen.
func (t *TTY) Enter() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != nil {
		return nil
	}
	state, err := term.MakeRaw(int(t.in.Fd()))
	if err != nil {
		return fmt.Errorf("make raw: %w", err)
	}
	t.state = state
	if _, err := io.WriteString(t.out, enterAltScreen); err != nil {
		_ = term.Restore(int(t.in.Fd()), state)
		t.state = nil
		return fmt.Errorf("enter alternate screen: %w", err)
	}
	return nil
}

// Restore leaves the alternate screen, shows the cursor and restores the
// saved terminal mode.
func (t *TTY) Restore() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == nil {
		return nil
	}
	_, werr := io.WriteString(t.out, exitAltScreen)
	err := term.Restore(int(t.in.Fd()), t.state)
	t.state = nil
	if err != nil {
		return fmt.Errorf("restore terminal: %w", err)
	}
	if werr != nil {
		return fmt.Errorf("leave alternate screen: %w", werr)
	}
	return nil
}

// IsRaw reports whether Enter is in effect.
func (t *TTY) IsRaw() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state != nil
}
