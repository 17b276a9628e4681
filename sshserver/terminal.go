package sshserver

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	gliderssh "github.com/gliderlabs/ssh"
	"github.com/muesli/termenv"
)

const (
	enterAltScreen = "\x1b[?1049h\x1b[H\x1b[2J"
	exitAltScreen  = "\x1b[?1049l\x1b[?25h"
)

// sessionTerminal adapts an SSH session with a pty to console.Terminal.
// The client's pty is already raw, so Enter and Restore only switch screens.
type sessionTerminal struct {
	gliderssh.Session
	renderer *lipgloss.Renderer

	mu      sync.Mutex
	width   int
	height  int
	entered bool
}

func newSessionTerminal(sess gliderssh.Session, pty gliderssh.Pty, winCh <-chan gliderssh.Window) *sessionTerminal {
	r := lipgloss.NewRenderer(sess)
	r.SetColorProfile(colorProfile(pty.Term, sess.Environ()))
	t := &sessionTerminal{Session: sess, renderer: r}
	t.resize(pty.Window)
	go func() {
		for win := range winCh {
			t.resize(win)
		}
	}()
	return t
}

func (t *sessionTerminal) resize(win gliderssh.Window) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.width, t.height = win.Width, win.Height
	if t.width <= 0 {
		t.width = 80
	}
	if t.height <= 0 {
		t.height = 24
	}
}

func (t *sessionTerminal) Size() (int, int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width, t.height, nil
}

func (t *sessionTerminal) Enter() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entered {
		return nil
	}
	if _, err := t.Session.Write([]byte(enterAltScreen)); err != nil {
		return err
	}
	t.entered = true
	return nil
}

func (t *sessionTerminal) Restore() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.entered {
		return nil
	}
	t.entered = false
	_, err := t.Session.Write([]byte(exitAltScreen))
	return err
}

func (t *sessionTerminal) Renderer() *lipgloss.Renderer { return t.renderer }

// colorProfile picks the richest profile the client advertises.
func colorProfile(termName string, environ []string) termenv.Profile {
	for _, kv := range environ {
		if kv == "COLORTERM=truecolor" || kv == "COLORTERM=24bit" {
			return termenv.TrueColor
		}
	}
	termName = strings.ToLower(termName)
	switch {
	case termName == "" || termName == "dumb":
		return termenv.Ascii
	case strings.Contains(termName, "256color"):
		return termenv.ANSI256
	case strings.Contains(termName, "truecolor") || strings.Contains(termName, "direct"):
		return termenv.TrueColor
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return termenv.Ascii
	}
	return termenv.ANSI
}
