package console

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/wascc/wcc/internal/logsink"
)

type palette struct {
	Border       lipgloss.Color
	BorderActive lipgloss.Color
	Title        lipgloss.Color
	Meta         lipgloss.Color
	Selected     lipgloss.Color
	Error        lipgloss.Color
	Warn         lipgloss.Color
	Info         lipgloss.Color
	Debug        lipgloss.Color
	Trace        lipgloss.Color
}

var defaultPalette = palette{
	Border:       lipgloss.Color("#3C4FB8"),
	BorderActive: lipgloss.Color("#00E5FF"),
	Title:        lipgloss.Color("#F0F1FF"),
	Meta:         lipgloss.Color("#9AA3B2"),
	Selected:     lipgloss.Color("#FF5BBD"),
	Error:        lipgloss.Color("#FF6B6B"),
	Warn:         lipgloss.Color("#FABD2F"),
	Info:         lipgloss.Color("#70D6FF"),
	Debug:        lipgloss.Color("#9AB6FF"),
	Trace:        lipgloss.Color("#6E88FF"),
}

// styles are bound to one renderer so SSH sessions get their own color profile.
type styles struct {
	border       lipgloss.Style
	borderActive lipgloss.Style
	title        lipgloss.Style
	meta         lipgloss.Style
	selected     lipgloss.Style
	levels       map[logsink.Level]lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	p := defaultPalette
	return styles{
		border:       r.NewStyle().Foreground(p.Border),
		borderActive: r.NewStyle().Foreground(p.BorderActive),
		title:        r.NewStyle().Foreground(p.Title).Bold(true),
		meta:         r.NewStyle().Foreground(p.Meta),
		selected:     r.NewStyle().Foreground(p.Selected).Bold(true),
		levels: map[logsink.Level]lipgloss.Style{
			logsink.LevelError: r.NewStyle().Foreground(p.Error).Bold(true),
			logsink.LevelWarn:  r.NewStyle().Foreground(p.Warn),
			logsink.LevelInfo:  r.NewStyle().Foreground(p.Info),
			logsink.LevelDebug: r.NewStyle().Foreground(p.Debug),
			logsink.LevelTrace: r.NewStyle().Foreground(p.Trace),
		},
	}
}

func (s styles) level(l logsink.Level) lipgloss.Style {
	if st, ok := s.levels[l]; ok {
		return st
	}
	return s.meta
}
