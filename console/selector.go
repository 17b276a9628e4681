package console

import (
	"github.com/wascc/wcc/internal/logsink"
	"github.com/wascc/wcc/internal/logx"
)

// Selector is the log panel: a target list with per-target display levels
// over the shared sink. Records of the Output target never show here.
type Selector struct {
	sink         *logsink.Sink
	display      map[string]logsink.Level
	defaultLevel logsink.Level
	selected     int
	hideList     bool
	focusTarget  bool
	hideOff      bool
	offset       int
	page         int
}

// NewSelector returns a selector showing records up to level by default.
func NewSelector(sink *logsink.Sink, level logsink.Level) *Selector {
	return &Selector{
		sink:         sink,
		display:      make(map[string]logsink.Level),
		defaultLevel: level,
		page:         10,
	}
}

// Targets lists the targets the selector offers.
func (s *Selector) Targets() []string {
	all := s.sink.Targets()
	out := make([]string, 0, len(all))
	for _, target := range all {
		if target == logx.OutputTarget {
			continue
		}
		if s.hideOff && s.DisplayLevel(target) == logsink.LevelOff {
			continue
		}
		out = append(out, target)
	}
	return out
}

// Selected returns the selected target, or "" when there is none.
func (s *Selector) Selected() string {
	targets := s.Targets()
	if len(targets) == 0 {
		return ""
	}
	if s.selected >= len(targets) {
		s.selected = len(targets) - 1
	}
	return targets[s.selected]
}

// DisplayLevel returns the most verbose level shown for target.
func (s *Selector) DisplayLevel(target string) logsink.Level {
	if level, ok := s.display[target]; ok {
		return level
	}
	return s.defaultLevel
}

func (s *Selector) SelectPrev() {
	if s.selected > 0 {
		s.selected--
	}
}

func (s *Selector) SelectNext() {
	if s.selected < len(s.Targets())-1 {
		s.selected++
	}
}

// handleKey applies a key pressed while the selector has focus.
func (s *Selector) handleKey(k key) {
	target := s.Selected()
	switch k.kind {
	case keyLeft:
		if target != "" {
			s.display[target] = s.DisplayLevel(target).Down()
		}
	case keyRight:
		if target != "" {
			s.display[target] = s.DisplayLevel(target).Up()
		}
	case keyPageUp:
		s.offset += s.page
	case keyPageDown:
		s.offset -= s.page
		if s.offset < 0 {
			s.offset = 0
		}
	case keyEsc:
		s.offset = 0
		s.focusTarget = false
	case keyRune:
		switch k.r {
		case '+':
			if target != "" {
				s.sink.SetLevel(target, s.sink.Level(target).Up())
			}
		case '-':
			if target != "" {
				s.sink.SetLevel(target, s.sink.Level(target).Down())
			}
		case 'h':
			s.hideList = !s.hideList
		case 'f':
			s.focusTarget = !s.focusTarget
		case ' ':
			s.hideOff = !s.hideOff
			s.selected = 0
		}
	}
}

// Visible returns at most rows records, newest last, honoring display
// levels, target focus and the page offset.
func (s *Selector) Visible(rows int) []logsink.Record {
	if rows <= 0 {
		return nil
	}
	s.page = rows
	focus := ""
	if s.focusTarget {
		focus = s.Selected()
	}
	var shown []logsink.Record
	for _, rec := range s.sink.Records() {
		if rec.Target == logx.OutputTarget {
			continue
		}
		if focus != "" && rec.Target != focus {
			continue
		}
		if !s.DisplayLevel(rec.Target).Allows(rec.Level) {
			continue
		}
		shown = append(shown, rec)
	}
	maxOffset := len(shown) - rows
	if maxOffset < 0 {
		maxOffset = 0
	}
	if s.offset > maxOffset {
		s.offset = maxOffset
	}
	end := len(shown) - s.offset
	start := end - rows
	if start < 0 {
		start = 0
	}
	return shown[start:end]
}
