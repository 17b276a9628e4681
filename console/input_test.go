package console

import (
	"strings"
	"testing"
)

func typed(s *InputState, text string) {
	for _, r := range text {
		s.Insert(r)
	}
}

func TestInputInsertAtEveryPosition(t *testing.T) {
	const line = "get hosts"
	for i := 0; i <= len(line); i++ {
		s := NewInputState(80)
		typed(s, line)
		s.MoveStart()
		for j := 0; j < i; j++ {
			s.MoveRight()
		}
		s.Insert('x')
		if got := len([]rune(s.Line())); got != len(line)+1 {
			t.Fatalf("insert at %d: length %d", i, got)
		}
		if s.Cursor() != i+1 {
			t.Fatalf("insert at %d: cursor %d", i, s.Cursor())
		}
		if want := line[:i] + "x" + line[i:]; s.Line() != want {
			t.Fatalf("insert at %d: got %q, want %q", i, s.Line(), want)
		}
	}
}

func TestInputMovesStayInBounds(t *testing.T) {
	s := NewInputState(80)
	s.MoveLeft()
	s.MoveRight()
	if s.Cursor() != 0 {
		t.Fatalf("expected cursor 0 on empty line, got %d", s.Cursor())
	}
	typed(s, "ab")
	for i := 0; i < 5; i++ {
		s.MoveRight()
	}
	if s.Cursor() != 2 {
		t.Fatalf("expected cursor clamped to 2, got %d", s.Cursor())
	}
	for i := 0; i < 5; i++ {
		s.MoveLeft()
	}
	if s.Cursor() != 0 {
		t.Fatalf("expected cursor clamped to 0, got %d", s.Cursor())
	}
	s.Backspace()
	if s.Line() != "ab" {
		t.Fatalf("backspace at 0 changed the line: %q", s.Line())
	}
	s.Delete()
	if s.Line() != "b" || s.Cursor() != 0 {
		t.Fatalf("unexpected delete result %q/%d", s.Line(), s.Cursor())
	}
}

func TestInputSubmitAndHistory(t *testing.T) {
	s := NewInputState(80)
	s.HistoryPrev()
	s.HistoryNext()
	if s.Line() != "" || s.HistoryCursor() != 0 {
		t.Fatalf("navigation on empty history should be a no-op")
	}

	typed(s, "get hosts")
	if got := s.Submit(); got != "get hosts" {
		t.Fatalf("submit returned %q", got)
	}
	typed(s, "get claims")
	s.Submit()
	if s.Line() != "" || s.Cursor() != 0 || s.HistoryCursor() != 2 {
		t.Fatalf("unexpected state after submit: %q %d %d", s.Line(), s.Cursor(), s.HistoryCursor())
	}

	s.HistoryPrev()
	if s.Line() != "get claims" || s.Cursor() != len("get claims") {
		t.Fatalf("expected newest entry, got %q", s.Line())
	}
	s.HistoryPrev()
	s.HistoryPrev()
	if s.Line() != "get hosts" || s.HistoryCursor() != 0 {
		t.Fatalf("expected oldest entry at cursor 0, got %q/%d", s.Line(), s.HistoryCursor())
	}
	s.HistoryNext()
	if s.Line() != "get claims" {
		t.Fatalf("expected newer entry, got %q", s.Line())
	}
	s.HistoryNext()
	if s.Line() != "" || s.HistoryCursor() != 2 {
		t.Fatalf("stepping past newest should clear, got %q/%d", s.Line(), s.HistoryCursor())
	}
	s.HistoryNext()
	if s.Line() != "" || s.HistoryCursor() != 2 {
		t.Fatalf("down at the end should stay cleared")
	}

	s.Submit()
	if h := s.History(); len(h) != 3 || h[2] != "" {
		t.Fatalf("blank submissions are still committed, got %q", h)
	}
}

func TestInputClearKeepsWidth(t *testing.T) {
	s := NewInputState(4)
	typed(s, "abcdefghij")
	s.Submit()
	typed(s, "abcdef")
	s.Clear()
	if s.Line() != "" || s.Cursor() != 0 || len(s.History()) != 0 || s.HistoryCursor() != 0 || s.Multiline() != 0 {
		t.Fatalf("clear did not reset the editor")
	}
	if s.Width() != 4 {
		t.Fatalf("clear changed width to %d", s.Width())
	}
}

func TestCursorLocationSingleWidth(t *testing.T) {
	for _, width := range []int{1, 3, 7, 10} {
		for l := 0; l <= 25; l++ {
			s := NewInputState(width)
			typed(s, strings.Repeat("a", l))
			col, row := s.CursorLocation(width)
			if row != l/width || col != l%width {
				t.Fatalf("width %d len %d: got (%d,%d), want (%d,%d)", width, l, col, row, l%width, l/width)
			}
		}
	}
}

func TestCursorLocationWideRunes(t *testing.T) {
	s := NewInputState(5)
	typed(s, "ab世界")
	// a b 世 fill four columns; 界 does not fit in the last column and moves down whole.
	col, row := s.CursorLocation(5)
	if col != 2 || row != 1 {
		t.Fatalf("got (%d,%d), want (2,1)", col, row)
	}
	if s.Multiline() != 1 {
		t.Fatalf("expected one extra row, got %d", s.Multiline())
	}
	rows := wrapRows([]rune(s.Line()), 5)
	if len(rows) != 2 || rows[0] != "ab世" || rows[1] != "界" {
		t.Fatalf("unexpected rows %q", rows)
	}

	s = NewInputState(4)
	typed(s, "ab世")
	col, row = s.CursorLocation(4)
	if col != 0 || row != 1 {
		t.Fatalf("exact fill should wrap to next row, got (%d,%d)", col, row)
	}
}

func TestInputSetWidthRecomputesMultiline(t *testing.T) {
	s := NewInputState(80)
	typed(s, strings.Repeat("x", 25))
	if s.Multiline() != 0 {
		t.Fatalf("expected single row, got %d", s.Multiline())
	}
	s.SetWidth(10)
	if s.Multiline() != 2 {
		t.Fatalf("expected 2 extra rows at width 10, got %d", s.Multiline())
	}
	s.SetWidth(5)
	if s.Multiline() != 5 {
		t.Fatalf("expected 5 extra rows at width 5, got %d", s.Multiline())
	}
}
