package console

import "github.com/mattn/go-runewidth"

// InputState is the REPL line editor: the current line, its cursor, the
// submitted history and how many extra rows the line wraps onto.
type InputState struct {
	line          []rune
	cursor        int
	history       []string
	historyCursor int
	multiline     int
	width         int
}

// NewInputState returns an empty editor wrapping at width columns.
func NewInputState(width int) *InputState {
	s := &InputState{}
	s.SetWidth(width)
	return s
}

// Line returns the current line.
func (s *InputState) Line() string { return string(s.line) }

// Cursor returns the cursor index in runes.
func (s *InputState) Cursor() int { return s.cursor }

// History returns the submitted lines, oldest first.
func (s *InputState) History() []string { return append([]string(nil), s.history...) }

// HistoryCursor returns the history position; len(History()) means the live line.
func (s *InputState) HistoryCursor() int { return s.historyCursor }

// Multiline returns the number of rows beyond the first that the line occupies.
func (s *InputState) Multiline() int { return s.multiline }

// Width returns the wrap width.
func (s *InputState) Width() int { return s.width }

// SetWidth changes the wrap width and recomputes the row offset.
func (s *InputState) SetWidth(width int) {
	if width < 1 {
		width = 1
	}
	s.width = width
	s.reflow()
}

// Insert puts r at the cursor and advances it.
func (s *InputState) Insert(r rune) {
	s.line = append(s.line, 0)
	copy(s.line[s.cursor+1:], s.line[s.cursor:])
	s.line[s.cursor] = r
	s.cursor++
	s.reflow()
}

// Backspace removes the rune before the cursor.
func (s *InputState) Backspace() {
	if s.cursor == 0 {
		return
	}
	s.line = append(s.line[:s.cursor-1], s.line[s.cursor:]...)
	s.cursor--
	s.reflow()
}

// Delete removes the rune under the cursor.
func (s *InputState) Delete() {
	if s.cursor >= len(s.line) {
		return
	}
	s.line = append(s.line[:s.cursor], s.line[s.cursor+1:]...)
	s.reflow()
}

func (s *InputState) MoveLeft() {
	if s.cursor > 0 {
		s.cursor--
	}
}

func (s *InputState) MoveRight() {
	if s.cursor < len(s.line) {
		s.cursor++
	}
}

func (s *InputState) MoveStart() { s.cursor = 0 }

func (s *InputState) MoveEnd() { s.cursor = len(s.line) }

// KillLine empties the current line without touching history.
func (s *InputState) KillLine() {
	s.setLine("")
}

// HistoryPrev recalls the next older entry. It is a no-op at the oldest entry.
func (s *InputState) HistoryPrev() {
	if s.historyCursor == 0 {
		return
	}
	s.historyCursor--
	s.setLine(s.history[s.historyCursor])
}

// HistoryNext recalls the next newer entry. Stepping past the newest entry
// clears the line.
func (s *InputState) HistoryNext() {
	if s.historyCursor < len(s.history)-1 {
		s.historyCursor++
		s.setLine(s.history[s.historyCursor])
		return
	}
	s.historyCursor = len(s.history)
	s.setLine("")
}

// Submit returns the line, commits it to history and empties the editor.
func (s *InputState) Submit() string {
	line := string(s.line)
	s.history = append(s.history, line)
	s.historyCursor = len(s.history)
	s.setLine("")
	return line
}

// Clear resets the line and the history. The wrap width is kept.
func (s *InputState) Clear() {
	s.line = nil
	s.cursor = 0
	s.history = nil
	s.historyCursor = 0
	s.multiline = 0
}

// CursorLocation maps the cursor to a (column, row) cell for a region width
// columns wide. Wide runes take two columns and never split across rows.
func (s *InputState) CursorLocation(width int) (col, row int) {
	return location(s.line[:s.cursor], width)
}

func (s *InputState) setLine(value string) {
	s.line = []rune(value)
	s.cursor = len(s.line)
	s.reflow()
}

func (s *InputState) reflow() {
	_, s.multiline = location(s.line, s.width)
}

func location(runes []rune, width int) (col, row int) {
	if width < 1 {
		width = 1
	}
	for _, r := range runes {
		w := runewidth.RuneWidth(r)
		if col+w > width && col > 0 {
			row++
			col = 0
		}
		col += w
		if col >= width {
			col = 0
			row++
		}
	}
	return col, row
}

// wrapRows splits runes into display rows using the same rule as location.
func wrapRows(runes []rune, width int) []string {
	if width < 1 {
		width = 1
	}
	rows := []string{""}
	col := 0
	for _, r := range runes {
		w := runewidth.RuneWidth(r)
		if col+w > width && col > 0 {
			rows = append(rows, "")
			col = 0
		}
		rows[len(rows)-1] += string(r)
		col += w
		if col >= width {
			rows = append(rows, "")
			col = 0
		}
	}
	return rows
}
