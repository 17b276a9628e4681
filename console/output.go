package console

import "strings"

// DefaultOutputMaxLines bounds the scrollback when no limit is configured.
const DefaultOutputMaxLines = 10000

// scrollReserve is the number of panel rows taken by borders and padding.
const scrollReserve = 3

// OutputState is the Output panel scrollback. The cursor selects the line
// the view follows; the scroll offset is always derived from it.
type OutputState struct {
	lines    []string
	cursor   int
	width    int
	maxLines int
}

// NewOutputState returns an empty scrollback holding at most maxLines lines.
func NewOutputState(maxLines int) *OutputState {
	if maxLines <= 0 {
		maxLines = DefaultOutputMaxLines
	}
	return &OutputState{maxLines: maxLines}
}

// Append adds text as one line per newline-separated part followed by a
// blank separator line, then moves the cursor to the end. A trailing newline
// yields an empty part of its own.
func (o *OutputState) Append(text string) {
	o.lines = append(o.lines, strings.Split(text, "\n")...)
	o.lines = append(o.lines, "")
	if len(o.lines) > o.maxLines {
		o.lines = append([]string(nil), o.lines[len(o.lines)-o.maxLines:]...)
	}
	o.cursor = len(o.lines)
}

func (o *OutputState) ScrollUp() {
	if o.cursor > 0 {
		o.cursor--
	}
}

func (o *OutputState) ScrollDown() {
	if o.cursor < len(o.lines) {
		o.cursor++
	}
}

// Clear drops all lines.
func (o *OutputState) Clear() {
	o.lines = nil
	o.cursor = 0
}

func (o *OutputState) Lines() []string { return o.lines }

func (o *OutputState) Len() int { return len(o.lines) }

func (o *OutputState) Cursor() int { return o.cursor }

func (o *OutputState) Width() int { return o.width }

func (o *OutputState) SetWidth(width int) { o.width = width }

// RenderScroll returns the index of the first line shown in a panel of
// viewportHeight rows.
func (o *OutputState) RenderScroll(viewportHeight int) int {
	if len(o.lines) >= viewportHeight-scrollReserve && o.cursor >= viewportHeight {
		return o.cursor + 1 - viewportHeight
	}
	return 0
}

// View returns the lines visible in a panel of viewportHeight rows whose
// body holds rows lines.
func (o *OutputState) View(viewportHeight, rows int) []string {
	start := o.RenderScroll(viewportHeight)
	if start > len(o.lines) {
		start = len(o.lines)
	}
	end := start + rows
	if end > len(o.lines) {
		end = len(o.lines)
	}
	if rows <= 0 {
		return nil
	}
	return o.lines[start:end]
}
