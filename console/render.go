package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/wascc/wcc/internal/logsink"
)

const (
	topShare       = 67
	inputShare     = 40
	minLogRows     = 5
	maxTargetWidth = 28
	minWidth       = 20
	minHeight      = 8
)

type layout struct {
	width, height   int
	top, bottom     int
	inputW, outputW int
}

func computeLayout(width, height int) layout {
	l := layout{width: width, height: height}
	l.top = height * topShare / 100
	l.bottom = height - l.top
	if l.bottom < minLogRows {
		l.bottom = minLogRows
		l.top = height - minLogRows
	}
	l.inputW = width * inputShare / 100
	l.outputW = width - l.inputW
	return l
}

// fit truncates s to width display columns and pads it with spaces.
func fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = ansi.Truncate(s, width, "")
	if pad := width - ansi.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func sanitize(s string) string {
	return strings.ReplaceAll(ansi.Strip(s), "\t", "    ")
}

// box draws body inside a rounded border of exactly width x height cells.
func box(st styles, title string, body []string, width, height int, active bool) []string {
	if width < 2 || height < 2 {
		return nil
	}
	b := lipgloss.RoundedBorder()
	border := st.border
	if active {
		border = st.borderActive
	}
	inner := width - 2
	label := ansi.Truncate(" "+title+" ", inner, "")
	fill := inner - ansi.StringWidth(label)
	lines := make([]string, 0, height)
	lines = append(lines, border.Render(b.TopLeft)+st.title.Render(label)+border.Render(strings.Repeat(b.Top, fill)+b.TopRight))
	for i := 0; i < height-2; i++ {
		content := ""
		if i < len(body) {
			content = body[i]
		}
		lines = append(lines, border.Render(b.Left)+fit(content, inner)+border.Render(b.Right))
	}
	lines = append(lines, border.Render(b.BottomLeft+strings.Repeat(b.Bottom, inner)+b.BottomRight))
	return lines
}

// frame lays out the three panels and returns the caret cell (1-based).
func (c *Console) frame(width, height int) ([]string, int, int) {
	if width < minWidth || height < minHeight {
		return []string{fit("terminal too small", width)}, 1, 1
	}
	l := computeLayout(width, height)

	inputInner := l.inputW - 2
	c.input.SetWidth(inputInner)
	rows := wrapRows(c.input.line, inputInner)
	bodyRows := l.top - 2
	skip := 0
	if len(rows) > bodyRows {
		skip = len(rows) - bodyRows
		rows = rows[skip:]
	}
	inputBox := box(c.styles, c.inputTitle(), rows, l.inputW, l.top, c.focus == focusRepl)
	col, row := c.input.CursorLocation(inputInner)
	cursorRow := row - skip + 2
	cursorCol := col + 2

	c.output.SetWidth(l.outputW - 2)
	view := c.output.View(l.top, l.top-2)
	body := make([]string, len(view))
	for i, line := range view {
		body[i] = sanitize(line)
	}
	outputBox := box(c.styles, "Output", body, l.outputW, l.top, false)

	top := lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(inputBox, "\n"), strings.Join(outputBox, "\n"))
	logBox := box(c.styles, c.selectorTitle(), c.selectorBody(width-2, l.bottom-2), width, l.bottom, c.focus == focusSelector)
	frame := lipgloss.JoinVertical(lipgloss.Left, top, strings.Join(logBox, "\n"))
	return strings.Split(frame, "\n"), cursorRow, cursorCol
}

func (c *Console) inputTitle() string {
	title := "REPL"
	if c.memberID != "" {
		title += " | host " + string(c.memberID)
	}
	if n := c.dispatcher.Pending(); n > 0 {
		title += fmt.Sprintf(" | %d pending", n)
	}
	return title
}

func (c *Console) selectorTitle() string {
	title := "Logs"
	if c.focus == focusSelector {
		title += " [focused]"
	}
	if target := c.selector.Selected(); c.selector.focusTarget && target != "" {
		title += " | " + target
	}
	if c.selector.offset > 0 {
		title += fmt.Sprintf(" | -%d", c.selector.offset)
	}
	return title
}

func (c *Console) selectorBody(width, rows int) []string {
	if rows <= 0 {
		return nil
	}
	records := c.selector.Visible(rows)
	recWidth := width
	var list []string
	listWidth := 0
	if !c.selector.hideList {
		listWidth = width / 3
		if listWidth > maxTargetWidth {
			listWidth = maxTargetWidth
		}
		recWidth = width - listWidth - 1
		selected := c.selector.Selected()
		for _, target := range c.selector.Targets() {
			entry := fmt.Sprintf("[%s/%s] %s", c.selector.DisplayLevel(target).Letter(), c.selector.sink.Level(target).Letter(), target)
			if target == selected {
				entry = c.styles.selected.Render("> " + ansi.Truncate(entry, listWidth-2, ""))
			} else {
				entry = "  " + entry
			}
			list = append(list, entry)
		}
	}
	sep := c.styles.border.Render(lipgloss.RoundedBorder().Left)
	body := make([]string, rows)
	for i := 0; i < rows; i++ {
		rec := ""
		if i < len(records) {
			rec = c.recordLine(records[i])
		}
		if listWidth == 0 {
			body[i] = fit(rec, recWidth)
			continue
		}
		entry := ""
		if i < len(list) {
			entry = list[i]
		}
		body[i] = fit(entry, listWidth) + sep + fit(rec, recWidth)
	}
	return body
}

func (c *Console) recordLine(rec logsink.Record) string {
	return c.styles.meta.Render(rec.Time.Format("15:04:05")) + " " +
		c.styles.level(rec.Level).Render(rec.Level.Letter()) + " " +
		c.styles.meta.Render(rec.Target) + " " + sanitize(rec.Text())
}
