package panels

import (
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
)

const logViewLines = 500

// LogView shows the tail of a log stream. It is a logrus hook, so it can be
// attached to the logger given to a long-running job.
type LogView struct {
	mu    sync.Mutex
	lines []string

	grid   *widget.TextGrid
	scroll *container.Scroll
}

// NewLogView creates an empty log view.
func NewLogView() *LogView {
	v := &LogView{grid: widget.NewTextGrid()}
	v.scroll = container.NewVScroll(v.grid)
	v.scroll.SetMinSize(fyne.NewSize(0, 160))
	return v
}

// Container returns the view for embedding in layouts.
func (v *LogView) Container() fyne.CanvasObject {
	return v.scroll
}

// Levels implements logrus.Hook.
func (v *LogView) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (v *LogView) Fire(e *logrus.Entry) error {
	line := e.Message
	if e.Level <= logrus.WarnLevel {
		line = strings.ToUpper(e.Level.String()) + ": " + line
	}
	v.Append(line)
	return nil
}

// Append adds a line, dropping the oldest past the limit.
func (v *LogView) Append(line string) {
	v.mu.Lock()
	v.lines = append(v.lines, line)
	if len(v.lines) > logViewLines {
		v.lines = v.lines[len(v.lines)-logViewLines:]
	}
	text := strings.Join(v.lines, "\n")
	v.mu.Unlock()

	v.grid.SetText(text)
	v.scroll.ScrollToBottom()
}

// Clear empties the view.
func (v *LogView) Clear() {
	v.mu.Lock()
	v.lines = nil
	v.mu.Unlock()
	v.grid.SetText("")
}

// Text returns the visible log text.
func (v *LogView) Text() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return strings.Join(v.lines, "\n")
}
