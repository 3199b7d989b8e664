// Package cli is an apex/log handler for the terminal.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/fatih/color"
	colorable "github.com/mattn/go-colorable"
)

// Default handler outputting to stderr.
var Default = New(os.Stderr)

var bold = color.New(color.Bold)

// levelStyle is how we render a level's marker.
type levelStyle struct {
	color  *color.Color
	marker string
}

var levelStyles = map[log.Level]levelStyle{
	log.DebugLevel: {color.New(color.FgWhite), "·"},
	log.InfoLevel:  {color.New(color.FgBlue), "•"},
	log.WarnLevel:  {color.New(color.FgYellow), "!"},
	log.ErrorLevel: {color.New(color.FgRed), "⨯"},
	log.FatalLevel: {color.New(color.FgRed, color.Bold), "⨯"},
}

// Handler renders apex/log entries for a human reading a terminal.
type Handler struct {
	// Writer is where we write.
	Writer io.Writer

	// Padding is the indentation of the level marker.
	Padding int

	mu sync.Mutex
}

// New returns a Handler writing to w. When w is a file, we wrap
// it so that colors also work on Windows consoles.
func New(w io.Writer) *Handler {
	if f, ok := w.(*os.File); ok {
		w = colorable.NewColorable(f)
	}
	return &Handler{Writer: w, Padding: 3}
}

// minBoxWidth is the narrowest box we draw.
const minBoxWidth = 24

// drawBox writes lines inside a box sized to the widest line.
func drawBox(w io.Writer, lines []string) error {
	width := minBoxWidth
	for _, line := range lines {
		width = max(width, EscapeAwareRuneCountInString(line))
	}
	var b strings.Builder
	b.WriteString("┏" + strings.Repeat("━", width+2) + "┓\n")
	for _, line := range lines {
		b.WriteString("┃ " + RightPad(line, width) + " ┃\n")
	}
	b.WriteString("┗" + strings.Repeat("━", width+2) + "┛\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func logSectionTitle(w io.Writer, f log.Fields) error {
	title, _ := f.Get("title").(string)
	return drawBox(w, []string{bold.Sprint(title)})
}

// logTable prints each field, except type, on its own row with
// the values aligned in a single column.
func logTable(w io.Writer, f log.Fields) error {
	keyColor := color.New(color.FgBlue)
	var names []string
	keyWidth := 0
	for _, name := range f.Names() {
		if name == "type" {
			continue
		}
		names = append(names, name)
		keyWidth = max(keyWidth, len(name))
	}
	lines := make([]string, 0, len(names))
	for _, name := range names {
		key := keyColor.Sprint(RightPad(name+":", keyWidth+1))
		lines = append(lines, fmt.Sprintf("%s %v", key, f.Get(name)))
	}
	return drawBox(w, lines)
}

// TypedLog is used for handling special "typed" logs to the CLI
func (h *Handler) TypedLog(t string, e *log.Entry) error {
	switch t {
	case "table":
		return logTable(h.Writer, e.Fields)
	case "section_title":
		return logSectionTitle(h.Writer, e.Fields)
	default:
		return h.DefaultLog(e)
	}
}

// DefaultLog prints the message followed by the fields, skipping
// the ones that only drive the rendering.
func (h *Handler) DefaultLog(e *log.Entry) error {
	style, ok := levelStyles[e.Level]
	if !ok {
		style = levelStyles[log.InfoLevel]
	}
	var b strings.Builder
	b.WriteString(style.color.Sprintf("%s %-25s", bold.Sprintf("%*s", h.Padding+1, style.marker), e.Message))
	for _, name := range e.Fields.Names() {
		if name == "source" || name == "type" {
			continue
		}
		fmt.Fprintf(&b, " %s=%v", style.color.Sprint(name), e.Fields.Get(name))
	}
	b.WriteString("\n")
	_, err := io.WriteString(h.Writer, b.String())
	return err
}

// HandleLog implements log.Handler.
func (h *Handler) HandleLog(e *log.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, isTyped := e.Fields["type"].(string)
	if isTyped {
		return h.TypedLog(t, e)
	}

	return h.DefaultLog(e)
}
