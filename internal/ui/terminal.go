package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ThinkingIndent prefixes every rendered line of model reasoning.
const ThinkingIndent = "        ∘ "

// AssistantLabel is printed before the first visible character of a reply.
const AssistantLabel = "Assistant"

// IsTerminal reports whether stream is a file attached to a terminal. It
// accepts readers and writers.
func IsTerminal(stream any) bool {
	f, ok := stream.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Terminal writes streamed model output to a terminal. It implements
// stream.Sink. Indicators are only drawn when the output is a terminal.
type Terminal struct {
	out         io.Writer
	styles      *Styles
	interactive bool

	// width of the indicator currently on screen
	indicatorWidth int
}

// NewTerminal creates a terminal sink for out using the current theme.
func NewTerminal(out io.Writer) *Terminal {
	return NewTerminalWithStyles(out, NewStyles(out), IsTerminal(out))
}

// NewTerminalWithStyles creates a terminal sink with explicit styles and
// interactivity, mostly for tests.
func NewTerminalWithStyles(out io.Writer, styles *Styles, interactive bool) *Terminal {
	return &Terminal{out: out, styles: styles, interactive: interactive}
}

func (t *Terminal) Interactive() bool {
	return t.interactive
}

func (t *Terminal) ShowIndicator(frame, message string) {
	width := ansi.StringWidth(frame + " " + message)
	if width < t.indicatorWidth {
		t.ClearIndicator()
	}
	fmt.Fprint(t.out, "\r"+t.styles.Spinner.Render(frame)+" "+message)
	t.indicatorWidth = width
}

func (t *Terminal) ClearIndicator() {
	width := t.indicatorWidth
	if width == 0 {
		width = 80
	}
	fmt.Fprint(t.out, "\r"+strings.Repeat(" ", width)+"\r")
	t.indicatorWidth = 0
}

func (t *Terminal) Label() {
	fmt.Fprint(t.out, t.styles.Label.Render(AssistantLabel)+": ")
}

func (t *Terminal) Visible(ch string) {
	fmt.Fprint(t.out, ch)
}

func (t *Terminal) ThinkingIndent() {
	fmt.Fprint(t.out, ThinkingIndent)
}

func (t *Terminal) Thinking(ch string) {
	fmt.Fprint(t.out, t.styles.Thinking.Render(ch))
}

func (t *Terminal) Newline() {
	fmt.Fprintln(t.out)
}

func (t *Terminal) Raw(s string) {
	fmt.Fprint(t.out, s)
}

// ClearScreen clears the terminal and homes the cursor. It does nothing when
// out is not a terminal.
func ClearScreen(out io.Writer) {
	if !IsTerminal(out) {
		return
	}
	o := termenv.NewOutput(out)
	o.ClearScreen()
	o.MoveCursor(1, 1)
}
