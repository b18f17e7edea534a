package stream

// Sink is the display destination for a parsing pass. Implementations decide
// styling; the parser only decides what goes where.
type Sink interface {
	// Interactive reports whether indicator updates should be drawn.
	Interactive() bool
	// ShowIndicator redraws the indicator line in place.
	ShowIndicator(frame, message string)
	// ClearIndicator erases the indicator line.
	ClearIndicator()
	// Label prints the assistant label before the first visible character.
	Label()
	// Visible prints a user-visible character.
	Visible(ch string)
	// ThinkingIndent starts a rendered thinking line.
	ThinkingIndent()
	// Thinking prints a thinking character.
	Thinking(ch string)
	// Newline ends the current line.
	Newline()
	// Raw echoes markup without styling (verbose mode).
	Raw(s string)
}

// Discard is a non-interactive sink that drops everything.
type Discard struct{}

func (Discard) Interactive() bool { return false }
func (Discard) ShowIndicator(_, _ string) {}
func (Discard) ClearIndicator() {}
func (Discard) Label() {}
func (Discard) Visible(string) {}
func (Discard) ThinkingIndent() {}
func (Discard) Thinking(string) {}
func (Discard) Newline() {}
func (Discard) Raw(string) {}
