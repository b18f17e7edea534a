package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"
)

// ErrInterrupted is returned when the user aborts input (Ctrl+C).
var ErrInterrupted = errors.New("input interrupted")

// Prompt is shown before every chat input.
const Prompt = "You: "

// Reader reads one line of chat input. It returns io.EOF when input ends.
type Reader interface {
	ReadLine(ctx context.Context) (string, error)
}

// TTYReader reads input with an inline huh field that completes commands
// and earlier inputs as the user types.
type TTYReader struct {
	// Echo receives the prompt and accepted line once the field closes.
	Echo io.Writer
	// PromptStyle renders the prompt text.
	PromptStyle func(string) string
	// Suggestions lists completion candidates for the next line.
	Suggestions func() []string
}

func (r *TTYReader) ReadLine(ctx context.Context) (string, error) {
	var line string
	var suggestions []string
	if r.Suggestions != nil {
		suggestions = r.Suggestions()
	}

	field := huh.NewInput().
		Prompt(Prompt).
		Inline(true).
		Suggestions(suggestions).
		Value(&line)
	form := huh.NewForm(huh.NewGroup(field)).
		WithShowHelp(false).
		WithTheme(huh.ThemeBase16())

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) || ctx.Err() != nil {
			return "", ErrInterrupted
		}
		return "", err
	}

	if r.Echo != nil {
		p := Prompt
		if r.PromptStyle != nil {
			p = r.PromptStyle(Prompt)
		}
		fmt.Fprintln(r.Echo, p+line)
	}
	return line, nil
}

type lineResult struct {
	line string
	err  error
}

// LineReader reads newline-terminated input from a pipe or file.
type LineReader struct {
	out   io.Writer
	lines chan lineResult
}

// NewLineReader starts reading lines from in, printing the prompt to out
// before each line.
func NewLineReader(in io.Reader, out io.Writer) *LineReader {
	r := &LineReader{out: out, lines: make(chan lineResult)}
	go r.scan(in)
	return r
}

func (r *LineReader) scan(in io.Reader) {
	defer close(r.lines)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		r.lines <- lineResult{line: scanner.Text()}
	}
	if err := scanner.Err(); err != nil {
		r.lines <- lineResult{err: err}
	}
}

func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	fmt.Fprint(r.out, Prompt)
	select {
	case <-ctx.Done():
		return "", ErrInterrupted
	case res, ok := <-r.lines:
		if !ok {
			return "", io.EOF
		}
		return res.line, res.err
	}
}
