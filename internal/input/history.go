// Package input reads chat lines from the user, with file-backed history.
package input

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// History is the list of previous chat inputs, oldest first. The file format
// is prompt_toolkit's FileHistory: a "# timestamp" line then "+"-prefixed
// lines per entry.
type History struct {
	path    string
	entries []string
	now     func() time.Time
}

// LoadHistory reads the history file at path. A missing file is an empty
// history.
func LoadHistory(path string) (*History, error) {
	h := &History{path: path, now: time.Now}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return h, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	var current []string
	flush := func() {
		if len(current) > 0 {
			h.entries = append(h.entries, strings.Join(current, "\n"))
			current = nil
		}
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "+"):
			current = append(current, line[1:])
		default:
			flush()
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return h, nil
}

// Entries returns the inputs, oldest first.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// Recent returns up to n distinct inputs, most recent first.
func (h *History) Recent(n int) []string {
	seen := make(map[string]bool)
	var out []string
	for i := len(h.entries) - 1; i >= 0 && len(out) < n; i-- {
		e := h.entries[i]
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// Add records an input and appends it to the history file. Blank input is
// ignored.
func (h *History) Add(entry string) error {
	if strings.TrimSpace(entry) == "" {
		return nil
	}
	h.entries = append(h.entries, entry)
	if h.path == "" {
		return nil
	}

	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "\n# %s\n", h.now().Format("2006-01-02 15:04:05.000000"))
	for _, line := range strings.Split(entry, "\n") {
		b.WriteString("+" + line + "\n")
	}
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}
