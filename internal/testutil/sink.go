package testutil

import (
	"fmt"
	"strings"
)

// RecordingSink captures display calls. It satisfies stream.Sink.
type RecordingSink struct {
	Tty    bool
	Events []string

	visible  strings.Builder
	thinking strings.Builder
	raw      strings.Builder
}

func (r *RecordingSink) Interactive() bool { return r.Tty }

func (r *RecordingSink) ShowIndicator(frame, message string) {
	r.Events = append(r.Events, fmt.Sprintf("indicator:%s %s", frame, message))
}

func (r *RecordingSink) ClearIndicator() { r.Events = append(r.Events, "clear") }

func (r *RecordingSink) Label() { r.Events = append(r.Events, "label") }

func (r *RecordingSink) Visible(ch string) {
	r.visible.WriteString(ch)
	r.Events = append(r.Events, "visible:"+ch)
}

func (r *RecordingSink) ThinkingIndent() { r.Events = append(r.Events, "indent") }

func (r *RecordingSink) Thinking(ch string) {
	r.thinking.WriteString(ch)
	r.Events = append(r.Events, "thinking:"+ch)
}

func (r *RecordingSink) Newline() { r.Events = append(r.Events, "newline") }

func (r *RecordingSink) Raw(s string) {
	r.raw.WriteString(s)
	r.Events = append(r.Events, "raw:"+s)
}

// VisibleText is everything printed as visible output.
func (r *RecordingSink) VisibleText() string { return r.visible.String() }

// ThinkingText is everything printed as thinking output.
func (r *RecordingSink) ThinkingText() string { return r.thinking.String() }

// RawText is everything echoed raw.
func (r *RecordingSink) RawText() string { return r.raw.String() }

// Count returns how many events start with prefix.
func (r *RecordingSink) Count(prefix string) int {
	n := 0
	for _, e := range r.Events {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}
