package stream

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// IndicatorInterval is the minimum time between indicator redraws.
const IndicatorInterval = 100 * time.Millisecond

// Frames are the indicator glyphs, cycled in order.
var Frames = spinner.MiniDot.Frames

const (
	msgThinking    = "Thinking..."
	msgCallingTool = "Calling tool..."
)

// Display drives the indicator for one generation. It holds no global state;
// a new Display is made for every sub-turn.
type Display struct {
	sink Sink
}

// NewDisplay wraps a sink.
func NewDisplay(sink Sink) *Display {
	return &Display{sink: sink}
}

// Message returns the indicator text for the state's current region.
func Message(st *State) string {
	if st.Region == RegionToolCall {
		if st.ToolName != "" {
			return "Calling: " + st.ToolName + "..."
		}
		return msgCallingTool
	}
	return msgThinking
}

// Show draws the indicator with the current frame if it isn't already shown.
func (d *Display) Show(st *State, message string) {
	if st.IndicatorShown || !d.sink.Interactive() {
		return
	}
	d.sink.ShowIndicator(Frames[st.IndicatorIndex], message)
	st.IndicatorShown = true
}

// Relabel redraws a visible indicator with a new message, keeping the frame.
func (d *Display) Relabel(st *State, message string) {
	if !st.IndicatorShown || !d.sink.Interactive() {
		return
	}
	d.sink.ShowIndicator(Frames[st.IndicatorIndex], message)
}

// Tick advances the indicator when more than IndicatorInterval has passed.
func (d *Display) Tick(st *State, now time.Time) {
	if !d.sink.Interactive() {
		return
	}
	if now.Sub(st.IndicatorUpdated) <= IndicatorInterval {
		return
	}
	st.IndicatorIndex = (st.IndicatorIndex + 1) % len(Frames)
	d.sink.ShowIndicator(Frames[st.IndicatorIndex], Message(st))
	st.IndicatorUpdated = now
	st.IndicatorShown = true
}

// Clear erases the indicator if it is shown.
func (d *Display) Clear(st *State) {
	if !st.IndicatorShown {
		return
	}
	if d.sink.Interactive() {
		d.sink.ClearIndicator()
	}
	st.IndicatorShown = false
}
