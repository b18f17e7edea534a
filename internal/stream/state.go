// Package stream interprets a live generation stream: it separates thinking,
// tool-call and visible text, drives the terminal indicator and collects the
// timing counters used for generation statistics.
package stream

import (
	"strings"
	"time"
)

// Region is the parser's current classification of incoming characters.
type Region int

const (
	RegionNormal Region = iota
	RegionThinking
	RegionToolCall
)

func (r Region) String() string {
	switch r {
	case RegionThinking:
		return "thinking"
	case RegionToolCall:
		return "tool_call"
	default:
		return "normal"
	}
}

// State is owned by a single parsing pass. Only the buffer of the active
// region is ever non-empty.
type State struct {
	Region Region

	ThinkingBuf strings.Builder
	ToolCallBuf strings.Builder
	ToolName    string

	IndicatorIndex   int
	IndicatorUpdated time.Time
	IndicatorShown   bool

	LabelPrinted   bool
	VisiblePrinted bool

	thinkingLineStarted bool
	firstThinkingChar   bool

	Response   strings.Builder
	Start      time.Time
	FirstToken time.Time
	Fragments  int
}

// NewState creates a state whose clock starts at start.
func NewState(start time.Time) *State {
	return &State{Start: start}
}
