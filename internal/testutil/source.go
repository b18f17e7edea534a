package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/samsaffron/bizarro/internal/llm"
)

// SliceStream replays fragments, then returns Err (or io.EOF).
type SliceStream struct {
	Fragments []string
	Err       error
	Prompt    int
	HasUsage  bool

	pos    int
	closed bool
}

// NewSliceStream creates a stream over fragments.
func NewSliceStream(fragments ...string) *SliceStream {
	return &SliceStream{Fragments: fragments}
}

func (s *SliceStream) Recv() (llm.Fragment, error) {
	if s.pos < len(s.Fragments) {
		f := s.Fragments[s.pos]
		s.pos++
		return llm.Fragment{Text: f}, nil
	}
	if s.Err != nil {
		return llm.Fragment{}, s.Err
	}
	return llm.Fragment{}, io.EOF
}

func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *SliceStream) Closed() bool {
	return s.closed
}

func (s *SliceStream) PromptTokens() (int, bool) {
	return s.Prompt, s.HasUsage
}

// ScriptedSource returns one scripted turn per Generate call.
type ScriptedSource struct {
	Turns [][]string
	// PromptTokens, when non-zero, is reported as server usage.
	PromptTokens int
	// FailAt makes the given 0-based call fail with Err.
	FailAt int
	Err    error

	mu       sync.Mutex
	requests []llm.Request
	streams  []*SliceStream
}

// NewScriptedSource creates a source that replays turns in order.
func NewScriptedSource(turns ...[]string) *ScriptedSource {
	return &ScriptedSource{Turns: turns, FailAt: -1}
}

func (s *ScriptedSource) Name() string {
	return "scripted"
}

func (s *ScriptedSource) Generate(ctx context.Context, req llm.Request) (llm.FragmentStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := len(s.requests)
	s.requests = append(s.requests, req)
	if call == s.FailAt {
		return nil, s.Err
	}
	if call >= len(s.Turns) {
		return nil, fmt.Errorf("scripted source exhausted after %d turns", len(s.Turns))
	}
	stream := NewSliceStream(s.Turns[call]...)
	if s.PromptTokens > 0 {
		stream.Prompt = s.PromptTokens
		stream.HasUsage = true
	}
	s.streams = append(s.streams, stream)
	return stream, nil
}

// Requests returns the requests seen so far.
func (s *ScriptedSource) Requests() []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Streams returns the streams handed out so far.
func (s *ScriptedSource) Streams() []*SliceStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*SliceStream, len(s.streams))
	copy(out, s.streams)
	return out
}
