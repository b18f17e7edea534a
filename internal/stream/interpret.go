package stream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/samsaffron/bizarro/internal/llm"
)

// Interpret drains fs through p until io.EOF, then finishes the pass. The
// context is checked between fragments.
func Interpret(ctx context.Context, fs llm.FragmentStream, p *Parser) error {
	defer p.Finish()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frag, err := fs.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("generation failed: %w", err)
		}
		p.Consume(frag.Text)
	}
}
