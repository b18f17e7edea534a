package ui

import (
	"fmt"
	"io"

	"github.com/samsaffron/bizarro/internal/llm"
	"github.com/samsaffron/bizarro/internal/tools"
)

// ToolPrinter reports tool executions to the user. When Verbose is false it
// only counts them.
type ToolPrinter struct {
	out     io.Writer
	styles  *Styles
	stats   *SessionStats
	Verbose bool
}

// NewToolPrinter creates a printer writing to out. stats may be nil.
func NewToolPrinter(out io.Writer, styles *Styles, stats *SessionStats, verbose bool) *ToolPrinter {
	return &ToolPrinter{out: out, styles: styles, stats: stats, Verbose: verbose}
}

func (p *ToolPrinter) ToolStarted(call llm.ToolCall) {
	if p.stats != nil {
		p.stats.ToolCalled()
	}
	if p.Verbose {
		fmt.Fprintln(p.out, p.styles.Muted.Render("Executing tool: "+call.Name))
	}
}

func (p *ToolPrinter) ToolFinished(result tools.Result) {
	if p.Verbose {
		fmt.Fprintln(p.out, p.styles.Success.Render("Tool result: "+result.Content))
	}
}
