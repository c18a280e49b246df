// Package check implements §4.9's post-condition passes: connection
// completeness, the region-boundary multi-output rule, and the absence
// of un-pipelined combinational cycles. Each is a pass.ModulePass that
// appends to a shared Report rather than returning bool/error for every
// finding, keeping "collect findings and keep going" separate from
// "stop, something is structurally broken."
package check

import (
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/synthflow/ir"
)

// Severity distinguishes a finding the core already repaired (Warning)
// from one that leaves the module in violation of an invariant (Error).
type Severity string

const (
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// Issue is a single check finding, addressed to a module and optionally a
// specific block.
type Issue struct {
	Severity Severity
	Pass     string
	Module   string
	Block    *ir.Block
	Message  string
}

// Report accumulates Issues across however many check passes a
// PassManager runs.
type Report struct {
	Issues []Issue
}

func (r *Report) add(i Issue) { r.Issues = append(r.Issues, i) }

// HasErrors reports whether any accumulated Issue is SeverityError.
func (r *Report) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// WriteReport renders the accumulated issues, grouped by pass.
func (r *Report) WriteReport(w io.Writer) {
	sep := strings.Repeat("=", 60)
	fmt.Fprintln(w, sep)
	fmt.Fprintln(w, "SYNTHFLOW CHECK REPORT")
	fmt.Fprintln(w, sep)

	if len(r.Issues) == 0 {
		fmt.Fprintln(w, "no issues found")
		return
	}

	byPass := map[string][]Issue{}
	var order []string
	for _, i := range r.Issues {
		if _, ok := byPass[i.Pass]; !ok {
			order = append(order, i.Pass)
		}
		byPass[i.Pass] = append(byPass[i.Pass], i)
	}

	for _, pass := range order {
		issues := byPass[pass]
		fmt.Fprintf(w, "\n%s (%d):\n", pass, len(issues))
		for _, i := range issues {
			loc := i.Module
			if i.Block != nil {
				loc = fmt.Sprintf("%s/%s", i.Module, i.Block.Name())
			}
			fmt.Fprintf(w, "  [%s %s] %s\n", i.Severity, loc, i.Message)
		}
	}
}
