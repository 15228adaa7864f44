package analyzer

import "fmt"

// Trace is the audit trail of one customer analysis: a month-by-month,
// transaction-by-transaction account of the matching and discount decisions.
// It exists for inspection only and carries no control-flow significance.
type Trace struct {
	CustomerFile string
	GroupName    string
	Lines        []string
}

func (t *Trace) add(line string) {
	t.Lines = append(t.Lines, line)
}

func (t *Trace) addf(format string, args ...interface{}) {
	t.Lines = append(t.Lines, fmt.Sprintf(format, args...))
}

// TraceSink persists audit traces. Implementations must tolerate being
// called from the group fan-in only (single writer); trace persistence
// failures degrade to warnings in the caller, never fail the run.
type TraceSink interface {
	WriteCustomerTrace(trace *Trace) error
	WriteGroupSummary(groupName string, lines []string) error
}
