package reporter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"card-profitability-service/internal/analyzer"
)

// TraceWriter persists audit traces under a base directory:
// <dir>/<group>/<customer>_analysis.log for customers and
// <dir>/<group>/group_summary.log for groups.
type TraceWriter struct {
	dir string
}

var _ analyzer.TraceSink = (*TraceWriter)(nil)

// NewTraceWriter creates a trace writer rooted at dir.
func NewTraceWriter(dir string) (*TraceWriter, error) {
	if dir == "" {
		return nil, fmt.Errorf("trace directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}
	return &TraceWriter{dir: dir}, nil
}

// Dir returns the base trace directory.
func (tw *TraceWriter) Dir() string {
	return tw.dir
}

// WriteCustomerTrace persists one customer's audit trace.
func (tw *TraceWriter) WriteCustomerTrace(trace *analyzer.Trace) error {
	groupDir, err := tw.groupDir(trace.GroupName)
	if err != nil {
		return err
	}
	path := filepath.Join(groupDir, trace.CustomerFile+"_analysis.log")
	return writeLines(path, trace.Lines)
}

// WriteGroupSummary persists one group's audit summary.
func (tw *TraceWriter) WriteGroupSummary(groupName string, lines []string) error {
	groupDir, err := tw.groupDir(groupName)
	if err != nil {
		return err
	}
	return writeLines(filepath.Join(groupDir, "group_summary.log"), lines)
}

func (tw *TraceWriter) groupDir(groupName string) (string, error) {
	if groupName == "" {
		groupName = "ungrouped"
	}
	dir := filepath.Join(tw.dir, groupName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create trace group directory: %w", err)
	}
	return dir, nil
}

func writeLines(path string, lines []string) error {
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write trace file %s: %w", path, err)
	}
	return nil
}
