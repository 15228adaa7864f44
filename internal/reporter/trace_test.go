package reporter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"card-profitability-service/internal/analyzer"
)

func TestNewTraceWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "traces")
	writer, err := NewTraceWriter(dir)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	if writer.Dir() != dir {
		t.Errorf("Expected dir %s, got %s", dir, writer.Dir())
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Expected the trace directory to be created: %v", err)
	}
}

func TestNewTraceWriterEmptyDir(t *testing.T) {
	if _, err := NewTraceWriter(""); err == nil {
		t.Error("Expected an empty directory to be rejected")
	}
}

func TestWriteCustomerTrace(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewTraceWriter(dir)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	trace := &analyzer.Trace{
		CustomerFile: "customer_001",
		GroupName:    "group_a",
		Lines:        []string{"line one", "line two"},
	}
	if err := writer.WriteCustomerTrace(trace); err != nil {
		t.Fatalf("Failed to write customer trace: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "group_a", "customer_001_analysis.log"))
	if err != nil {
		t.Fatalf("Failed to read trace file: %v", err)
	}
	if string(content) != "line one\nline two\n" {
		t.Errorf("Unexpected trace content: %q", string(content))
	}
}

func TestWriteCustomerTraceUngrouped(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewTraceWriter(dir)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	trace := &analyzer.Trace{CustomerFile: "customer_001", Lines: []string{"x"}}
	if err := writer.WriteCustomerTrace(trace); err != nil {
		t.Fatalf("Failed to write trace: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "ungrouped", "customer_001_analysis.log")); err != nil {
		t.Errorf("Expected the ungrouped fallback directory: %v", err)
	}
}

func TestWriteGroupSummary(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewTraceWriter(dir)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	lines := []string{"=== group group_a analysis summary ===", "processed customers: 3"}
	if err := writer.WriteGroupSummary("group_a", lines); err != nil {
		t.Fatalf("Failed to write group summary: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "group_a", "group_summary.log"))
	if err != nil {
		t.Fatalf("Failed to read group summary: %v", err)
	}
	if !strings.Contains(string(content), "processed customers: 3") {
		t.Errorf("Unexpected group summary content: %q", string(content))
	}
}
