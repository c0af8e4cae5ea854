package bridge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeLogSource struct {
	output string
	err    error
}

func (s *fakeLogSource) Get(ctx context.Context, path string, params map[string]string, timeout time.Duration) (map[string]any, error) {
	if s.err != nil {
		return nil, s.err
	}
	return map[string]any{"output": s.output}, nil
}

func TestDiagnoseFiltersAndDeduplicates(t *testing.T) {
	source := &fakeLogSource{output: strings.Join([]string{
		"Game booted",
		"ERROR: Node not found: Player",
		"loading level",
		"ERROR: Node not found: Player",
		"SCRIPT ERROR: Invalid call on null instance",
	}, "\n")}

	report := NewReporter(source).Diagnose(context.Background())

	if !strings.Contains(report, "ERROR: Node not found: Player") {
		t.Fatalf("expected error line in report, got:\n%s", report)
	}
	if strings.Count(report, "ERROR: Node not found: Player") != 1 {
		t.Fatalf("expected deduplicated error line, got:\n%s", report)
	}
	if !strings.Contains(report, "SCRIPT ERROR: Invalid call on null instance") {
		t.Fatalf("expected script error line in report, got:\n%s", report)
	}
	if strings.Contains(report, "Game booted") {
		t.Fatalf("expected non-error lines filtered, got:\n%s", report)
	}
	if !strings.Contains(report, "godot_run_game(strict=true)") {
		t.Fatalf("expected repair steps appended, got:\n%s", report)
	}
}

func TestDiagnoseKeepsLastTenUniqueLines(t *testing.T) {
	var lines []string
	for i := 0; i < 15; i++ {
		lines = append(lines, "ERROR: failure number "+strings.Repeat("x", i+1))
	}
	source := &fakeLogSource{output: strings.Join(lines, "\n")}

	report := NewReporter(source).Diagnose(context.Background())

	if strings.Contains(report, "ERROR: failure number x\n") {
		t.Fatalf("expected oldest lines dropped, got:\n%s", report)
	}
	if !strings.Contains(report, lines[len(lines)-1]) {
		t.Fatalf("expected newest line retained, got:\n%s", report)
	}
}

func TestDiagnoseEditorUnreachable(t *testing.T) {
	source := &fakeLogSource{err: errors.New("connection refused")}

	// Runs inside error handling: it must degrade, never fail.
	report := NewReporter(source).Diagnose(context.Background())

	if !strings.Contains(report, "no error details found") {
		t.Fatalf("expected fallback message, got:\n%s", report)
	}
	if !strings.Contains(report, "You MUST attempt to fix this") {
		t.Fatalf("expected repair steps in fallback, got:\n%s", report)
	}
}
