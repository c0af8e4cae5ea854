package bridge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slighter12/godot-agent-bridge/startupcheck"
)

const maxDiagnosticLines = 10

// repairSteps gives the agent a concrete next action after a crash instead of
// a dead end.
const repairSteps = "\n\nYou MUST attempt to fix this. Follow these steps:\n" +
	"  1. Call godot_get_debugger_output() for full error context.\n" +
	"  2. Read the broken script(s) with godot_read_script().\n" +
	"  3. Fix the code with godot_write_script().\n" +
	"  4. Call godot_stop_game(), then godot_save_scene().\n" +
	"  5. Relaunch with godot_run_game(strict=true).\n" +
	"Do NOT stop here - diagnose and fix the error."

// LogSource fetches log text from a bridge server path.
type LogSource interface {
	Get(ctx context.Context, path string, params map[string]string, timeout time.Duration) (map[string]any, error)
}

// Reporter synthesizes a crash report from editor-side logs after the runtime
// has gone away. The editor bridge stays alive when the game dies, so its log
// output tells the agent what went wrong.
type Reporter struct {
	editor LogSource
}

func NewReporter(editor LogSource) *Reporter {
	return &Reporter{editor: editor}
}

// Diagnose builds a human-readable crash report. It runs inside error
// handling and must never fail: if the editor is also unreachable it degrades
// to a generic message.
func (r *Reporter) Diagnose(ctx context.Context) string {
	var errorLines []string
	if result, err := r.editor.Get(ctx, "/debugger/output", nil, 0); err == nil {
		if output, ok := result["output"].(string); ok {
			errorLines = startupcheck.ErrorLines(output)
		}
	}

	if len(errorLines) == 0 {
		return "Game crashed or was stopped - no error details found in the log." + repairSteps
	}

	// Deduplicate preserving first-seen order, keep the last few.
	seen := make(map[string]struct{})
	var unique []string
	for _, line := range errorLines {
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		unique = append(unique, line)
	}
	if len(unique) > maxDiagnosticLines {
		unique = unique[len(unique)-maxDiagnosticLines:]
	}

	var report strings.Builder
	report.WriteString("Game crashed or was stopped unexpectedly. Errors found in log:\n\n")
	for _, line := range unique {
		fmt.Fprintf(&report, "  %s\n", line)
	}
	report.WriteString(repairSteps)
	return report.String()
}
