// Package launchgate orchestrates game launch: issue the run command, poll
// until the runtime bridge is live, then classify startup health.
package launchgate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slighter12/godot-agent-bridge/logger"
	"github.com/slighter12/godot-agent-bridge/startupcheck"
)

const (
	defaultSettle       = 1500 * time.Millisecond
	defaultPollInterval = 250 * time.Millisecond
	defaultPollAttempts = 60
	logTailLines        = 60
)

// State is the terminal state of one launch attempt.
type State string

const (
	StateSucceeded           State = "succeeded"
	StateFailedStartupErrors State = "failed_startup_errors"
	StateFailedUnreachable   State = "failed_unreachable"
)

// noDetailsMsg is the fallback verdict text when the runtime never came up
// and nothing usable could be pulled from the editor log either.
const noDetailsMsg = "Game failed to start - no error details found in the editor log. " +
	"Call godot_get_debugger_output(), fix the cause, and relaunch."

// Result is the verdict of one launch attempt. A failed launch is an
// expected, recoverable outcome the agent must act on, so it is carried as a
// value rather than an error. Message is populated on every terminal state
// with a human-readable verdict and next step.
type Result struct {
	State         State                 `json:"state"`
	OK            bool                  `json:"ok"`
	Running       bool                  `json:"running"`
	Message       string                `json:"message"`
	GameInfo      map[string]any        `json:"game_info,omitempty"`
	StartupErrors []startupcheck.Record `json:"startup_errors,omitempty"`
	RuntimeErrors []string              `json:"runtime_errors,omitempty"`
	LogTail       string                `json:"log_tail,omitempty"`
}

// BridgeClient is the subset of the HTTP client the gate needs.
type BridgeClient interface {
	Get(ctx context.Context, path string, params map[string]string, timeout time.Duration) (map[string]any, error)
	Post(ctx context.Context, path string, payload map[string]any, timeout time.Duration) (map[string]any, error)
	IsAvailable(ctx context.Context) bool
}

// Gate runs the launch state machine. It does not retry a failed launch;
// relaunching after a fix is the caller's decision.
type Gate struct {
	editor  BridgeClient
	runtime BridgeClient

	classifier *startupcheck.Classifier
	settle     time.Duration
	interval   time.Duration
	attempts   int
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates a gate with the given poll policy. Non-positive interval and
// attempts fall back to defaults; a negative settle falls back while an
// explicit zero disables the settle delay.
func New(editor, runtime BridgeClient, settle, interval time.Duration, attempts int) *Gate {
	if settle < 0 {
		settle = defaultSettle
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if attempts <= 0 {
		attempts = defaultPollAttempts
	}
	return &Gate{
		editor:     editor,
		runtime:    runtime,
		classifier: startupcheck.NewClassifier(),
		settle:     settle,
		interval:   interval,
		attempts:   attempts,
		sleep:      sleepContext,
	}
}

// Launch issues the run command and polls until the runtime bridge answers or
// the poll budget is exhausted. In strict mode any fatal startup error forces
// a failed verdict even though the process is technically running.
func (g *Gate) Launch(ctx context.Context, scene string, strict bool) (Result, error) {
	body := map[string]any{}
	if scene != "" {
		body["scene"] = scene
	}
	if _, err := g.editor.Post(ctx, "/game/run", body, 0); err != nil {
		return Result{}, err
	}

	// The editor processes the play call deferred, then compiles and boots
	// the game. Settle before the first probe.
	if err := g.sleep(ctx, g.settle); err != nil {
		return Result{}, err
	}

	for i := 0; i < g.attempts; i++ {
		if err := g.sleep(ctx, g.interval); err != nil {
			return Result{}, err
		}
		if !g.runtime.IsAvailable(ctx) {
			continue
		}
		return g.classifyLiveGame(ctx, scene, strict)
	}

	logger.Warn("runtime bridge never became reachable", "attempts", g.attempts, "interval", g.interval)
	return g.unreachableResult(ctx, strict), nil
}

func (g *Gate) classifyLiveGame(ctx context.Context, scene string, strict bool) (Result, error) {
	info, err := g.runtime.Get(ctx, "/info", nil, 0)
	if err != nil {
		return Result{}, err
	}
	sceneName, _ := info["current_scene"].(string)
	if sceneName == "" {
		sceneName = scene
	}
	if sceneName == "" {
		sceneName = "main scene"
	}

	// Console and debugger fetches are best-effort; losing one source must
	// not abort the other.
	consoleOutput := g.fetchOutput(ctx, g.runtime, "/console")
	debuggerOutput := g.fetchOutput(ctx, g.editor, "/debugger/output")
	combined := strings.TrimSpace(consoleOutput + "\n" + debuggerOutput)

	if strict {
		if startupErrors := g.classifier.Classify(combined); len(startupErrors) > 0 {
			return Result{
				State:   StateFailedStartupErrors,
				Running: true,
				Message: fmt.Sprintf("Game started but has %d fatal startup error(s). "+
					"Read the errors, fix the code, stop, save, and relaunch.", len(startupErrors)),
				StartupErrors: startupErrors,
				LogTail:       startupcheck.TruncateTail(combined, logTailLines),
			}, nil
		}
	}

	result := Result{
		State:    StateSucceeded,
		OK:       true,
		Running:  true,
		Message:  fmt.Sprintf("Game started - '%s'", sceneName),
		GameInfo: info,
	}
	if consoleOutput != "" {
		result.RuntimeErrors = startupcheck.ErrorLines(consoleOutput)
	}
	return result, nil
}

// unreachableResult synthesizes diagnostics from the editor side after the
// runtime never came up. The editor itself may be gone too; the caller still
// gets a verdict with a usable message either way.
func (g *Gate) unreachableResult(ctx context.Context, strict bool) Result {
	debuggerOutput := g.fetchOutput(ctx, g.editor, "/debugger/output")

	result := Result{State: StateFailedUnreachable}
	if strict {
		result.StartupErrors = g.classifier.Classify(debuggerOutput)
		if len(result.StartupErrors) == 0 {
			// No fatal patterns: surface every advisory error line so the
			// caller is never left with zero information.
			for _, line := range startupcheck.ErrorLines(debuggerOutput) {
				result.StartupErrors = append(result.StartupErrors, g.classifier.Parse(line))
			}
		}
		result.LogTail = startupcheck.TruncateTail(debuggerOutput, logTailLines)
		if len(result.StartupErrors) > 0 {
			result.Message = fmt.Sprintf("Game failed to start - %d error(s) found. "+
				"Read the errors, fix the code, save, and relaunch.", len(result.StartupErrors))
		} else {
			result.Message = noDetailsMsg
		}
		return result
	}
	result.RuntimeErrors = startupcheck.ErrorLines(debuggerOutput)
	if len(result.RuntimeErrors) > 0 {
		result.Message = "Game failed to start. Read the errors, fix the code, and relaunch."
	} else {
		result.Message = noDetailsMsg
	}
	return result
}

func (g *Gate) fetchOutput(ctx context.Context, client BridgeClient, path string) string {
	result, err := client.Get(ctx, path, nil, 0)
	if err != nil {
		return ""
	}
	output, _ := result["output"].(string)
	return output
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
