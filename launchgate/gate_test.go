package launchgate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeBridge struct {
	availableAfter int // probe count before IsAvailable turns true; -1 = never
	probes         int
	getResponses   map[string]map[string]any
	getErrs        map[string]error
	postedPaths    []string
	postErr        error
}

func (f *fakeBridge) Get(ctx context.Context, path string, params map[string]string, timeout time.Duration) (map[string]any, error) {
	if err := f.getErrs[path]; err != nil {
		return nil, err
	}
	if response, ok := f.getResponses[path]; ok {
		return response, nil
	}
	return map[string]any{}, nil
}

func (f *fakeBridge) Post(ctx context.Context, path string, payload map[string]any, timeout time.Duration) (map[string]any, error) {
	f.postedPaths = append(f.postedPaths, path)
	if f.postErr != nil {
		return nil, f.postErr
	}
	return map[string]any{"ok": true}, nil
}

func (f *fakeBridge) IsAvailable(ctx context.Context) bool {
	f.probes++
	if f.availableAfter < 0 {
		return false
	}
	return f.probes > f.availableAfter
}

func newTestGate(editor, runtime *fakeBridge, attempts int) *Gate {
	gate := New(editor, runtime, 0, time.Millisecond, attempts)
	gate.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return gate
}

func TestLaunchSucceeds(t *testing.T) {
	editor := &fakeBridge{getResponses: map[string]map[string]any{
		"/debugger/output": {"output": ""},
	}}
	runtime := &fakeBridge{
		availableAfter: 2,
		getResponses: map[string]map[string]any{
			"/info":    {"current_scene": "Level1"},
			"/console": {"output": "Game booted\nscore reset"},
		},
	}

	result, err := newTestGate(editor, runtime, 60).Launch(context.Background(), "", true)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if result.State != StateSucceeded || !result.OK || !result.Running {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.GameInfo["current_scene"] != "Level1" {
		t.Fatalf("expected game info passed through, got %v", result.GameInfo)
	}
	if !strings.Contains(result.Message, "Level1") {
		t.Fatalf("expected scene name in verdict message, got %q", result.Message)
	}
	if editor.postedPaths[0] != "/game/run" {
		t.Fatalf("expected /game/run issued, got %v", editor.postedPaths)
	}
	if runtime.probes != 3 {
		t.Fatalf("expected polling to stop at first success, got %d probes", runtime.probes)
	}
}

func TestLaunchStrictFailsOnFatalStartupErrors(t *testing.T) {
	editor := &fakeBridge{getResponses: map[string]map[string]any{
		"/debugger/output": {"output": "SCRIPT ERROR: Invalid call at res://player.gd:11"},
	}}
	runtime := &fakeBridge{
		availableAfter: 0,
		getResponses: map[string]map[string]any{
			"/info":    {"current_scene": "Level1"},
			"/console": {"output": "booting"},
		},
	}

	result, err := newTestGate(editor, runtime, 60).Launch(context.Background(), "res://main.tscn", true)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if result.State != StateFailedStartupErrors {
		t.Fatalf("expected startup failure, got %+v", result)
	}
	if !result.Running || result.OK {
		t.Fatalf("expected running-but-broken verdict, got %+v", result)
	}
	if len(result.StartupErrors) != 1 {
		t.Fatalf("expected 1 startup error, got %v", result.StartupErrors)
	}
	record := result.StartupErrors[0]
	if record.File != "res://player.gd" || record.Line != 11 {
		t.Fatalf("expected file/line extracted, got %+v", record)
	}
	if result.LogTail == "" {
		t.Fatal("expected log tail in failure result")
	}
	if !strings.Contains(result.Message, "1 fatal startup error(s)") {
		t.Fatalf("expected actionable verdict message, got %q", result.Message)
	}
}

func TestLaunchNonStrictIgnoresFatalPatterns(t *testing.T) {
	editor := &fakeBridge{}
	runtime := &fakeBridge{
		availableAfter: 0,
		getResponses: map[string]map[string]any{
			"/info":    {"current_scene": "Level1"},
			"/console": {"output": "ERROR: Node not found: HUD"},
		},
	}

	result, err := newTestGate(editor, runtime, 60).Launch(context.Background(), "", false)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if result.State != StateSucceeded {
		t.Fatalf("expected success in non-strict mode, got %+v", result)
	}
	if len(result.RuntimeErrors) != 1 || !strings.Contains(result.RuntimeErrors[0], "Node not found") {
		t.Fatalf("expected advisory error lines, got %v", result.RuntimeErrors)
	}
}

func TestLaunchUnreachableWithDiagnostics(t *testing.T) {
	editor := &fakeBridge{getResponses: map[string]map[string]any{
		"/debugger/output": {"output": "Parse Error: unexpected token at res://main.gd:3"},
	}}
	runtime := &fakeBridge{availableAfter: -1}

	result, err := newTestGate(editor, runtime, 10).Launch(context.Background(), "", true)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if result.State != StateFailedUnreachable || result.Running {
		t.Fatalf("expected unreachable verdict, got %+v", result)
	}
	if runtime.probes != 10 {
		t.Fatalf("expected full poll budget used, got %d probes", runtime.probes)
	}
	if len(result.StartupErrors) != 1 || result.StartupErrors[0].File != "res://main.gd" {
		t.Fatalf("expected parse error synthesized from editor logs, got %v", result.StartupErrors)
	}
	if !strings.Contains(result.Message, "1 error(s) found") {
		t.Fatalf("expected error count in verdict message, got %q", result.Message)
	}
}

func TestLaunchUnreachableSynthesizesAdvisoryErrors(t *testing.T) {
	// No fatal patterns in the editor log: fall back to advisory error lines
	// so the caller still gets something.
	editor := &fakeBridge{getResponses: map[string]map[string]any{
		"/debugger/output": {"output": "ERROR in shader compilation\nall good otherwise"},
	}}
	runtime := &fakeBridge{availableAfter: -1}

	result, err := newTestGate(editor, runtime, 5).Launch(context.Background(), "", true)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if len(result.StartupErrors) != 1 {
		t.Fatalf("expected advisory line promoted to record, got %v", result.StartupErrors)
	}
	if result.StartupErrors[0].Message != "ERROR in shader compilation" {
		t.Fatalf("unexpected message %q", result.StartupErrors[0].Message)
	}
}

func TestLaunchUnreachableEditorGoneToo(t *testing.T) {
	editor := &fakeBridge{getErrs: map[string]error{
		"/debugger/output": errors.New("connection refused"),
	}}
	runtime := &fakeBridge{availableAfter: -1}

	result, err := newTestGate(editor, runtime, 5).Launch(context.Background(), "", true)
	if err != nil {
		t.Fatalf("launch must not fail when diagnostics are unavailable: %v", err)
	}
	if result.State != StateFailedUnreachable {
		t.Fatalf("expected unreachable verdict, got %+v", result)
	}
	if len(result.StartupErrors) != 0 || result.LogTail != "" {
		t.Fatalf("expected empty diagnostics, got %+v", result)
	}
	// Even with no recoverable details the caller must get a verdict message.
	if !strings.Contains(result.Message, "no error details found") {
		t.Fatalf("expected fallback message, got %q", result.Message)
	}
}

func TestLaunchUnreachableNonStrictFallbackMessage(t *testing.T) {
	editor := &fakeBridge{getResponses: map[string]map[string]any{
		"/debugger/output": {"output": "all clean"},
	}}
	runtime := &fakeBridge{availableAfter: -1}

	result, err := newTestGate(editor, runtime, 5).Launch(context.Background(), "", false)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if len(result.RuntimeErrors) != 0 {
		t.Fatalf("expected no advisory lines from a clean log, got %v", result.RuntimeErrors)
	}
	if !strings.Contains(result.Message, "no error details found") {
		t.Fatalf("expected fallback message, got %q", result.Message)
	}
}

func TestLaunchPropagatesRunCommandFailure(t *testing.T) {
	editor := &fakeBridge{postErr: errors.New("editor not reachable")}
	runtime := &fakeBridge{}

	if _, err := newTestGate(editor, runtime, 5).Launch(context.Background(), "", false); err == nil {
		t.Fatal("expected error when the run command fails")
	}
}

func TestLaunchScenePassedInBody(t *testing.T) {
	editor := &fakeBridge{}
	runtime := &fakeBridge{availableAfter: 0, getResponses: map[string]map[string]any{
		"/info": {"current_scene": "Level2"},
	}}

	result, err := newTestGate(editor, runtime, 5).Launch(context.Background(), "res://scenes/level_2.tscn", false)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if result.State != StateSucceeded {
		t.Fatalf("expected success, got %+v", result)
	}
}
