package bridge

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/slighter12/godot-agent-bridge/events"
	"github.com/slighter12/godot-agent-bridge/snapshot"
)

// GameNotRunningMsg is returned when the runtime was never confirmed up.
const GameNotRunningMsg = "Game is not running. Use godot_run_game() to start it first."

// RuntimeDownError reports that the runtime bridge is unreachable. Crashed is
// true when the runtime was previously confirmed up, in which case Report
// carries crash diagnostics pulled from the editor side.
type RuntimeDownError struct {
	Crashed bool
	Report  string
}

func (e *RuntimeDownError) Error() string { return e.Report }

// Session owns the per-process observation state for one editor/runtime pair:
// the two HTTP clients, the liveness record, the local event log, and the
// snapshot baseline.
type Session struct {
	Editor  *Client
	Runtime *Client

	liveness *Liveness
	reporter *Reporter
	events   *events.Accumulator
	differ   *snapshot.Differ
}

func NewSession(editor, runtime *Client, livenessTTL time.Duration) *Session {
	return &Session{
		Editor:   editor,
		Runtime:  runtime,
		liveness: NewLiveness(runtime, livenessTTL),
		reporter: NewReporter(editor),
		events:   events.NewAccumulator(),
		differ:   snapshot.NewDiffer(),
	}
}

func (s *Session) Liveness() *Liveness { return s.liveness }

func (s *Session) Accumulator() *events.Accumulator { return s.events }

func (s *Session) Differ() *snapshot.Differ { return s.differ }

// EnsureRuntime gates runtime operations on the liveness cache. When the
// runtime is confirmed down it resets the snapshot baseline (the target
// process ended) and returns a RuntimeDownError: crash diagnostics if the
// game was previously up, the not-running message if it never was.
func (s *Session) EnsureRuntime(ctx context.Context) error {
	status := s.liveness.Check(ctx, time.Time{})
	if status.Ready {
		return nil
	}
	s.differ.Reset()
	if status.WasUp {
		return &RuntimeDownError{Crashed: true, Report: s.reporter.Diagnose(ctx)}
	}
	return &RuntimeDownError{Crashed: false, Report: GameNotRunningMsg}
}

// Snapshot fetches a scene tree snapshot, stores it as the diff baseline, and
// returns the raw payload. The screenshot field is popped before the tree
// reaches the differ and, unless requested, before it reaches the caller.
func (s *Session) Snapshot(ctx context.Context, root string, depth int, includeScreenshot bool) (map[string]any, error) {
	if err := s.EnsureRuntime(ctx); err != nil {
		return nil, err
	}

	params := map[string]string{"depth": strconv.Itoa(depth)}
	if root != "" {
		params["root"] = root
	}
	if includeScreenshot {
		params["include_screenshot"] = "true"
	}
	raw, err := s.Runtime.Get(ctx, "/snapshot", params, 0)
	if err != nil {
		return nil, err
	}

	screenshot := raw["screenshot"]
	delete(raw, "screenshot")
	if snap, ok := decodeSnapshot(raw); ok {
		s.differ.Diff(snap)
	}
	if includeScreenshot && screenshot != nil {
		raw["screenshot"] = screenshot
	}
	raw["pending_events"] = s.events.Pending()
	return raw, nil
}

// SnapshotDiff fetches a fresh snapshot and returns the structured delta
// against the previous baseline. The first call establishes the baseline and
// reports no changes.
func (s *Session) SnapshotDiff(ctx context.Context, depth int) (snapshot.Diff, error) {
	if err := s.EnsureRuntime(ctx); err != nil {
		return snapshot.Diff{}, err
	}

	var snap snapshot.Snapshot
	params := map[string]string{"depth": strconv.Itoa(depth)}
	if err := s.Runtime.GetInto(ctx, "/snapshot", params, 0, &snap); err != nil {
		return snapshot.Diff{}, err
	}
	return s.differ.Diff(snap), nil
}

// PullEvents drains new occurrences from the runtime into the local
// accumulator, then drains (or peeks) the accumulator. The local log is
// authoritative for ids, so they stay strictly increasing across runtime
// restarts.
func (s *Session) PullEvents(ctx context.Context, peek bool) ([]events.Event, error) {
	if err := s.EnsureRuntime(ctx); err != nil {
		return nil, err
	}

	remote, err := s.Runtime.Get(ctx, "/events", nil, 0)
	if err != nil {
		return nil, err
	}
	for _, event := range decodeEvents(remote["events"]) {
		s.events.Record(event)
	}
	return s.events.Drain(peek), nil
}

func decodeSnapshot(raw map[string]any) (snapshot.Snapshot, bool) {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return snapshot.Snapshot{}, false
	}
	var snap snapshot.Snapshot
	if err := json.Unmarshal(encoded, &snap); err != nil {
		return snapshot.Snapshot{}, false
	}
	return snap, true
}

func decodeEvents(raw any) []events.Event {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var decoded []events.Event
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return nil
	}
	return decoded
}
