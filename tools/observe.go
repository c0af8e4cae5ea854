package tools

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/slighter12/godot-agent-bridge/events"
	"github.com/slighter12/godot-agent-bridge/snapshot"
)

// waitHeadroom is added to a requested wait duration to form the request
// timeout: the server blocks deliberately, so the HTTP timeout must outlast
// the wait itself. The client clamps the sum to its hard ceiling.
const waitHeadroom = 15 * time.Second

// SnapshotInput selects what to capture from the running game.
type SnapshotInput struct {
	Root              string `json:"root,omitempty" jsonschema:"subtree root path, empty for the whole scene"`
	Depth             int    `json:"depth,omitempty" jsonschema:"max tree depth to walk, default 12"`
	IncludeScreenshot bool   `json:"include_screenshot,omitempty" jsonschema:"also return a screenshot"`
}

func SnapshotTool() *mcp.Tool {
	return &mcp.Tool{
		Name: "game_snapshot",
		Description: "Gets a structured scene tree snapshot from the running game. " +
			"Primary observation tool; snapshot before and after interactions.",
	}
}

func SnapshotHandler(deps Deps) mcp.ToolHandlerFor[SnapshotInput, map[string]any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SnapshotInput) (*mcp.CallToolResult, map[string]any, error) {
		depth := input.Depth
		if depth <= 0 {
			depth = 12
		}
		result, err := deps.Session.Snapshot(ctx, input.Root, depth, input.IncludeScreenshot)
		if err != nil {
			return nil, nil, err
		}
		return nil, result, nil
	}
}

// SnapshotDiffInput controls the diff capture depth.
type SnapshotDiffInput struct {
	Depth int `json:"depth,omitempty" jsonschema:"max tree depth to walk, default 12"`
}

func SnapshotDiffTool() *mcp.Tool {
	return &mcp.Tool{
		Name: "game_snapshot_diff",
		Description: "Compares the current game state to the previous snapshot and returns only " +
			"what changed: nodes added/removed and properties with old/new values. " +
			"The first call stores a baseline.",
	}
}

func SnapshotDiffHandler(deps Deps) mcp.ToolHandlerFor[SnapshotDiffInput, snapshot.Diff] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SnapshotDiffInput) (*mcp.CallToolResult, snapshot.Diff, error) {
		depth := input.Depth
		if depth <= 0 {
			depth = 12
		}
		diff, err := deps.Session.SnapshotDiff(ctx, depth)
		if err != nil {
			return nil, snapshot.Diff{}, err
		}
		return nil, diff, nil
	}
}

// EventsInput controls whether draining clears the event log.
type EventsInput struct {
	Peek bool `json:"peek,omitempty" jsonschema:"read events without clearing them"`
}

// EventsResult carries the drained events.
type EventsResult struct {
	Events []events.Event `json:"events" jsonschema:"accumulated game events in id order"`
	Count  int            `json:"count" jsonschema:"number of events returned"`
}

func EventsTool() *mcp.Tool {
	return &mcp.Tool{
		Name: "game_events",
		Description: "Gets accumulated game events (signals, node add/remove, watched property " +
			"changes, scene changes) since the last drain. Set peek=true to read without clearing.",
	}
}

func EventsHandler(deps Deps) mcp.ToolHandlerFor[EventsInput, EventsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EventsInput) (*mcp.CallToolResult, EventsResult, error) {
		drained, err := deps.Session.PullEvents(ctx, input.Peek)
		if err != nil {
			return nil, EventsResult{}, err
		}
		if drained == nil {
			drained = []events.Event{}
		}
		return nil, EventsResult{Events: drained, Count: len(drained)}, nil
	}
}

// ConsoleInput is the (empty) input for game_console.
type ConsoleInput struct{}

// ConsoleResult carries the tail of the game log.
type ConsoleResult struct {
	Output string `json:"output" jsonschema:"recent console/log output from the running game"`
}

func ConsoleTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "game_console",
		Description: "Gets recent console output from the running game: print() output, push_error/push_warning messages, engine diagnostics.",
	}
}

func ConsoleHandler(deps Deps) mcp.ToolHandlerFor[ConsoleInput, ConsoleResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ ConsoleInput) (*mcp.CallToolResult, ConsoleResult, error) {
		if err := deps.Session.EnsureRuntime(ctx); err != nil {
			return nil, ConsoleResult{}, err
		}
		result, err := deps.Session.Runtime.Get(ctx, "/console", nil, 0)
		if err != nil {
			return nil, ConsoleResult{}, err
		}
		output, _ := result["output"].(string)
		return nil, ConsoleResult{Output: output}, nil
	}
}

// GameInfoInput is the (empty) input for game_info.
type GameInfoInput struct{}

func GameInfoTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "game_info",
		Description: "Gets general information about the running game: project name, current scene, viewport size, FPS, pause state.",
	}
}

func GameInfoHandler(deps Deps) mcp.ToolHandlerFor[GameInfoInput, map[string]any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ GameInfoInput) (*mcp.CallToolResult, map[string]any, error) {
		if err := deps.Session.EnsureRuntime(ctx); err != nil {
			return nil, nil, err
		}
		result, err := deps.Session.Runtime.Get(ctx, "/info", nil, 0)
		if err != nil {
			return nil, nil, err
		}
		return nil, result, nil
	}
}

// GameStateInput selects one node to deep-inspect.
type GameStateInput struct {
	Path string `json:"path" jsonschema:"node path relative to scene root"`
}

func GameStateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "game_state",
		Description: "Deep-inspects one node in the running game: properties, script variables, groups.",
	}
}

func GameStateHandler(deps Deps) mcp.ToolHandlerFor[GameStateInput, map[string]any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GameStateInput) (*mcp.CallToolResult, map[string]any, error) {
		if err := deps.Session.EnsureRuntime(ctx); err != nil {
			return nil, nil, err
		}
		result, err := deps.Session.Runtime.Get(ctx, "/state", map[string]string{"path": input.Path}, 0)
		if err != nil {
			return nil, nil, err
		}
		return nil, result, nil
	}
}

// GameWaitInput requests a server-side wait.
type GameWaitInput struct {
	Seconds float64 `json:"seconds" jsonschema:"how long the game should let gameplay run before responding"`
}

func GameWaitTool() *mcp.Tool {
	return &mcp.Tool{
		Name: "game_wait",
		Description: "Lets the game run for the given duration before responding. " +
			"The game blocks server-side; use this to let animations, physics, or timers play out.",
	}
}

func GameWaitHandler(deps Deps) mcp.ToolHandlerFor[GameWaitInput, map[string]any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GameWaitInput) (*mcp.CallToolResult, map[string]any, error) {
		if err := deps.Session.EnsureRuntime(ctx); err != nil {
			return nil, nil, err
		}
		seconds := input.Seconds
		if seconds <= 0 {
			seconds = 1
		}
		timeout := time.Duration(seconds*float64(time.Second)) + waitHeadroom
		result, err := deps.Session.Runtime.Post(ctx, "/wait", map[string]any{"seconds": seconds}, timeout)
		if err != nil {
			return nil, nil, err
		}
		return nil, result, nil
	}
}

// GameWaitForInput describes a condition to block on in the running game.
type GameWaitForInput struct {
	Condition           string  `json:"condition" jsonschema:"one of node_exists, node_freed, property_equals, property_greater, property_less, signal"`
	Path                string  `json:"path,omitempty" jsonschema:"node path relative to scene root"`
	Property            string  `json:"property,omitempty" jsonschema:"property name for property conditions"`
	Value               any     `json:"value,omitempty" jsonschema:"target value for property conditions"`
	Signal              string  `json:"signal,omitempty" jsonschema:"signal name for condition=signal"`
	TimeoutSeconds      float64 `json:"timeout_seconds,omitempty" jsonschema:"max seconds to wait, default 10"`
	PollIntervalSeconds float64 `json:"poll_interval_seconds,omitempty" jsonschema:"condition check interval in seconds, default 0.1"`
}

func GameWaitForTool() *mcp.Tool {
	return &mcp.Tool{
		Name: "game_wait_for",
		Description: "Blocks until a condition is met in the running game (node appears/frees, " +
			"property reaches a value, signal fires) or the wait times out. " +
			"The game polls server-side; the response reports condition_met and elapsed time.",
	}
}

func GameWaitForHandler(deps Deps) mcp.ToolHandlerFor[GameWaitForInput, map[string]any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GameWaitForInput) (*mcp.CallToolResult, map[string]any, error) {
		if err := deps.Session.EnsureRuntime(ctx); err != nil {
			return nil, nil, err
		}
		seconds := input.TimeoutSeconds
		if seconds <= 0 {
			seconds = 10
		}
		pollInterval := input.PollIntervalSeconds
		if pollInterval <= 0 {
			pollInterval = 0.1
		}

		body := map[string]any{
			"condition":     input.Condition,
			"timeout":       seconds,
			"poll_interval": pollInterval,
		}
		if input.Path != "" {
			body["path"] = input.Path
		}
		if input.Property != "" {
			body["property"] = input.Property
		}
		if input.Value != nil {
			body["value"] = input.Value
		}
		if input.Signal != "" {
			body["signal"] = input.Signal
		}

		timeout := time.Duration(seconds*float64(time.Second)) + waitHeadroom
		result, err := deps.Session.Runtime.Post(ctx, "/wait_for", body, timeout)
		if err != nil {
			return nil, nil, err
		}
		if snap, ok := result["snapshot"].(map[string]any); ok {
			delete(snap, "screenshot")
		}
		return nil, result, nil
	}
}
