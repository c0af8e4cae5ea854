package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/slighter12/godot-agent-bridge/launchgate"
	"github.com/slighter12/godot-agent-bridge/logger"
)

// RunGameInput is the input for godot_run_game.
type RunGameInput struct {
	Scene  string `json:"scene,omitempty" jsonschema:"scene path to run, empty for the project main scene"`
	Strict bool   `json:"strict,omitempty" jsonschema:"treat any fatal startup error pattern as a launch failure"`
}

func RunGameTool() *mcp.Tool {
	return &mcp.Tool{
		Name: "godot_run_game",
		Description: "Starts the game from the editor and waits for the runtime bridge to come up. " +
			"With strict=true, any fatal startup error (Node not found, Cannot call method, " +
			"Invalid access/call, SCRIPT ERROR, Parse Error) yields ok=false with structured " +
			"startup_errors to fix before proceeding.",
	}
}

func RunGameHandler(deps Deps) mcp.ToolHandlerFor[RunGameInput, launchgate.Result] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RunGameInput) (*mcp.CallToolResult, launchgate.Result, error) {
		result, err := deps.Gate.Launch(ctx, input.Scene, input.Strict)
		if err != nil {
			return nil, launchgate.Result{}, err
		}
		if result.OK {
			// Fresh launch: the previous run's baseline is meaningless now.
			deps.Session.Differ().Reset()
			deps.Session.Liveness().Invalidate()
		}
		logger.Info("game launch finished", "state", result.State, "strict", input.Strict)
		return nil, result, nil
	}
}

// StopGameInput is the (empty) input for godot_stop_game.
type StopGameInput struct{}

// StopGameResult reports the outcome of stopping the game.
type StopGameResult struct {
	OK bool `json:"ok" jsonschema:"whether the stop command was accepted"`
}

func StopGameTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "godot_stop_game",
		Description: "Stops the currently running game. Runtime tools become unavailable afterwards.",
	}
}

func StopGameHandler(deps Deps) mcp.ToolHandlerFor[StopGameInput, StopGameResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ StopGameInput) (*mcp.CallToolResult, StopGameResult, error) {
		if _, err := deps.Session.Editor.Post(ctx, "/game/stop", nil, 0); err != nil {
			return nil, StopGameResult{}, err
		}
		deps.Session.Liveness().Invalidate()
		deps.Session.Differ().Reset()
		return nil, StopGameResult{OK: true}, nil
	}
}

// IsGameRunningInput is the (empty) input for godot_is_game_running.
type IsGameRunningInput struct{}

// IsGameRunningResult reports whether the game process is running.
type IsGameRunningResult struct {
	Running bool `json:"running" jsonschema:"whether the game is currently running"`
}

func IsGameRunningTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "godot_is_game_running",
		Description: "Checks whether the game is currently running.",
	}
}

func IsGameRunningHandler(deps Deps) mcp.ToolHandlerFor[IsGameRunningInput, IsGameRunningResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ IsGameRunningInput) (*mcp.CallToolResult, IsGameRunningResult, error) {
		result, err := deps.Session.Editor.Get(ctx, "/game/is_running", nil, 0)
		if err != nil {
			return nil, IsGameRunningResult{}, err
		}
		running, _ := result["running"].(bool)
		return nil, IsGameRunningResult{Running: running}, nil
	}
}

// DebuggerOutputInput is the (empty) input for godot_get_debugger_output.
type DebuggerOutputInput struct{}

// DebuggerOutputResult carries recent editor debugger panel output.
type DebuggerOutputResult struct {
	Output string `json:"output" jsonschema:"recent output from the editor debugger panel"`
}

func DebuggerOutputTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "godot_get_debugger_output",
		Description: "Gets recent output from the editor's Output/debugger panel.",
	}
}

func DebuggerOutputHandler(deps Deps) mcp.ToolHandlerFor[DebuggerOutputInput, DebuggerOutputResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ DebuggerOutputInput) (*mcp.CallToolResult, DebuggerOutputResult, error) {
		result, err := deps.Session.Editor.Get(ctx, "/debugger/output", nil, 0)
		if err != nil {
			return nil, DebuggerOutputResult{}, err
		}
		output, _ := result["output"].(string)
		return nil, DebuggerOutputResult{Output: output}, nil
	}
}
