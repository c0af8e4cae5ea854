package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AddWatchInput selects one node property to monitor for changes.
type AddWatchInput struct {
	NodePath string `json:"node_path" jsonschema:"node path relative to scene root"`
	Property string `json:"property" jsonschema:"property name to watch"`
	Label    string `json:"label,omitempty" jsonschema:"human-readable label, auto-generated if empty"`
}

func AddWatchTool() *mcp.Tool {
	return &mcp.Tool{
		Name: "game_add_watch",
		Description: "Watches a node property in the running game. When the value changes, a " +
			"property_changed event with old and new values is recorded; retrieve it via " +
			"game_events. Ideal for gameplay-critical values: health, score, ammo, boss phase.",
	}
}

func AddWatchHandler(deps Deps) mcp.ToolHandlerFor[AddWatchInput, map[string]any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AddWatchInput) (*mcp.CallToolResult, map[string]any, error) {
		if err := deps.Session.EnsureRuntime(ctx); err != nil {
			return nil, nil, err
		}
		body := map[string]any{
			"node_path": input.NodePath,
			"property":  input.Property,
		}
		if input.Label != "" {
			body["label"] = input.Label
		}
		result, err := deps.Session.Runtime.Post(ctx, "/events/watch", body, 0)
		if err != nil {
			return nil, nil, err
		}
		return nil, result, nil
	}
}

// RemoveWatchInput identifies an active watch by node path and property.
type RemoveWatchInput struct {
	NodePath string `json:"node_path" jsonschema:"node path passed to game_add_watch"`
	Property string `json:"property" jsonschema:"property name passed to game_add_watch"`
}

func RemoveWatchTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "game_remove_watch",
		Description: "Stops watching a node property for changes.",
	}
}

func RemoveWatchHandler(deps Deps) mcp.ToolHandlerFor[RemoveWatchInput, map[string]any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RemoveWatchInput) (*mcp.CallToolResult, map[string]any, error) {
		if err := deps.Session.EnsureRuntime(ctx); err != nil {
			return nil, nil, err
		}
		result, err := deps.Session.Runtime.Post(ctx, "/events/unwatch", map[string]any{
			"node_path": input.NodePath,
			"property":  input.Property,
		}, 0)
		if err != nil {
			return nil, nil, err
		}
		return nil, result, nil
	}
}

// GetWatchesInput is the (empty) input for game_get_watches.
type GetWatchesInput struct{}

func GetWatchesTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "game_get_watches",
		Description: "Lists all active property watches with their last seen values.",
	}
}

func GetWatchesHandler(deps Deps) mcp.ToolHandlerFor[GetWatchesInput, map[string]any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ GetWatchesInput) (*mcp.CallToolResult, map[string]any, error) {
		if err := deps.Session.EnsureRuntime(ctx); err != nil {
			return nil, nil, err
		}
		result, err := deps.Session.Runtime.Get(ctx, "/events/watches", nil, 0)
		if err != nil {
			return nil, nil, err
		}
		return nil, result, nil
	}
}
