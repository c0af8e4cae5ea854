// Package tools defines the MCP tool surface of the bridge: launching and
// stopping the game, and observing the running game through snapshots, diffs,
// events, and logs.
package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/slighter12/godot-agent-bridge/bridge"
	"github.com/slighter12/godot-agent-bridge/launchgate"
)

// Deps carries the bridge components the tool handlers operate on.
type Deps struct {
	Session *bridge.Session
	Gate    *launchgate.Gate
}

// Register adds every bridge tool to the MCP server.
func Register(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, RunGameTool(), RunGameHandler(deps))
	mcp.AddTool(server, StopGameTool(), StopGameHandler(deps))
	mcp.AddTool(server, IsGameRunningTool(), IsGameRunningHandler(deps))
	mcp.AddTool(server, DebuggerOutputTool(), DebuggerOutputHandler(deps))
	mcp.AddTool(server, SnapshotTool(), SnapshotHandler(deps))
	mcp.AddTool(server, SnapshotDiffTool(), SnapshotDiffHandler(deps))
	mcp.AddTool(server, EventsTool(), EventsHandler(deps))
	mcp.AddTool(server, AddWatchTool(), AddWatchHandler(deps))
	mcp.AddTool(server, RemoveWatchTool(), RemoveWatchHandler(deps))
	mcp.AddTool(server, GetWatchesTool(), GetWatchesHandler(deps))
	mcp.AddTool(server, ConsoleTool(), ConsoleHandler(deps))
	mcp.AddTool(server, GameInfoTool(), GameInfoHandler(deps))
	mcp.AddTool(server, GameStateTool(), GameStateHandler(deps))
	mcp.AddTool(server, GameWaitTool(), GameWaitHandler(deps))
	mcp.AddTool(server, GameWaitForTool(), GameWaitForHandler(deps))
}
