// Package server wires the bridge components into an MCP server and exposes
// it over stdio or streamable HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/slighter12/godot-agent-bridge/bridge"
	"github.com/slighter12/godot-agent-bridge/config"
	"github.com/slighter12/godot-agent-bridge/launchgate"
	"github.com/slighter12/godot-agent-bridge/logger"
	"github.com/slighter12/godot-agent-bridge/tools"
)

// Server hosts the MCP server over the configured transport.
type Server struct {
	cfg       *config.Config
	session   *bridge.Session
	mcpServer *mcp.Server
	echo      *echo.Echo
}

func New(cfg *config.Config) *Server {
	clientOpts := bridge.Options{
		Timeout:      cfg.DefaultTimeout(),
		Ceiling:      cfg.TimeoutCeiling(),
		ProbeTimeout: cfg.ProbeTimeout(),
	}
	editor := bridge.NewClient(cfg.Editor.Host, cfg.Editor.Port, clientOpts)
	runtime := bridge.NewClient(cfg.Runtime.Host, cfg.Runtime.Port, clientOpts)
	session := bridge.NewSession(editor, runtime, cfg.LivenessTTL())
	gate := launchgate.New(editor, runtime, cfg.LaunchSettle(), cfg.LaunchPollInterval(), cfg.Launch.PollAttempts)

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)
	tools.Register(mcpServer, tools.Deps{Session: session, Gate: gate})

	return &Server{
		cfg:       cfg,
		session:   session,
		mcpServer: mcpServer,
		echo:      echo.New(),
	}
}

// Start runs the server until the context is canceled (stdio mode) or the
// HTTP listener stops.
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.Server.Stdio {
		logger.Info("starting MCP server in stdio mode")
		return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
	}
	return s.startStreamableHTTP(ctx)
}

func (s *Server) startStreamableHTTP(ctx context.Context) error {
	s.echo.HideBanner = true
	s.echo.Use(middleware.Recover())
	if s.cfg.Server.Debug {
		s.echo.Use(middleware.Logger())
	}
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, "Mcp-Session-Id", "Last-Event-ID"},
	}))

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
	s.echo.Any("/mcp", echo.WrapHandler(handler))
	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"ok":      true,
			"name":    s.cfg.Name,
			"version": s.cfg.Version,
		})
	})

	go func() {
		<-ctx.Done()
		s.echo.Close()
	}()

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	logger.Info("starting MCP server in streamable HTTP mode", "address", addr)
	return s.echo.Start(addr)
}
