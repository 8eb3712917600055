package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coxlong/zap/internal/ipc"
	"github.com/coxlong/zap/internal/pool"
)

const (
	ServerName    = "zap"
	ServerVersion = "0.1.0"
)

// Daemon is the IPC surface the tools call. *ipc.Client implements it.
type Daemon interface {
	OpenWindow(opts pool.OpenWindowOptions, wait bool) (*ipc.OpenWindowData, error)
	ReleaseWindow(windowID uint32) error
	PoolState() (*ipc.PoolStateData, error)
}

var _ Daemon = (*ipc.Client)(nil)

// Server exposes the window pool to MCP clients.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	logger    *slog.Logger
}

// NewServer creates an MCP server that forwards tool calls to daemon.
func NewServer(daemon Daemon, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{daemon: daemon, logger: logger}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "open_window",
		Description: "Open a launcher window showing a view. Reuses a pooled window when one is idle, so the window usually appears instantly. Returns the window id needed to release it.",
	}, s.handleOpenWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "release_window",
		Description: "Hide a window opened with open_window and return it to the pool for reuse.",
	}, s.handleReleaseWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "pool_state",
		Description: "Report window pool counters: active and idle windows plus lifetime created/reused/destroyed totals.",
	}, s.handlePoolState)
}

func (s *Server) handleOpenWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args OpenWindowInput) (*mcpsdk.CallToolResult, OpenWindowOutput, error) {
	opts, err := args.options()
	if err != nil {
		return nil, OpenWindowOutput{}, err
	}
	wait := args.Wait == nil || *args.Wait

	data, err := s.daemon.OpenWindow(opts, wait)
	if err != nil {
		s.logger.Warn("open_window failed", "view", args.View, "error", err)
		return nil, OpenWindowOutput{}, err
	}
	s.logger.Debug("open_window", "view", args.View, "window_id", data.WindowID)
	return nil, OpenWindowOutput{
		WindowID:   data.WindowID,
		Lease:      data.Lease,
		Configured: data.Configured,
	}, nil
}

func (a OpenWindowInput) options() (pool.OpenWindowOptions, error) {
	if a.View == "" {
		return pool.OpenWindowOptions{}, fmt.Errorf("view is required")
	}
	if (a.X == nil) != (a.Y == nil) {
		return pool.OpenWindowOptions{}, fmt.Errorf("x and y must be given together")
	}

	opts := pool.OpenWindowOptions{
		Config: pool.WindowConfig{
			View:   a.View,
			Title:  a.Title,
			Width:  a.Width,
			Height: a.Height,
			X:      a.X,
			Y:      a.Y,
		},
	}
	if a.AlwaysOnTop != nil || a.SkipTaskbar != nil {
		opts.Config.Overrides = &pool.Overrides{AlwaysOnTop: a.AlwaysOnTop, SkipTaskbar: a.SkipTaskbar}
	}
	if a.Data != nil {
		raw, err := json.Marshal(a.Data)
		if err != nil {
			return pool.OpenWindowOptions{}, fmt.Errorf("encode data: %w", err)
		}
		opts.Data = raw
	}
	return opts, nil
}

func (s *Server) handleReleaseWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args ReleaseWindowInput) (*mcpsdk.CallToolResult, ReleaseWindowOutput, error) {
	if args.WindowID == 0 {
		return nil, ReleaseWindowOutput{}, fmt.Errorf("window_id is required")
	}
	if err := s.daemon.ReleaseWindow(args.WindowID); err != nil {
		return nil, ReleaseWindowOutput{}, err
	}
	return nil, ReleaseWindowOutput{Released: true}, nil
}

func (s *Server) handlePoolState(_ context.Context, _ *mcpsdk.CallToolRequest, _ PoolStateInput) (*mcpsdk.CallToolResult, PoolStateOutput, error) {
	st, err := s.daemon.PoolState()
	if err != nil {
		return nil, PoolStateOutput{}, err
	}
	return nil, PoolStateOutput{
		Initialized:    st.Initialized,
		PoolSize:       st.PoolSize,
		ActiveCount:    st.ActiveCount,
		IdleCount:      st.IdleCount,
		TotalCreated:   st.TotalCreated,
		TotalReused:    st.TotalReused,
		TotalDestroyed: st.TotalDestroyed,
	}, nil
}
