package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/coxlong/zap/internal/platform"
	"github.com/coxlong/zap/internal/pool"
	"github.com/coxlong/zap/internal/runtimepath"
)

// openTimeout bounds how long OPEN_WINDOW may block; it stays under the
// client's read deadline.
const openTimeout = 4 * time.Second

// WindowService is the part of the pool manager the server exposes.
type WindowService interface {
	OpenWindow(ctx context.Context, opts pool.OpenWindowOptions) (*pool.Handle, error)
	ReleaseWindow(id platform.WindowID)
	PoolState() (pool.State, bool)
	Config() (pool.Config, bool)
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	windows      WindowService
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(windows WindowService) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		windows:    windows,
		startTime:  time.Now(),
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection serves exactly one newline-terminated request.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandOpenWindow:
		return s.handleOpenWindow(req.Payload)
	case CommandReleaseWindow:
		return s.handleReleaseWindow(req.Payload)
	case CommandGetPoolState:
		return s.handleGetPoolState()
	case CommandGetStatus:
		return s.handleGetStatus()
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleOpenWindow(payload json.RawMessage) *Response {
	var req OpenWindowPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid open payload: %v", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()

	h, err := s.windows.OpenWindow(ctx, req.OpenWindowOptions)
	if err != nil {
		if errors.Is(err, pool.ErrPoolUnavailable) {
			return NewErrorResponse("window pool is not running")
		}
		return NewErrorResponse(fmt.Sprintf("Failed to open window: %v", err))
	}
	log.Printf("IPC: opened window %d for view %q", h.ID, req.Config.View)

	data := OpenWindowData{WindowID: uint32(h.ID), Lease: h.Lease}
	if req.Wait {
		if err := h.Wait(ctx); err != nil {
			return NewErrorResponse(fmt.Sprintf("Window %d configuration failed: %v", h.ID, err))
		}
		data.Configured = true
	}

	resp, _ := NewOKResponse(data)
	return resp
}

func (s *Server) handleReleaseWindow(payload json.RawMessage) *Response {
	var req ReleaseWindowPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid release payload: %v", err))
	}
	if req.WindowID == 0 {
		return NewErrorResponse("window_id is required")
	}

	s.windows.ReleaseWindow(platform.WindowID(req.WindowID))
	log.Printf("IPC: released window %d", req.WindowID)

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleGetPoolState() *Response {
	st, ok := s.windows.PoolState()
	resp, _ := NewOKResponse(PoolStateData{Initialized: ok, State: st})
	return resp
}

func (s *Server) handleGetStatus() *Response {
	status := StatusData{
		DaemonRunning: true,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	}
	if st, ok := s.windows.PoolState(); ok {
		status.PoolInitialized = true
		status.Pool = &st
	}
	if cfg, ok := s.windows.Config(); ok {
		status.MinIdle = cfg.MinIdle
		status.MaxTotal = cfg.MaxTotal
		status.TTLSeconds = int64(cfg.TTL.Seconds())
	}

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
