// Package bridge hosts the loopback HTTP surface through which a browser
// automation agent invokes tools. It owns nothing but the socket and a
// request counter; tool semantics live behind the injected executor.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quillform/quill/internal/status"
	"github.com/quillform/quill/internal/tools"
)

const (
	// MaxBodyBytes caps POST /tool request bodies. Oversized bodies get a
	// 413 and the connection is closed without buffering the rest.
	MaxBodyBytes = 1 << 20

	// DefaultPort is the bridge's listen port when none is configured.
	DefaultPort = "8716"

	shutdownTimeout = 5 * time.Second
)

// ToolRequest is the body of POST /tool.
type ToolRequest struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params,omitempty"`
}

// Server is the tool dispatch bridge. It binds exclusively to loopback and
// serves a single route, POST /tool.
type Server struct {
	httpServer *http.Server
	executor   tools.Executor
	status     status.Sink
	logger     *slog.Logger
	maxBody    int64

	// seq numbers every inbound request for log correlation.
	seq atomic.Uint64

	mu      sync.RWMutex
	running bool
	addr    string
}

// Config holds bridge configuration. The bind host is always 127.0.0.1;
// exposing tool dispatch beyond loopback is not supported.
type Config struct {
	// Port is the port to listen on (default: 8716). "0" picks a free port.
	Port string
	// MaxBodyBytes overrides the request body cap. Zero or negative uses
	// MaxBodyBytes.
	MaxBodyBytes int64
	// Status receives single-line progress narration. Nil means silent.
	Status status.Sink
	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// New creates a bridge server dispatching to the given executor.
func New(cfg Config, executor tools.Executor) (*Server, error) {
	if executor == nil {
		return nil, errors.New("bridge requires an executor")
	}
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = MaxBodyBytes
	}
	if cfg.Status == nil {
		cfg.Status = status.Nop()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		executor: executor,
		status:   cfg.Status,
		logger:   cfg.Logger,
		maxBody:  cfg.MaxBodyBytes,
	}

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort("127.0.0.1", cfg.Port),
		Handler:      http.HandlerFunc(s.route),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start binds the loopback socket and serves until the context is
// cancelled or the server fails. A bridge that is already listening
// refuses to start again.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("bridge already listening")
	}
	s.running = true
	s.mu.Unlock()

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to bind %s: %w", s.httpServer.Addr, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()
	s.logger.Info("bridge listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("bridge shutdown signal received")
	case err := <-errCh:
		if err != nil {
			s.setNotRunning()
			return fmt.Errorf("bridge server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown drains in-flight requests and releases the socket.
func (s *Server) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("bridge shutdown error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("bridge stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsListening reports whether the bridge currently holds the socket.
func (s *Server) IsListening() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the bound address while listening, else the configured one.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.addr != "" {
		return s.addr
	}
	return s.httpServer.Addr
}

// route is the single entrypoint. Anything other than /tool is 404, and on
// /tool only OPTIONS (preflight) and POST are understood.
func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	seq := s.seq.Add(1)
	allowCORS(w)

	if r.URL.Path != "/tool" {
		s.logger.Debug("bridge rejected path", "seq", seq, "method", r.Method, "path", r.URL.Path)
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
	case http.MethodPost:
		s.handleTool(w, r, seq)
	default:
		s.logger.Debug("bridge rejected method", "seq", seq, "method", r.Method)
		writeError(w, http.StatusNotFound, "not found")
	}
}

// handleTool parses one dispatch request and forwards it to the executor.
// Executor failures stay in-band as 200 {success:false}; only dispatch
// problems map to HTTP errors.
func (s *Server) handleTool(w http.ResponseWriter, r *http.Request, seq uint64) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("tool dispatch panicked", "seq", seq, "panic", rec)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}()

	// MaxBytesReader stops reading at the cap and makes the server close
	// the connection after the 413.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.logger.Warn("tool request body too large", "seq", seq)
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", s.maxBody))
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req ToolRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Tool == "" {
		writeError(w, http.StatusBadRequest, "missing \"tool\" field")
		return
	}

	phrase := s.doing(req.Tool)
	s.logger.Info("dispatching tool", "seq", seq, "tool", req.Tool)
	s.status.Publish(phrase + "...")

	result := s.executor.Execute(r.Context(), req.Tool, req.Params)

	if result.Success {
		s.status.Publish(phrase + " done")
		s.logger.Info("tool dispatch succeeded", "seq", seq, "tool", req.Tool)
	} else {
		s.status.Publish(phrase + " failed")
		s.logger.Warn("tool dispatch failed", "seq", seq, "tool", req.Tool, "error", result.Error)
	}

	writeJSON(w, http.StatusOK, result)
}

// doing phrases the narration line for a tool, falling back to a generic
// one when the executor has nothing better.
func (s *Server) doing(name string) string {
	if d, ok := s.executor.(tools.Describer); ok {
		if line := d.Doing(name); line != "" {
			return line
		}
	}
	return "Running " + name
}

// allowCORS permits any origin; the bridge is loopback-only, so the headers
// exist for the browser extension's benefit, not as a security boundary.
func allowCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a dispatch-level failure in the bridge's error shape.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, tools.Fail(msg))
}
