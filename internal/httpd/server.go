package httpd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/muurk/relay-server/internal/logging"
	"go.uber.org/zap"
)

// Accept retry delays after a failed Accept, doubling up to the cap.
const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Config holds the connection supervisor settings
type Config struct {
	Hostname   string // sent in the Server header
	Limits     Limits
	SendBuffer int // response output buffer size
}

// Server accepts connections and runs one request flow per connection.
type Server struct {
	config      Config
	router      *Router
	listener    net.Listener
	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[net.Conn]struct{}
	closing     bool
}

// New creates a server dispatching through router.
func New(config Config, router *Router) *Server {
	if config.SendBuffer <= 0 {
		config.SendBuffer = DefaultSendBuffer
	}
	return &Server{
		config:      config,
		router:      router,
		activeConns: make(map[net.Conn]struct{}),
	}
}

// Serve accepts connections from l until it is closed. It returns nil when
// the listener was closed by Shutdown. Failed accepts, such as running out
// of file descriptors, are retried with a growing delay.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = l.Close()
		return nil
	}
	s.listener = l
	s.mu.Unlock()

	logging.Info("Server listening for connections",
		zap.String("addr", l.Addr().String()),
		zap.String("hostname", s.config.Hostname),
	)

	var delay time.Duration
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			delay = nextAcceptDelay(delay)
			logging.Error("Failed to accept connection",
				zap.Error(err),
				zap.Duration("retry_in", delay),
			)
			time.Sleep(delay)
			continue
		}
		delay = 0

		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		go func() {
			defer s.wg.Done()
			s.ServeConn(conn)
		}()
	}
}

func nextAcceptDelay(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptDelay
	}
	return min(2*d, maxAcceptDelay)
}

// Addr returns the listener address, or nil before Serve was called.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.activeConns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.activeConns, conn)
	s.mu.Unlock()
}

// ServeConn runs the parse, dispatch and respond flow for one connection
// and always closes it. It never panics.
func (s *Server) ServeConn(conn net.Conn) {
	remoteAddr := "unknown"
	if addr := conn.RemoteAddr(); addr != nil {
		remoteAddr = addr.String()
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Error("Connection flow panicked",
				zap.String("remote_addr", remoteAddr),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
		_ = conn.Close()
		s.untrack(conn)
		logging.LogConnection(remoteAddr, "connection_closed")
	}()

	logging.LogConnection(remoteAddr, "connection_accepted")

	w := NewResponseWriter(conn, s.config.Hostname, s.config.SendBuffer)
	req, err := NewParser(conn, s.config.Limits).Parse()

	switch OutcomeOf(err) {
	case OutcomeReady:
		logging.LogHTTPRequest(remoteAddr, req.Method, req.Path, req.Headers)
		err = s.dispatch(req, w)
	case OutcomeConnectionClosed:
		logging.Debug("Peer closed before a full request arrived",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	case OutcomeBadRequest:
		logging.Warn("Bad request",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		var perr *ParseError
		if errors.As(err, &perr) && perr.Line != "" {
			logging.LogRawBytes("Rejected request line", []byte(perr.Line))
		}
		err = w.StartResponse(400, 0, "", false)
	default:
		logging.Error("Failed to parse request",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		err = w.StartResponse(500, 0, "", false)
	}

	if err != nil {
		if w.Started() {
			logging.Error("Response aborted",
				zap.String("remote_addr", remoteAddr),
				zap.Int("status_code", w.Status()),
				zap.Error(err),
			)
			return
		}
		logging.Error("Request handling failed",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		if err := w.ResetHeaders(); err != nil {
			return
		}
		if err := w.StartResponse(500, 0, "", false); err != nil {
			return
		}
	}

	if err := w.Finish(); err != nil {
		logging.Warn("Failed to finish response",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}
	logging.LogHTTPResponse(remoteAddr, w.Status(), w.BodyBytes())
}

// dispatch converts a handler panic into an error so a 500 can still be
// sent when nothing was written yet.
func (s *Server) dispatch(req *Request, w *ResponseWriter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in handler for %s %s: %v", req.Method, req.Path, r)
		}
	}()
	return s.router.Dispatch(req, w)
}

// ActiveConnections returns the number of connections being served
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// Shutdown stops accepting, closes every active connection and waits for
// their flows to return or ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.mu.Lock()
	s.closing = true
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}
	for conn := range s.activeConns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed")
		return nil
	case <-ctx.Done():
		logging.Warn("Shutdown timed out, connection flows still running")
		return ctx.Err()
	}
}
