// Package server runs the TCP front end: a bounded accept loop and a
// per-connection session loop that decodes requests, dispatches them and
// writes responses.
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/minikv/minikv/internal/command"
	"github.com/minikv/minikv/internal/logger"
	"github.com/minikv/minikv/internal/protocol"
	"github.com/minikv/minikv/internal/store"
)

// DefaultMaxClients bounds concurrent sessions when no limit is configured.
const DefaultMaxClients = 64

var (
	connectionsAccepted = metrics.NewCounter("minikv_connections_accepted_total")
	commandsProcessed   = metrics.NewCounter("minikv_commands_processed_total")
	commandErrors       = metrics.NewCounter("minikv_command_errors_total")
	protocolErrors      = metrics.NewCounter("minikv_protocol_errors_total")
)

// Config carries the listener settings.
type Config struct {
	Addr       string
	MaxClients int
}

// Server accepts client connections and serves the command loop on each.
type Server struct {
	cfg    Config
	store  *store.Store
	router *command.Router

	ln       net.Listener
	slots    chan struct{}
	sessions *xsync.MapOf[uint64, net.Conn]
	nextID   atomic.Uint64
	closed   atomic.Bool
	wg       sync.WaitGroup
}

// New creates a server over the given store.
func New(cfg Config, st *store.Store) *Server {
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = DefaultMaxClients
	}
	return &Server{
		cfg:      cfg,
		store:    st,
		router:   command.NewRouter(),
		slots:    make(chan struct{}, cfg.MaxClients),
		sessions: xsync.NewMapOf[uint64, net.Conn](),
	}
}

// Start listens on the configured address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	logger.Infof("listening on %s (max clients %d)", ln.Addr(), s.cfg.MaxClients)
	return s.Serve(ctx, ln)
}

// Serve runs the accept loop on ln until ctx is cancelled or the listener
// fails. A session slot is acquired before each accept, so when all slots are
// taken new connections queue in the kernel backlog instead of being turned
// away.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.ln = ln

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		s.slots <- struct{}{}

		conn, err := ln.Accept()
		if err != nil {
			<-s.slots
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				break
			}
			return err
		}

		connectionsAccepted.Inc()
		id := s.nextID.Add(1)
		s.sessions.Store(id, conn)
		s.wg.Add(1)

		go func() {
			defer s.wg.Done()
			defer func() { <-s.slots }()
			defer s.sessions.Delete(id)
			defer conn.Close()
			s.serveConn(conn)
		}()
	}

	s.wg.Wait()
	return nil
}

// Close stops accepting and tears down every live session. Sessions are cut
// immediately; there is no drain.
func (s *Server) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.ln != nil {
		s.ln.Close()
	}
	s.sessions.Range(func(id uint64, conn net.Conn) bool {
		conn.Close()
		return true
	})
}

// serveConn runs the request/response loop for one connection. A recoverable
// command error is written back as an error frame and the loop continues.
// Malformed frames and handler faults end the session with nothing written.
func (s *Server) serveConn(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	logger.Debugf("client connected: %s", remote)

	r := protocol.NewReader(conn)
	w := protocol.NewWriter(conn)

	for {
		req, err := r.ReadValue()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Debugf("client disconnected: %s", remote)
			} else {
				protocolErrors.Inc()
				logger.Warnf("dropping %s: %v", remote, err)
			}
			return
		}

		res, err := s.router.Dispatch(s.store, req)
		commandsProcessed.Inc()
		if err != nil {
			var cmdErr *command.Error
			if !errors.As(err, &cmdErr) {
				logger.Errorf("fault on %s: %v", remote, err)
				return
			}
			commandErrors.Inc()
			res = protocol.ErrorValue(cmdErr.Message)
		}

		if err := w.WriteValue(res); err != nil {
			logger.Debugf("write to %s failed: %v", remote, err)
			return
		}
	}
}
