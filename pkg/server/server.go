// Package server implements the accept loop and per-connection session
// loop (§4.3): one goroutine per accepted TCP connection, each running
// its own synchronous read-dispatch-reply cycle against
// pkg/handlers.Dispatch.
package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sharewire/sharewire/internal/logger"
	"github.com/sharewire/sharewire/internal/shareerr"
	"github.com/sharewire/sharewire/internal/wire"
	"github.com/sharewire/sharewire/pkg/archive"
	"github.com/sharewire/sharewire/pkg/assertion"
	"github.com/sharewire/sharewire/pkg/handlers"
	"github.com/sharewire/sharewire/pkg/metrics"
	"github.com/sharewire/sharewire/pkg/share"
)

// Timeouts bounds how long a connection may sit idle, and how long a
// single frame read may block, before the session loop gives up on it.
type Timeouts struct {
	Idle time.Duration
	Read time.Duration
}

// Config carries the accept loop's tunables. MaxSessions of 0 selects
// DefaultMaxSessions.
type Config struct {
	Port        int
	MaxSessions int
	Timeouts    Timeouts

	// AssertionTTL bounds how long a Mount's cached rights assertion
	// (§4.4, §11) is honored without a fresh auth-server round trip.
	// Zero uses assertion.DefaultTTL.
	AssertionTTL time.Duration
}

// DefaultMaxSessions is the fan-out limit applied when Config.MaxSessions
// is left at zero: past this many concurrent sessions, a newly accepted
// connection is sent a single busy reply and closed rather than left to
// queue behind an unbounded goroutine pool (§4.3 step 5's "bounded
// fan-out").
const DefaultMaxSessions = 100

// DefaultShutdownTimeout is the default for config's ShutdownTimeout.
// The server does not read it: after Shutdown, Serve waits for
// in-flight sessions to drain with no time bound.
const DefaultShutdownTimeout = 30 * time.Second

// Server owns the listener and the state every session needs to bind a
// share and authenticate a mount: the share table, the auth client, and
// the per-share index opener.
type Server struct {
	Shares      *share.Table
	Auth        share.AuthClient
	OpenIndexes handlers.IndexOpener
	Config      Config

	// Assertions mints and verifies the rights assertion §4.4 caches
	// on each mounted session. New generates one with a random secret;
	// nil disables assertion caching entirely.
	Assertions *assertion.Minter

	// Archive mirrors committed writes to object storage on a
	// background goroutine (§11). Nil disables the mirror entirely;
	// New never creates one itself since, unlike the assertion minter,
	// it needs externally supplied bucket credentials.
	Archive *archive.Archiver

	// Metrics collects the observability surface described in §11. Nil
	// disables collection entirely.
	Metrics metrics.SessionMetrics

	sessionSem chan struct{}
	wg         sync.WaitGroup
	shutdown   chan struct{}
	closeOnce  sync.Once

	sessionsMu sync.Mutex
	sessions   map[net.Conn]string
}

// New returns a Server ready to Serve. cfg.MaxSessions of 0 is replaced
// with DefaultMaxSessions.
func New(shares *share.Table, auth share.AuthClient, openIndexes handlers.IndexOpener, cfg Config) *Server {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}

	minter, err := assertion.NewRandomMinter(cfg.AssertionTTL)
	if err != nil {
		logger.Error("failed to initialize rights assertion minter, falling back to no caching", logger.Err(err))
	}

	return &Server{
		Shares:      shares,
		Auth:        auth,
		OpenIndexes: openIndexes,
		Config:      cfg,
		Assertions:  minter,
		sessionSem:  make(chan struct{}, cfg.MaxSessions),
		shutdown:    make(chan struct{}),
		sessions:    make(map[net.Conn]string),
	}
}

// ActiveClientAddrs returns the remote address of every connection
// currently holding a session slot, for pkg/discovery's HostUsers probe.
func (s *Server) ActiveClientAddrs() []string {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	addrs := make([]string, 0, len(s.sessions))
	for _, a := range s.sessions {
		addrs = append(addrs, a)
	}
	return addrs
}

// MaxSessions returns the configured fan-out limit, for pkg/discovery's
// HostInfo probe.
func (s *Server) MaxSessions() int {
	return s.Config.MaxSessions
}

// Serve accepts connections on the given listener until ctx is
// cancelled or Shutdown is called, blocking until every in-flight
// session has returned.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	go func() {
		<-s.shutdown
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				s.wg.Wait()
				return nil
			default:
				logger.Warn("accept failed", logger.Err(err))
				continue
			}
		}

		select {
		case s.sessionSem <- struct{}{}:
		default:
			logger.Debug("session rejected: server busy", logger.ClientIP(conn.RemoteAddr().String()))
			s.rejectBusy(conn)
			continue
		}

		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

// rejectBusy answers a connection turned away for being over
// Config.MaxSessions with a single status reply and closes it. There is
// no request to correlate yet, so it replies XID 0, matching the
// convention an unsolicited server-initiated frame uses elsewhere in
// this protocol.
func (s *Server) rejectBusy(conn net.Conn) {
	defer conn.Close()
	resp := wire.Response{XID: 0, Status: shareerr.StatusEBUSY}
	_ = wire.WriteFrame(conn, resp.XID, wire.EncodeResponse(resp))
}

// Shutdown stops the accept loop and causes Serve to return once every
// in-flight session has drained. Safe to call more than once.
func (s *Server) Shutdown() {
	s.closeOnce.Do(func() { close(s.shutdown) })
}

func (s *Server) serveConn(conn net.Conn) {
	clientAddr := conn.RemoteAddr().String()

	s.sessionsMu.Lock()
	s.sessions[conn] = clientAddr
	s.sessionsMu.Unlock()

	if s.Metrics != nil {
		s.Metrics.RecordConnectionOpened()
	}

	defer func() {
		s.sessionsMu.Lock()
		delete(s.sessions, conn)
		s.sessionsMu.Unlock()

		if s.Metrics != nil {
			s.Metrics.RecordConnectionClosed()
		}

		<-s.sessionSem
		s.wg.Done()
		_ = conn.Close()
		if r := recover(); r != nil {
			logger.Error("panic in session loop", logger.ClientIP(clientAddr), logger.Err(fmt.Errorf("%v", r)))
			logger.Error(string(debug.Stack()))
		}
	}()

	sess := handlers.NewSession(clientAddr, s.Shares, s.Auth, s.OpenIndexes)
	sess.Assertions = s.Assertions
	sess.Archive = s.Archive
	defer sess.Teardown()

	logger.Debug("session accepted", logger.ClientIP(clientAddr))

	for {
		select {
		case <-s.shutdown:
			return
		default:
		}
		if sess.Killed.Load() {
			return
		}

		if s.Config.Timeouts.Idle > 0 {
			_ = conn.SetDeadline(time.Now().Add(s.Config.Timeouts.Idle))
		}

		frame, err := wire.ReadFrame(conn)
		if err != nil {
			if err != io.EOF {
				logger.Debug("session read failed", logger.ClientIP(clientAddr), logger.Err(err))
			}
			return
		}

		if s.Config.Timeouts.Read > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.Config.Timeouts.Read))
		}

		req, err := wire.DecodeRequest(frame.Body)
		if err != nil {
			logger.Debug("malformed request body", logger.ClientIP(clientAddr), logger.Err(err))
			return
		}

		start := time.Now()
		resp := handlers.Dispatch(sess, req)
		status := int32(0)
		if resp != nil {
			status = resp.Status
		}
		s.recordRequestMetrics(sess, req.Command, start, status)

		if resp == nil {
			continue
		}

		if err := wire.WriteFrame(conn, resp.XID, wire.EncodeResponse(*resp)); err != nil {
			logger.Debug("session write failed", logger.ClientIP(clientAddr), logger.Err(err))
			return
		}

		if req.Command == wire.CmdQuit || req.Command == wire.CmdPreMount {
			return
		}
	}
}

// recordRequestMetrics reports one dispatched command's latency and,
// for a mounted session, the current vnode cache and write-block
// gauges (§11). No-op when s.Metrics is nil.
func (s *Server) recordRequestMetrics(sess *handlers.Session, cmd wire.Command, start time.Time, status int32) {
	if s.Metrics == nil {
		return
	}
	s.Metrics.RecordRequest(cmd.String(), time.Since(start), status)
	if sess.Mounted {
		s.Metrics.SetVnodeCacheSize(sess.Share.Name, sess.Vnodes.Len())
		s.Metrics.SetWriteBlockCount(sess.Share.Name, sess.Writes.Len())
	}
}
