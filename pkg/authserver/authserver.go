// Package authserver implements the authentication peer's wire handler
// (§4.5): the Authenticate and WhichGroups RPCs that pkg/authclient
// calls, served against a pkg/identity.Store. Unlike pkg/server's file
// share sessions, each call here is a single request/response (or, for
// WhichGroups, a short terminated sequence) over its own connection;
// there is no mount, no share table, and no XID correlation beyond
// echoing the request's own.
package authserver

import (
	"context"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/sharewire/sharewire/internal/logger"
	"github.com/sharewire/sharewire/internal/shareerr"
	"github.com/sharewire/sharewire/internal/wire"
	"github.com/sharewire/sharewire/pkg/identity"
)

// Server serves the authentication exchange against one identity
// store.
type Server struct {
	Identity *identity.Store

	wg        sync.WaitGroup
	shutdown  chan struct{}
	closeOnce sync.Once
}

// New returns a Server backed by store.
func New(store *identity.Store) *Server {
	return &Server{Identity: store, shutdown: make(chan struct{})}
}

// Serve accepts connections on ln until ctx is cancelled or Shutdown is
// called, blocking until every in-flight call has returned.
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
				logger.Warn("authserver: accept failed", logger.Err(err))
				continue
			}
		}

		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

// Shutdown stops the accept loop and causes Serve to return once every
// in-flight call has drained. Safe to call more than once.
func (s *Server) Shutdown() {
	s.closeOnce.Do(func() { close(s.shutdown) })
}

func (s *Server) serveConn(conn net.Conn) {
	clientAddr := conn.RemoteAddr().String()
	defer func() {
		s.wg.Done()
		_ = conn.Close()
		if r := recover(); r != nil {
			logger.Error("panic in authserver call", logger.ClientIP(clientAddr), logger.Err(fmt.Errorf("%v", r)))
			logger.Error(string(debug.Stack()))
		}
	}()

	frame, err := wire.ReadFrame(conn)
	if err != nil {
		if err != io.EOF {
			logger.Debug("authserver: read failed", logger.ClientIP(clientAddr), logger.Err(err))
		}
		return
	}

	req, err := wire.DecodeRequest(frame.Body)
	if err != nil {
		logger.Debug("authserver: malformed request", logger.ClientIP(clientAddr), logger.Err(err))
		return
	}

	switch req.Command {
	case wire.CmdAuthenticate:
		s.handleAuthenticate(conn, req)
	case wire.CmdWhichGroups:
		s.handleWhichGroups(conn, req)
	default:
		logger.Debug("authserver: unsupported command", logger.ClientIP(clientAddr), logger.Command(req.Command.String()))
		resp := wire.Response{XID: req.XID, Status: shareerr.StatusEOPNOTSUPP}
		_ = wire.WriteFrame(conn, resp.XID, wire.EncodeResponse(resp))
	}
}

// handleAuthenticate validates the username/token pair carried by req
// and replies with a single ok/not-ok status, matching §4.5.
func (s *Server) handleAuthenticate(conn net.Conn, req wire.Request) {
	username, token, err := decodeAuthenticateArgs(req)
	if err != nil {
		logger.Debug("authserver: malformed authenticate args", logger.Err(err))
		s.reply(conn, req.XID, shareerr.StatusEINVAL)
		return
	}

	ctx := context.Background()
	password := decodeToken(token)
	if _, err := s.Identity.Authenticate(ctx, username, password); err != nil {
		s.reply(conn, req.XID, shareerr.StatusEACCES)
		return
	}
	s.reply(conn, req.XID, shareerr.StatusOK)
}

// handleWhichGroups replies with the terminated group-name sequence
// §4.5 describes: one ok-status frame per group the principal belongs
// to, followed by a final non-ok frame that ends the sequence.
func (s *Server) handleWhichGroups(conn net.Conn, req wire.Request) {
	if len(req.Args) != 1 {
		s.reply(conn, req.XID, shareerr.StatusEINVAL)
		return
	}
	username, err := req.Args[0].String()
	if err != nil {
		s.reply(conn, req.XID, shareerr.StatusEINVAL)
		return
	}

	groups, err := s.Identity.WhichGroups(context.Background(), username)
	if err != nil {
		s.reply(conn, req.XID, shareerr.StatusENOENT)
		return
	}

	for _, name := range groups {
		resp := wire.Response{XID: req.XID, Status: shareerr.StatusOK, Payload: wire.StringArg(name).Data}
		if err := wire.WriteFrame(conn, resp.XID, wire.EncodeResponse(resp)); err != nil {
			return
		}
	}
	s.reply(conn, req.XID, shareerr.StatusENOENT)
}

func (s *Server) reply(conn net.Conn, xid uint32, status int32) {
	resp := wire.Response{XID: xid, Status: status}
	_ = wire.WriteFrame(conn, resp.XID, wire.EncodeResponse(resp))
}

func decodeAuthenticateArgs(req wire.Request) (username string, token []byte, err error) {
	if len(req.Args) != 2 {
		return "", nil, fmt.Errorf("authserver: authenticate wants 2 args, got %d", len(req.Args))
	}
	username, err = req.Args[0].String()
	if err != nil {
		return "", nil, err
	}
	token, err = req.Args[1].Bytes()
	if err != nil {
		return "", nil, err
	}
	return username, token, nil
}

// decodeToken reduces the fixed-length "encrypted" credential blob
// (§4.5, §9 decision 5) to a plaintext password by trimming its
// trailing NUL padding. No legacy credential-obfuscation scheme is
// reversed here; the blob is treated as a NUL-padded plaintext
// password end to end.
func decodeToken(token []byte) string {
	return strings.TrimRight(string(token), "\x00")
}
