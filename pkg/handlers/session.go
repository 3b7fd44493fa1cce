// Package handlers implements the file-operation dispatch table (§4.7):
// the per-session state a mounted connection carries, and the handler
// for every recognized command.
package handlers

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/sharewire/sharewire/pkg/archive"
	"github.com/sharewire/sharewire/pkg/assertion"
	"github.com/sharewire/sharewire/pkg/index"
	"github.com/sharewire/sharewire/pkg/share"
	"github.com/sharewire/sharewire/pkg/vnode"
	"github.com/sharewire/sharewire/pkg/writeblock"
)

// errAssertionUnavailable is returned by ReverifyRights when the
// session has no cached assertion to check, so the caller knows to
// fall back to a full share.ComputeRights call.
var errAssertionUnavailable = errors.New("handlers: no cached rights assertion")

// IndexOpener returns the index store backing a given share, opening it
// on first use. Shares that never call CreateIndex never pay for one.
type IndexOpener func(shareName string) (*index.Store, error)

// Session is the per-connection state the session loop (pkg/server)
// owns for the lifetime of one accepted TCP connection: the bound
// share, the effective rights mask, the vnode cache, and the in-flight
// write blocks. Per §4.3 it is touched by exactly one goroutine at a
// time — the session's own handler loop — so it needs no internal
// locking of its own; the shared share.Table carries its own lock, and
// the vnode cache, which belongs to this session alone, locks itself.
type Session struct {
	ClientAddr string
	LoginTime  time.Time

	Shares      *share.Table
	Auth        share.AuthClient
	OpenIndexes IndexOpener

	// Assertions mints and verifies the cached rights assertion
	// described below. Nil is valid: a session with no Minter simply
	// never caches one, and Mount always falls through to a fresh
	// share.ComputeRights call.
	Assertions *assertion.Minter

	// Archive mirrors committed writes to object storage in the
	// background (§11). Nil disables the mirror entirely.
	Archive *archive.Archiver

	Mounted   bool
	ShareIdx  int
	Share     *share.Share
	Rights    share.Rights
	Principal string

	// Assertion is the signed rights assertion minted at Mount, if
	// Assertions is set. A reload-triggered rebind can call
	// ReverifyRights to re-validate this session's rights without a
	// second round trip to the auth server, as long as the assertion
	// has not expired.
	Assertion string

	Vnodes *vnode.Cache
	Writes *writeblock.Table
	Index  *index.Store

	// Killed is set by the Quit handler. The session loop polls it
	// between requests, per §4.3 step 5. Nothing applies a
	// share.RebindPlan to sessions, so a reload that removes this
	// session's share does not set it.
	Killed atomic.Bool
}

// NewSession returns an unmounted session bound to the process-wide
// share table and auth client; PreMount/Mount populate the rest.
func NewSession(clientAddr string, shares *share.Table, auth share.AuthClient, openIndexes IndexOpener) *Session {
	return &Session{
		ClientAddr:  clientAddr,
		LoginTime:   time.Now(),
		Shares:      shares,
		Auth:        auth,
		OpenIndexes: openIndexes,
	}
}

// rebind updates the session to point at the share table's new index
// for its share, following a reload that moved it (§4.4).
func (s *Session) rebind(newIdx int) {
	s.ShareIdx = newIdx
}

// bindShare completes a successful Mount: records the share, its
// index, the computed rights, and a fresh vnode cache and write-block
// table for this mount.
func (s *Session) bindShare(sh *share.Share, idx int, principal string, rights share.Rights) {
	s.Mounted = true
	s.Share = sh
	s.ShareIdx = idx
	s.Principal = principal
	s.Rights = rights
	s.Vnodes = vnode.New()
	s.Writes = writeblock.New()

	if s.Assertions != nil {
		token, err := s.Assertions.Mint(principal, sh.Name, uint8(rights))
		if err == nil {
			s.Assertion = token
		}
	}
}

// ReverifyRights re-validates this session's cached rights assertion
// against sh without calling out to the auth server, returning the
// rights mask the assertion carries, within the assertion's lifetime.
// It returns errAssertionUnavailable when the session has no minter or
// no assertion; a caller then has to use share.ComputeRights. No code
// in the server calls it.
func (s *Session) ReverifyRights(sh *share.Share) (share.Rights, error) {
	if s.Assertions == nil || s.Assertion == "" {
		return 0, errAssertionUnavailable
	}
	rights, err := s.Assertions.Verify(s.Assertion, s.Principal, sh.Name)
	if err != nil {
		return 0, err
	}
	return share.Rights(rights), nil
}

// Teardown releases resources held for a mounted session: any
// uncommitted write blocks are discarded, per §4.7.1.
func (s *Session) Teardown() {
	if s.Writes != nil {
		s.Writes.DiscardAll()
	}
}
