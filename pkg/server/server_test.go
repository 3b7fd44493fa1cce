package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/sharewire/sharewire/internal/shareconf"
	"github.com/sharewire/sharewire/internal/shareerr"
	"github.com/sharewire/sharewire/internal/wire"
	"github.com/sharewire/sharewire/pkg/handlers"
	"github.com/sharewire/sharewire/pkg/share"
)

type noAuth struct{}

func (noAuth) Authenticate(user, token string) (bool, error) { return true, nil }
func (noAuth) WhichGroups(user string) ([]string, error)     { return nil, nil }

func newTestServer(t *testing.T, cfg Config) (*Server, net.Listener) {
	t.Helper()
	root := t.TempDir()
	directives, err := shareconf.Parse([]string{
		`share "` + root + `" as "pub"`,
		`set "pub" read-write`,
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	table, err := share.Load(directives, func(string) error { return nil })
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	srv := New(table, noAuth{}, handlers.IndexOpener(nil), cfg)
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx, ln)
	t.Cleanup(func() {
		cancel()
		srv.Shutdown()
	})
	return srv, ln
}

func sendRequest(t *testing.T, conn net.Conn, req wire.Request) wire.Response {
	t.Helper()
	body, err := wire.EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}
	if err := wire.WriteFrame(conn, req.XID, body); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	frame, err := wire.ReadFrame(conn)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	resp, err := wire.DecodeResponse(frame.Body)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	return resp
}

func TestMountOverRealConnection(t *testing.T) {
	_, ln := newTestServer(t, Config{})

	conn, err := net.DialTimeout("tcp", ln.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	resp := sendRequest(t, conn, wire.Request{
		Command: wire.CmdMount,
		Args:    []wire.Arg{wire.StringArg("pub"), wire.StringArg("alice"), wire.RawArg(nil)},
		XID:     7,
	})
	if resp.Status != shareerr.StatusOK {
		t.Fatalf("Mount status = %d, want OK", resp.Status)
	}
	if resp.XID != 7 {
		t.Errorf("reply XID = %d, want 7", resp.XID)
	}

	resp = sendRequest(t, conn, wire.Request{Command: wire.CmdQuit, XID: 8})
	if resp.Status != shareerr.StatusOK {
		t.Fatalf("Quit status = %d, want OK", resp.Status)
	}
}

func TestOverLimitConnectionGetsBusyReply(t *testing.T) {
	_, ln := newTestServer(t, Config{MaxSessions: 1})

	held, err := net.DialTimeout("tcp", ln.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer held.Close()
	// Give the accept loop a moment to claim the one session slot.
	time.Sleep(50 * time.Millisecond)

	turned, err := net.DialTimeout("tcp", ln.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer turned.Close()

	frame, err := wire.ReadFrame(turned)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	resp, err := wire.DecodeResponse(frame.Body)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if resp.Status != shareerr.StatusEBUSY {
		t.Errorf("status = %d, want EBUSY", resp.Status)
	}
}
