package handlers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sharewire/sharewire/internal/shareconf"
	"github.com/sharewire/sharewire/internal/shareerr"
	"github.com/sharewire/sharewire/internal/wire"
	"github.com/sharewire/sharewire/pkg/assertion"
	"github.com/sharewire/sharewire/pkg/index"
	"github.com/sharewire/sharewire/pkg/share"
)

// noAuth is the AuthNone fixture: every test share grants rights purely
// from the read-only flag, so no AuthClient call is ever expected.
type noAuth struct{}

func (noAuth) Authenticate(user, token string) (bool, error) { return true, nil }
func (noAuth) WhichGroups(user string) ([]string, error)     { return nil, nil }

func newFixtureSession(t *testing.T, root string) (*Session, *share.Table) {
	t.Helper()
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

	opener := func(shareName string) (*index.Store, error) {
		return index.Open(filepath.Join(root, ".idx-"+shareName))
	}
	return NewSession("127.0.0.1:1234", table, noAuth{}, opener), table
}

func req(cmd wire.Command, args ...wire.Arg) wire.Request {
	return wire.Request{Command: cmd, Args: args, XID: 1}
}

func mustMount(t *testing.T, sess *Session) uint64 {
	t.Helper()
	resp := Dispatch(sess, req(wire.CmdMount, wire.StringArg("pub"), wire.StringArg("alice"), wire.RawArg(nil)))
	if resp.Status != shareerr.StatusOK {
		t.Fatalf("Mount status = %d, want OK", resp.Status)
	}
	r := payloadReader{data: resp.Payload}
	rootVnid, err := r.Uint64()
	if err != nil {
		t.Fatalf("decode root vnid: %v", err)
	}
	return rootVnid
}

func TestPreMountReportsAuthClass(t *testing.T) {
	sess, _ := newFixtureSession(t, t.TempDir())
	resp := Dispatch(sess, req(wire.CmdPreMount, wire.StringArg("pub")))
	if resp.Status != int32(share.AuthNone) {
		t.Errorf("PreMount status = %d, want %d", resp.Status, share.AuthNone)
	}
}

func TestPreMountUnknownShare(t *testing.T) {
	sess, _ := newFixtureSession(t, t.TempDir())
	resp := Dispatch(sess, req(wire.CmdPreMount, wire.StringArg("nope")))
	if resp.Status != shareerr.StatusENOENT {
		t.Errorf("status = %d, want ENOENT", resp.Status)
	}
}

func TestMountBindsRootVnid(t *testing.T) {
	sess, _ := newFixtureSession(t, t.TempDir())
	rootVnid := mustMount(t, sess)
	if rootVnid == 0 {
		t.Error("expected a non-zero root vnid")
	}
	if !sess.Mounted {
		t.Error("expected session to be mounted")
	}
	if !sess.Rights.Has(share.Write) {
		t.Error("expected write rights on a read-write share")
	}
}

func TestMountCachesRightsAssertion(t *testing.T) {
	sess, _ := newFixtureSession(t, t.TempDir())
	sess.Assertions = assertion.NewMinter([]byte("test-secret"), time.Minute)

	mustMount(t, sess)
	if sess.Assertion == "" {
		t.Fatal("expected Mount to cache a rights assertion")
	}

	rights, err := sess.ReverifyRights(sess.Share)
	if err != nil {
		t.Fatalf("ReverifyRights: %v", err)
	}
	if rights != sess.Rights {
		t.Errorf("ReverifyRights = %d, want %d", rights, sess.Rights)
	}
}

func TestReverifyRightsWithoutAssertionFails(t *testing.T) {
	sess, _ := newFixtureSession(t, t.TempDir())
	mustMount(t, sess)
	if _, err := sess.ReverifyRights(sess.Share); err == nil {
		t.Error("expected ReverifyRights to fail with no cached assertion")
	}
}

func TestDispatchRejectsUnmountedSession(t *testing.T) {
	sess, _ := newFixtureSession(t, t.TempDir())
	resp := Dispatch(sess, req(wire.CmdStat, wire.Int64Arg(1)))
	if resp.Status != shareerr.StatusEINVAL {
		t.Errorf("status = %d, want EINVAL", resp.Status)
	}
}

func TestDispatchRejectsWrongArgCount(t *testing.T) {
	sess, _ := newFixtureSession(t, t.TempDir())
	mustMount(t, sess)
	resp := Dispatch(sess, req(wire.CmdStat))
	if resp.Status != shareerr.StatusEINVAL {
		t.Errorf("status = %d, want EINVAL", resp.Status)
	}
}

func TestDispatchEnforcesWriteRightsForMutatingCommands(t *testing.T) {
	root := t.TempDir()
	directives, err := shareconf.Parse([]string{
		`share "` + root + `" as "ro"`,
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	table, err := share.Load(directives, func(string) error { return nil })
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sess := NewSession("127.0.0.1:1", table, noAuth{}, nil)
	resp := Dispatch(sess, req(wire.CmdMount, wire.StringArg("ro"), wire.StringArg("alice"), wire.RawArg(nil)))
	if resp.Status != shareerr.StatusOK {
		t.Fatalf("Mount status = %d, want OK", resp.Status)
	}
	if sess.Rights.Has(share.Write) {
		t.Fatal("expected a read-only share to deny write rights")
	}

	resp = Dispatch(sess, req(wire.CmdMkDir, wire.Int64Arg(0), wire.StringArg("x"), wire.Int32Arg(0755)))
	if resp.Status != shareerr.StatusEACCES {
		t.Errorf("status = %d, want EACCES", resp.Status)
	}
}

func TestCreateLookupReadWriteCommitRoundTrip(t *testing.T) {
	root := t.TempDir()
	sess, _ := newFixtureSession(t, root)
	rootVnid := mustMount(t, sess)

	resp := Dispatch(sess, req(wire.CmdCreate, vnidArgValue(rootVnid), wire.StringArg("file.txt"), wire.Int32Arg(0), wire.Int32Arg(0644)))
	if resp.Status != shareerr.StatusOK {
		t.Fatalf("Create status = %d, want OK", resp.Status)
	}
	r := payloadReader{data: resp.Payload}
	fileVnid, err := r.Uint64()
	if err != nil {
		t.Fatalf("decode file vnid: %v", err)
	}

	// First chunk opens the write block and carries the total length.
	resp = Dispatch(sess, req(wire.CmdWrite, vnidArgValue(fileVnid), wire.Int64Arg(0), wire.Int32Arg(5), wire.Int64Arg(5), wire.RawArg([]byte("hello"))))
	if resp != nil {
		t.Fatalf("expected Write to reply nil, got status %d", resp.Status)
	}

	resp = Dispatch(sess, req(wire.CmdCommit, vnidArgValue(fileVnid)))
	if resp.Status != shareerr.StatusOK {
		t.Fatalf("Commit status = %d, want OK", resp.Status)
	}

	resp = Dispatch(sess, req(wire.CmdRead, vnidArgValue(fileVnid), wire.Int64Arg(0), wire.Int32Arg(1024)))
	if resp.Status != shareerr.StatusOK {
		t.Fatalf("Read status = %d, want OK", resp.Status)
	}
	r = payloadReader{data: resp.Payload}
	data, err := r.Bytes()
	if err != nil {
		t.Fatalf("decode read bytes: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Read data = %q, want %q", data, "hello")
	}

	// Lookup must find the same file by name from the root.
	resp = Dispatch(sess, req(wire.CmdLookup, vnidArgValue(rootVnid), wire.StringArg("file.txt")))
	if resp.Status != shareerr.StatusOK {
		t.Fatalf("Lookup status = %d, want OK", resp.Status)
	}
	r = payloadReader{data: resp.Payload}
	lookedUp, err := r.Uint64()
	if err != nil {
		t.Fatalf("decode looked-up vnid: %v", err)
	}
	if lookedUp != fileVnid {
		t.Errorf("Lookup vnid = %d, want %d", lookedUp, fileVnid)
	}
}

func TestReadDirPaginatesAndExhausts(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 3; i++ {
		name := filepath.Join(root, string(rune('a'+i))+".txt")
		if err := os.WriteFile(name, []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	sess, _ := newFixtureSession(t, root)
	rootVnid := mustMount(t, sess)

	resp := Dispatch(sess, req(wire.CmdReadDir, vnidArgValue(rootVnid), wire.Int64Arg(0)))
	if resp.Status != shareerr.StatusOK {
		t.Fatalf("ReadDir status = %d, want OK", resp.Status)
	}

	// Exhaust the listing by repeatedly asking past the end via a huge
	// cookie, mirroring §4.7.2's "cookie beyond the end" edge case.
	resp = Dispatch(sess, req(wire.CmdReadDir, vnidArgValue(rootVnid), wire.Int64Arg(1000)))
	if resp.Status != shareerr.StatusENOENT {
		t.Errorf("status = %d, want ENOENT once exhausted", resp.Status)
	}
}

func TestWriteAttribReadAttribRoundTrip(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "f.txt")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	sess, _ := newFixtureSession(t, root)
	rootVnid := mustMount(t, sess)

	resp := Dispatch(sess, req(wire.CmdLookup, vnidArgValue(rootVnid), wire.StringArg("f.txt")))
	if resp.Status != shareerr.StatusOK {
		t.Fatalf("Lookup status = %d, want OK", resp.Status)
	}
	r := payloadReader{data: resp.Payload}
	fileVnid, _ := r.Uint64()

	resp = Dispatch(sess, req(wire.CmdWriteAttrib, vnidArgValue(fileVnid), wire.StringArg("MIME:TYPE"),
		wire.Int64Arg(int64(wire.ArgTypeRaw)), wire.RawArg([]byte("text/plain")), wire.Int32Arg(0), wire.Int32Arg(10)))
	if resp.Status != shareerr.StatusOK {
		if resp.Status == shareerr.StatusEINVAL {
			t.Skip("host filesystem does not support xattrs")
		}
		t.Fatalf("WriteAttrib status = %d, want OK", resp.Status)
	}

	resp = Dispatch(sess, req(wire.CmdReadAttrib, vnidArgValue(fileVnid), wire.StringArg("MIME:TYPE"),
		wire.Int64Arg(int64(wire.ArgTypeRaw)), wire.Int32Arg(0), wire.Int32Arg(-1)))
	if resp.Status != shareerr.StatusOK {
		t.Fatalf("ReadAttrib status = %d, want OK", resp.Status)
	}
	rr := payloadReader{data: resp.Payload}
	value, err := rr.Bytes()
	if err != nil {
		t.Fatalf("decode attrib bytes: %v", err)
	}
	if string(value) != "text/plain" {
		t.Errorf("attrib value = %q, want %q", value, "text/plain")
	}
}

func TestTrkAttributesAreHiddenFromReadAttrib(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "f.txt")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	sess, _ := newFixtureSession(t, root)
	rootVnid := mustMount(t, sess)
	resp := Dispatch(sess, req(wire.CmdLookup, vnidArgValue(rootVnid), wire.StringArg("f.txt")))
	r := payloadReader{data: resp.Payload}
	fileVnid, _ := r.Uint64()

	resp = Dispatch(sess, req(wire.CmdReadAttrib, vnidArgValue(fileVnid), wire.StringArg(trkPrefix+"anything"),
		wire.Int64Arg(int64(wire.ArgTypeRaw)), wire.Int32Arg(0), wire.Int32Arg(-1)))
	if resp.Status != shareerr.StatusENOENT {
		t.Errorf("status = %d, want ENOENT for a _trk/ attribute", resp.Status)
	}
}

func TestCreateIndexAndReadIndexDir(t *testing.T) {
	root := t.TempDir()
	sess, _ := newFixtureSession(t, root)
	mustMount(t, sess)
	defer func() {
		if sess.Index != nil {
			sess.Index.Close()
		}
	}()

	resp := Dispatch(sess, req(wire.CmdCreateIndex, wire.StringArg("name"), wire.Int32Arg(int32(index.TypeString))))
	if resp.Status != shareerr.StatusOK {
		t.Fatalf("CreateIndex status = %d, want OK", resp.Status)
	}

	store, err := sessionIndex(sess)
	if err != nil {
		t.Fatalf("sessionIndex: %v", err)
	}
	if err := store.Put("name", index.Entry{Key: "alice", Vnid: 42, ParentVnid: 1, Name: "alice.txt"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	resp = Dispatch(sess, req(wire.CmdReadIndexDir, wire.StringArg("name"), wire.Int64Arg(0)))
	if resp.Status != shareerr.StatusOK {
		t.Fatalf("ReadIndexDir status = %d, want OK", resp.Status)
	}

	resp = Dispatch(sess, req(wire.CmdReadQuery, wire.Int64Arg(0), wire.StringArg("name:alice")))
	if resp.Status != shareerr.StatusOK {
		t.Fatalf("ReadQuery status = %d, want OK", resp.Status)
	}
	rr := payloadReader{data: resp.Payload}
	vnid, err := rr.Uint64()
	if err != nil {
		t.Fatalf("decode query vnid: %v", err)
	}
	if vnid != 42 {
		t.Errorf("query vnid = %d, want 42", vnid)
	}
}

func TestQuitTearsDownSession(t *testing.T) {
	sess, _ := newFixtureSession(t, t.TempDir())
	mustMount(t, sess)
	resp := Dispatch(sess, req(wire.CmdQuit))
	if resp.Status != shareerr.StatusOK {
		t.Fatalf("Quit status = %d, want OK", resp.Status)
	}
	if !sess.Killed.Load() {
		t.Error("expected Killed to be set after Quit")
	}
}

func TestUnsupportedCommandRepliesEOPNOTSUPP(t *testing.T) {
	sess, _ := newFixtureSession(t, t.TempDir())
	mustMount(t, sess)
	resp := Dispatch(sess, req(wire.CmdPrintJobNew))
	if resp.Status != shareerr.StatusEOPNOTSUPP {
		t.Errorf("status = %d, want EOPNOTSUPP", resp.Status)
	}
}
