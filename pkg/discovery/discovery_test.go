package discovery

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/sharewire/sharewire/internal/shareconf"
	"github.com/sharewire/sharewire/internal/wire"
	"github.com/sharewire/sharewire/pkg/share"
)

type fakeSessions struct {
	addrs []string
	max   int
}

func (f fakeSessions) ActiveClientAddrs() []string { return f.addrs }
func (f fakeSessions) MaxSessions() int            { return f.max }

func newTestTable(t *testing.T, lines []string) *share.Table {
	t.Helper()
	directives, err := shareconf.Parse(lines)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	table, err := share.Load(directives, func(string) error { return nil })
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return table
}

func encodeRequest(t *testing.T, probe Probe) []byte {
	t.Helper()
	buf := make([]byte, requestLen)
	copy(buf, wire.Signature)
	buf[requestSignatureLen] = byte(probe)
	return buf
}

func dial(t *testing.T, r *Responder) net.Conn {
	t.Helper()
	conn, err := net.Dial("udp4", r.conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func probeAndRead(t *testing.T, conn net.Conn, probe Probe) []byte {
	t.Helper()
	if _, err := conn.Write(encodeRequest(t, probe)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return buf[:n]
}

func TestHostProbeRepliesWithHostname(t *testing.T) {
	table := newTestTable(t, nil)
	r, err := Listen("127.0.0.1:0", table, fakeSessions{})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer r.Close()
	go r.Serve()

	conn := dial(t, r)
	reply := probeAndRead(t, conn, ProbeHostProbe)
	if len(reply) == 0 {
		t.Fatal("expected a non-empty hostname reply")
	}
}

func TestShareProbeHidesNonPromiscuousAuthExternalShare(t *testing.T) {
	table := newTestTable(t, []string{
		`share "/tmp/pub" as "pub"`,
		`share "/tmp/priv" as "priv"`,
		`authenticate with "auth.example.com"`,
	})

	r, err := Listen("127.0.0.1:0", table, fakeSessions{})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer r.Close()
	go r.Serve()

	conn := dial(t, r)
	reply := probeAndRead(t, conn, ProbeShareProbe)

	// Both shares became AuthExternal once "authenticate with" was
	// parsed, and neither is Promiscuous: the reply should carry only
	// the terminating null resource record.
	if len(reply) != resourceRecordLen {
		t.Fatalf("reply len = %d, want exactly one terminator record (%d)", len(reply), resourceRecordLen)
	}
	recType := binary.LittleEndian.Uint32(reply[0:4])
	if recType != resourceTypeNull {
		t.Errorf("record type = %d, want terminator", recType)
	}
}

func TestShareProbeShowsPromiscuousAuthExternalShare(t *testing.T) {
	table := newTestTable(t, []string{
		`share "/tmp/pub" as "pub" promiscuous`,
		`authenticate with "auth.example.com"`,
	})

	r, err := Listen("127.0.0.1:0", table, fakeSessions{})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer r.Close()
	go r.Serve()

	conn := dial(t, r)
	reply := probeAndRead(t, conn, ProbeShareProbe)

	if len(reply) != 2*resourceRecordLen {
		t.Fatalf("reply len = %d, want one share record plus terminator (%d)", len(reply), 2*resourceRecordLen)
	}
	name := bytes.TrimRight(reply[8:8+resourceNameLen], "\x00")
	if string(name) != "pub" {
		t.Errorf("resource name = %q, want \"pub\"", name)
	}
}

func TestHostInfoReportsSessionCounts(t *testing.T) {
	table := newTestTable(t, nil)
	sessions := fakeSessions{addrs: []string{"10.0.0.1:5000", "10.0.0.2:5001"}, max: 100}

	r, err := Listen("127.0.0.1:0", table, sessions)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer r.Close()
	go r.Serve()

	conn := dial(t, r)
	reply := probeAndRead(t, conn, ProbeHostInfo)

	if len(reply) != hostInfoLen {
		t.Fatalf("reply len = %d, want %d", len(reply), hostInfoLen)
	}
	off := 3 * hostInfoFieldLen
	connections := binary.LittleEndian.Uint32(reply[off+4:])
	maxConnections := binary.LittleEndian.Uint32(reply[off+8:])
	if connections != 2 {
		t.Errorf("connections = %d, want 2", connections)
	}
	if maxConnections != 100 {
		t.Errorf("maxConnections = %d, want 100", maxConnections)
	}
}

func TestHostUsersListsPeerAddressesDoubleNullTerminated(t *testing.T) {
	table := newTestTable(t, nil)
	sessions := fakeSessions{addrs: []string{"10.0.0.1:5000", "10.0.0.2:5001"}}

	r, err := Listen("127.0.0.1:0", table, sessions)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer r.Close()
	go r.Serve()

	conn := dial(t, r)
	reply := probeAndRead(t, conn, ProbeHostUsers)

	parts := bytes.Split(bytes.TrimRight(reply, "\x00"), []byte{0})
	if len(parts) != 2 {
		t.Fatalf("got %d addresses, want 2: %q", len(parts), reply)
	}
	if string(parts[0]) != "10.0.0.1" || string(parts[1]) != "10.0.0.2" {
		t.Errorf("addresses = %q, %q", parts[0], parts[1])
	}
	if reply[len(reply)-1] != 0 {
		t.Error("expected trailing NUL terminator")
	}
}

func TestAuthTypesRepliesEmpty(t *testing.T) {
	table := newTestTable(t, nil)
	r, err := Listen("127.0.0.1:0", table, fakeSessions{})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer r.Close()
	go r.Serve()

	conn := dial(t, r)
	if _, err := conn.Write(encodeRequest(t, ProbeAuthTypes)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// The AuthTypes reply is a zero-length datagram; read it first so the
	// HostProbe reply below is not confused with it.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("Read AuthTypes reply: %v", err)
	}
	if n != 0 {
		t.Fatalf("AuthTypes reply = %d bytes, want 0", n)
	}

	// The responder keeps answering other probes afterwards.
	reply := probeAndRead(t, conn, ProbeHostProbe)
	if len(reply) == 0 {
		t.Fatal("expected responder to keep answering after AuthTypes")
	}
}

func TestUnknownCommandIsIgnored(t *testing.T) {
	table := newTestTable(t, nil)
	r, err := Listen("127.0.0.1:0", table, fakeSessions{})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer r.Close()
	go r.Serve()

	conn := dial(t, r)
	if _, err := conn.Write(encodeRequest(t, Probe(99))); err != nil {
		t.Fatalf("Write: %v", err)
	}

	reply := probeAndRead(t, conn, ProbeHostProbe)
	if len(reply) == 0 {
		t.Fatal("expected responder to keep answering after an unknown command")
	}
}
