// Package discovery implements the UDP broadcast responder (§4.8): a
// single socket on the companion port answering HostProbe, ShareProbe,
// HostInfo, and HostUsers queries, plus the supplemented AuthTypes case
// (§12). Unlike the TCP session protocol in internal/wire, discovery is
// connectionless and stateless — one packet in, one unicast reply out,
// no XID, no mount.
package discovery

import (
	"bytes"
	"encoding/binary"
	"net"
	"os"
	"runtime"

	"github.com/sharewire/sharewire/internal/logger"
	"github.com/sharewire/sharewire/internal/wire"
	"github.com/sharewire/sharewire/pkg/share"
)

// Probe identifies which of the discovery queries a packet is asking.
// Values match the legacy BT_REQ_* opcode table bit-for-bit.
type Probe uint8

const (
	ProbeHostProbe  Probe = 1
	ProbeShareProbe Probe = 2
	ProbeHostInfo   Probe = 3
	ProbeHostUsers  Probe = 4
	ProbeAuthTypes  Probe = 5
)

// DefaultPort is the legacy companion discovery port.
const DefaultPort = 9093

// requestSignature is the 6-byte fixed field a discovery packet opens
// with: the same 5-byte "btRPC" literal as the session protocol, NUL
// padded to fill the field (the original populates it with strcpy into
// a 6-byte buffer).
const requestSignatureLen = 6

// requestLen is sizeof(bt_request): signature[6] + command:u8 +
// share[33].
const requestLen = requestSignatureLen + 1 + wire.MaxNameLength + 1

// resourceNameLen is the fixed width of a resource record's name field
// (B_FILE_NAME_LENGTH+1 on the original host platform, unrelated to
// this protocol's own MaxNameLength).
const resourceNameLen = 257

// resourceRecordLen is sizeof(bt_resource): type:u32 + subType:u32 +
// name[257].
const resourceRecordLen = 4 + 4 + resourceNameLen

// resourceTypeSharedFolder and resourceTypeNull are the two resource
// record kinds a ShareProbe reply uses: one entry per visible share,
// terminated by a record whose type is zero.
const (
	resourceTypeSharedFolder uint32 = 1
	resourceTypeNull         uint32 = 0
)

// hostInfoFieldLen is the fixed width of each string field in a
// HostInfo reply.
const hostInfoFieldLen = 64

// hostInfoLen is sizeof(bt_hostinfo): three 64-byte string fields plus
// three u32 LE integers.
const hostInfoLen = hostInfoFieldLen*3 + 4*3

// serviceVersion is the free-text string this implementation reports
// in a HostInfo reply. Open Question #2 (DESIGN.md): no client behavior
// in scope depends on a specific value, so this identifies the server
// rather than mimicking the legacy version string.
const serviceVersion = "sharewire 1.0"

// SessionLister answers the questions a HostInfo/HostUsers reply needs
// about currently connected sessions. *pkg/server.Server implements
// this; it is a narrow interface so discovery can be tested without a
// running TCP server.
type SessionLister interface {
	ActiveClientAddrs() []string
	MaxSessions() int
}

// Responder owns the discovery socket and answers probes against a
// share table and a session lister until Close is called.
type Responder struct {
	conn     net.PacketConn
	shares   *share.Table
	sessions SessionLister
}

// Listen binds the discovery socket on addr (host:port, typically
// ":9093") and returns a Responder ready to Serve.
func Listen(addr string, shares *share.Table, sessions SessionLister) (*Responder, error) {
	conn, err := net.ListenPacket("udp4", addr)
	if err != nil {
		return nil, err
	}
	return &Responder{conn: conn, shares: shares, sessions: sessions}, nil
}

// Close releases the discovery socket, unblocking a concurrent Serve.
func (r *Responder) Close() error {
	return r.conn.Close()
}

// Serve reads discovery packets until the socket is closed, replying
// unicast to each sender. Per §4.8, unknown commands are ignored: no
// reply is sent, and the loop continues. Serve is meant to run in its
// own goroutine, the discovery responder's dedicated task (§5).
func (r *Responder) Serve() error {
	buf := make([]byte, requestLen)
	for {
		n, clientAddr, err := r.conn.ReadFrom(buf)
		if err != nil {
			return err
		}

		probe, ok := decodeProbe(buf[:n])
		if !ok {
			continue
		}

		reply := r.handle(probe)
		if reply == nil {
			continue
		}
		if _, err := r.conn.WriteTo(reply, clientAddr); err != nil {
			logger.Debug("discovery reply failed", logger.ClientIP(clientAddr.String()), logger.Err(err))
		}
	}
}

// decodeProbe validates the fixed request signature and extracts the
// command byte. The share field is present in the wire layout but
// unused by every probe kind this responder implements, matching the
// original's own handling.
func decodeProbe(buf []byte) (Probe, bool) {
	if len(buf) < requestSignatureLen+1 {
		return 0, false
	}
	if !bytes.Equal(buf[:len(wire.Signature)], []byte(wire.Signature)) {
		return 0, false
	}
	return Probe(buf[requestSignatureLen]), true
}

func (r *Responder) handle(p Probe) []byte {
	switch p {
	case ProbeHostProbe:
		return r.hostProbe()
	case ProbeShareProbe:
		return r.shareProbe()
	case ProbeHostInfo:
		return r.hostInfo()
	case ProbeHostUsers:
		return r.hostUsers()
	case ProbeAuthTypes:
		// Always replies, with an empty set: SPEC_FULL.md §12 keeps this
		// case recognized rather than silently dropped, matching the
		// original's always-reply behavior, but this build has no
		// external auth-class catalog to report (Non-goal: no LDAP/
		// Kerberos identity source).
		return []byte{}
	default:
		return nil
	}
}

func (r *Responder) hostProbe() []byte {
	name, _ := os.Hostname()
	return []byte(name)
}

// shareProbe lists every share visible to an unauthenticated probe: an
// AuthNone share is always visible, an AuthExternal share only if
// marked Promiscuous. Rights are never computed here — mount is the
// only place rights are enforced, regardless of visibility.
func (r *Responder) shareProbe() []byte {
	shares := r.shares.All()

	buf := make([]byte, 0, (len(shares)+1)*resourceRecordLen)
	for _, s := range shares {
		if s.AuthClass == share.AuthExternal && !s.Promiscuous {
			continue
		}
		buf = append(buf, encodeResource(resourceTypeSharedFolder, s.Name)...)
	}
	buf = append(buf, encodeResource(resourceTypeNull, "")...)
	return buf
}

func encodeResource(resourceType uint32, name string) []byte {
	rec := make([]byte, resourceRecordLen)
	binary.LittleEndian.PutUint32(rec[0:4], resourceType)
	// subType is unused by a shared-folder resource; left zero.
	copy(rec[8:], name)
	return rec
}

func (r *Responder) hostInfo() []byte {
	buf := make([]byte, hostInfoLen)
	name, _ := os.Hostname()
	copy(buf[0:hostInfoFieldLen], name)
	copy(buf[hostInfoFieldLen:2*hostInfoFieldLen], serviceVersion)
	copy(buf[2*hostInfoFieldLen:3*hostInfoFieldLen], runtime.GOOS+"/"+runtime.GOARCH)

	off := 3 * hostInfoFieldLen
	binary.LittleEndian.PutUint32(buf[off:], uint32(runtime.NumCPU()))
	binary.LittleEndian.PutUint32(buf[off+4:], uint32(len(r.sessions.ActiveClientAddrs())))
	binary.LittleEndian.PutUint32(buf[off+8:], uint32(r.sessions.MaxSessions()))
	return buf
}

// hostUsers packs the connected sessions' peer addresses as a
// NUL-separated list, terminated by a second NUL (an empty entry),
// matching the original's buffer convention.
func (r *Responder) hostUsers() []byte {
	addrs := r.sessions.ActiveClientAddrs()

	var buf bytes.Buffer
	for _, a := range addrs {
		host, _, err := net.SplitHostPort(a)
		if err != nil {
			host = a
		}
		buf.WriteString(host)
		buf.WriteByte(0)
	}
	buf.WriteByte(0)
	return buf.Bytes()
}
