// Package wire implements the framed RPC codec shared by the server, the
// client transport, and the authentication peer: the length-prefixed
// "btRPC" packet header, the request/response body layouts, and the typed
// argument encoding described by the legacy protocol.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Signature is the 5-byte ASCII literal that opens every frame.
const Signature = "btRPC"

const (
	headerLen = len(Signature) + 4 + 4 // signature + xid + body_len

	// MaxBodyLen is the largest body a frame may carry; larger frames are
	// refused and the connection dropped.
	MaxBodyLen = 18 * 1024

	// MaxCommandArgs bounds argc on a request body.
	MaxCommandArgs = 10

	// MaxIOBuffer bounds a single Read/Write payload.
	MaxIOBuffer = 8192

	// CmdTerminator is the single trailing byte of a request body.
	CmdTerminator = 0x0D

	// MaxNameLength bounds a share or resource name in both the session
	// protocol and the discovery packet layouts.
	MaxNameLength = 32
)

// Command identifies an RPC operation. Values match the legacy BT_CMD_*
// opcode table bit-for-bit so the framing stays wire-compatible.
type Command uint8

const (
	CmdPreMount Command = 0
	CmdMount    Command = 1
	CmdFSInfo   Command = 2
	CmdLookup   Command = 3
	CmdStat     Command = 4
	CmdReadDir  Command = 5
	CmdRead     Command = 6
	CmdWrite    Command = 7
	CmdCreate   Command = 8
	CmdTruncate Command = 9
	CmdMkDir    Command = 10
	CmdRmDir    Command = 11
	CmdRename   Command = 12
	CmdUnlink   Command = 13
	CmdReadLink Command = 14
	CmdSymLink  Command = 15
	CmdWStat    Command = 16

	CmdReadAttrib    Command = 50
	CmdWriteAttrib   Command = 51
	CmdReadAttribDir Command = 52
	CmdRemoveAttrib  Command = 53
	CmdStatAttrib    Command = 54

	CmdReadIndexDir Command = 60
	CmdCreateIndex  Command = 61
	CmdRemoveIndex  Command = 62
	CmdStatIndex    Command = 63

	CmdReadQuery Command = 70

	CmdCommit Command = 80

	CmdPrintJobNew    Command = 200
	CmdPrintJobData   Command = 201
	CmdPrintJobCommit Command = 202

	CmdAuthenticate Command = 210
	// CmdWhichGroups is served only by the authentication peer (§4.5),
	// not by the file-share session dispatch table in §4.7.
	CmdWhichGroups Command = 211

	CmdQuit Command = 255
)

var commandNames = map[Command]string{
	CmdPreMount:       "PreMount",
	CmdMount:          "Mount",
	CmdFSInfo:         "FSInfo",
	CmdLookup:         "Lookup",
	CmdStat:           "Stat",
	CmdReadDir:        "ReadDir",
	CmdRead:           "Read",
	CmdWrite:          "Write",
	CmdCreate:         "Create",
	CmdTruncate:       "Truncate",
	CmdMkDir:          "MkDir",
	CmdRmDir:          "RmDir",
	CmdRename:         "Rename",
	CmdUnlink:         "Unlink",
	CmdReadLink:       "ReadLink",
	CmdSymLink:        "SymLink",
	CmdWStat:          "WStat",
	CmdReadAttrib:     "ReadAttrib",
	CmdWriteAttrib:    "WriteAttrib",
	CmdReadAttribDir:  "ReadAttribDir",
	CmdRemoveAttrib:   "RemoveAttrib",
	CmdStatAttrib:     "StatAttrib",
	CmdReadIndexDir:   "ReadIndexDir",
	CmdCreateIndex:    "CreateIndex",
	CmdRemoveIndex:    "RemoveIndex",
	CmdStatIndex:      "StatIndex",
	CmdReadQuery:      "ReadQuery",
	CmdCommit:         "Commit",
	CmdPrintJobNew:    "PrintJobNew",
	CmdPrintJobData:   "PrintJobData",
	CmdPrintJobCommit: "PrintJobCommit",
	CmdAuthenticate:   "Authenticate",
	CmdWhichGroups:    "WhichGroups",
	CmdQuit:           "Quit",
}

// String returns the command's name, or "Unknown(n)" if unrecognized.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint8(c))
}

// Frame is one decoded "btRPC"-framed packet: a transaction id plus the raw
// body bytes. The body is further decoded as a Request or a Response
// depending on which side of the wire is reading it.
type Frame struct {
	XID  uint32
	Body []byte
}

// ReadFrame reads one complete frame from r, looping until the signature,
// header, and body are all consumed. io.ReadFull already retries on short
// reads, so the only failure modes are a bad signature, an oversize body,
// or the underlying reader's own error.
func ReadFrame(r io.Reader) (*Frame, error) {
	var header [headerLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("wire: read frame header: %w", err)
	}

	sig := string(header[:len(Signature)])
	if sig != Signature {
		return nil, fmt.Errorf("wire: bad signature %q", sig)
	}

	xid := binary.LittleEndian.Uint32(header[len(Signature):])
	bodyLen := binary.LittleEndian.Uint32(header[len(Signature)+4:])
	if bodyLen > MaxBodyLen {
		return nil, fmt.Errorf("wire: body length %d exceeds max %d", bodyLen, MaxBodyLen)
	}

	body := make([]byte, bodyLen)
	if bodyLen > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("wire: read frame body: %w", err)
		}
	}

	return &Frame{XID: xid, Body: body}, nil
}

// WriteFrame writes one complete frame to w as a single buffer so that the
// caller's write is atomic with respect to other frames on the same
// connection (callers must still serialize concurrent writers themselves).
func WriteFrame(w io.Writer, xid uint32, body []byte) error {
	if len(body) > MaxBodyLen {
		return fmt.Errorf("wire: body length %d exceeds max %d", len(body), MaxBodyLen)
	}

	buf := make([]byte, headerLen+len(body))
	copy(buf, Signature)
	binary.LittleEndian.PutUint32(buf[len(Signature):], xid)
	binary.LittleEndian.PutUint32(buf[len(Signature)+4:], uint32(len(body)))
	copy(buf[headerLen:], body)

	_, err := w.Write(buf)
	if err != nil {
		return fmt.Errorf("wire: write frame: %w", err)
	}
	return nil
}
