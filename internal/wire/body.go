package wire

import (
	"encoding/binary"
	"fmt"
)

// Request is a decoded request body: the command, its arguments, and the
// inner XID the legacy layout duplicates alongside the outer frame header.
type Request struct {
	Command Command
	Args    []Arg
	XID     uint32
}

// EncodeRequest serializes req as a request body:
//
//	command : 1 byte
//	argc    : 1 byte
//	args    : argc repetitions of { type, length, bytes }
//	xid     : 4 bytes LE
//	term    : 1 byte, 0x0D
func EncodeRequest(req Request) ([]byte, error) {
	if len(req.Args) > MaxCommandArgs {
		return nil, fmt.Errorf("wire: argc %d exceeds max %d", len(req.Args), MaxCommandArgs)
	}

	var body []byte
	body = append(body, byte(req.Command), byte(len(req.Args)))
	for _, a := range req.Args {
		body = append(body, encodeArg(a)...)
	}

	xidBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(xidBuf, req.XID)
	body = append(body, xidBuf...)
	body = append(body, CmdTerminator)

	return body, nil
}

// DecodeRequest parses a request body produced by EncodeRequest.
func DecodeRequest(body []byte) (Request, error) {
	if len(body) < 2 {
		return Request{}, fmt.Errorf("wire: request body too short")
	}

	command := Command(body[0])
	argc := int(body[1])
	if argc > MaxCommandArgs {
		return Request{}, fmt.Errorf("wire: argc %d exceeds max %d", argc, MaxCommandArgs)
	}

	pos := 2
	args := make([]Arg, 0, argc)
	for i := 0; i < argc; i++ {
		arg, n, err := decodeArg(body[pos:])
		if err != nil {
			return Request{}, fmt.Errorf("wire: decode arg %d: %w", i, err)
		}
		args = append(args, arg)
		pos += n
	}

	if len(body) < pos+5 {
		return Request{}, fmt.Errorf("wire: request body missing trailing xid/terminator")
	}
	xid := binary.LittleEndian.Uint32(body[pos:])
	pos += 4
	if body[pos] != CmdTerminator {
		return Request{}, fmt.Errorf("wire: request body missing terminator byte")
	}

	return Request{Command: command, Args: args, XID: xid}, nil
}

// Response is a decoded response body.
type Response struct {
	XID     uint32
	Status  int32
	Payload []byte
}

// EncodeResponse serializes resp as a response body:
//
//	xid      : 4 bytes LE
//	reserved : 4 bytes LE, zero
//	status   : 4 bytes LE signed
//	payload  : present only when status == 0
func EncodeResponse(resp Response) []byte {
	payload := resp.Payload
	if resp.Status != 0 {
		payload = nil
	}

	body := make([]byte, 12+len(payload))
	binary.LittleEndian.PutUint32(body, resp.XID)
	binary.LittleEndian.PutUint32(body[4:], 0)
	binary.LittleEndian.PutUint32(body[8:], uint32(resp.Status))
	copy(body[12:], payload)
	return body
}

// DecodeResponse parses a response body produced by EncodeResponse.
func DecodeResponse(body []byte) (Response, error) {
	if len(body) < 12 {
		return Response{}, fmt.Errorf("wire: response body too short")
	}
	xid := binary.LittleEndian.Uint32(body)
	status := int32(binary.LittleEndian.Uint32(body[8:]))

	var payload []byte
	if status == 0 && len(body) > 12 {
		payload = make([]byte, len(body)-12)
		copy(payload, body[12:])
	}

	return Response{XID: xid, Status: status, Payload: payload}, nil
}

// Stat is the fixed eleven-integer stat tuple carried by Stat/Lookup/Create
// replies and the WStat request, in the exact order the wire fixes:
// {nlink, uid, gid, size:64, blksize, rdev, ino:64, mode, atime, mtime, ctime}.
type Stat struct {
	Nlink   uint32
	UID     uint32
	GID     uint32
	Size    uint64
	Blksize uint32
	Rdev    uint32
	Ino     uint64
	Mode    uint32
	Atime   uint32
	Mtime   uint32
	Ctime   uint32
}

// StatEncodedLen is the fixed wire size of a Stat tuple.
const StatEncodedLen = 4*9 + 8*2 // nine 32-bit fields, two 64-bit fields

// EncodeStat serializes a Stat tuple in wire order.
func EncodeStat(s Stat) []byte {
	buf := make([]byte, StatEncodedLen)
	binary.LittleEndian.PutUint32(buf[0:], s.Nlink)
	binary.LittleEndian.PutUint32(buf[4:], s.UID)
	binary.LittleEndian.PutUint32(buf[8:], s.GID)
	binary.LittleEndian.PutUint64(buf[12:], s.Size)
	binary.LittleEndian.PutUint32(buf[20:], s.Blksize)
	binary.LittleEndian.PutUint32(buf[24:], s.Rdev)
	binary.LittleEndian.PutUint64(buf[28:], s.Ino)
	binary.LittleEndian.PutUint32(buf[36:], s.Mode)
	binary.LittleEndian.PutUint32(buf[40:], s.Atime)
	binary.LittleEndian.PutUint32(buf[44:], s.Mtime)
	binary.LittleEndian.PutUint32(buf[48:], s.Ctime)
	return buf
}

// DecodeStat parses a Stat tuple produced by EncodeStat.
func DecodeStat(data []byte) (Stat, error) {
	if len(data) != StatEncodedLen {
		return Stat{}, fmt.Errorf("wire: stat tuple has wrong length: got %d, want %d", len(data), StatEncodedLen)
	}
	return Stat{
		Nlink:   binary.LittleEndian.Uint32(data[0:]),
		UID:     binary.LittleEndian.Uint32(data[4:]),
		GID:     binary.LittleEndian.Uint32(data[8:]),
		Size:    binary.LittleEndian.Uint64(data[12:]),
		Blksize: binary.LittleEndian.Uint32(data[20:]),
		Rdev:    binary.LittleEndian.Uint32(data[24:]),
		Ino:     binary.LittleEndian.Uint64(data[28:]),
		Mode:    binary.LittleEndian.Uint32(data[36:]),
		Atime:   binary.LittleEndian.Uint32(data[40:]),
		Mtime:   binary.LittleEndian.Uint32(data[44:]),
		Ctime:   binary.LittleEndian.Uint32(data[48:]),
	}, nil
}
