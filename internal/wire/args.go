package wire

import (
	"encoding/binary"
	"fmt"
)

// ArgType tags the scalar kind of one request argument on the wire.
type ArgType uint32

const (
	ArgTypeInt32 ArgType = iota + 1
	ArgTypeInt64
	ArgTypeString
	ArgTypeRaw
	ArgTypeStat
)

// Arg is one decoded request argument: a type tag plus its raw encoded
// bytes. Use the Int32/Int64/String/Stat accessors to decode the payload,
// or the Int32Arg/Int64Arg/StringArg/RawArg/StatArg constructors to build
// one for encoding.
type Arg struct {
	Type ArgType
	Data []byte
}

func Int32Arg(v int32) Arg {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return Arg{Type: ArgTypeInt32, Data: buf}
}

func Int64Arg(v int64) Arg {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(v))
	return Arg{Type: ArgTypeInt64, Data: buf}
}

func StringArg(s string) Arg {
	buf := make([]byte, 4+len(s))
	binary.LittleEndian.PutUint32(buf, uint32(len(s)))
	copy(buf[4:], s)
	return Arg{Type: ArgTypeString, Data: buf}
}

func RawArg(b []byte) Arg {
	buf := make([]byte, 4+len(b))
	binary.LittleEndian.PutUint32(buf, uint32(len(b)))
	copy(buf[4:], b)
	return Arg{Type: ArgTypeRaw, Data: buf}
}

func StatArg(s Stat) Arg {
	return Arg{Type: ArgTypeStat, Data: EncodeStat(s)}
}

// Int32 decodes the argument as a little-endian int32.
func (a Arg) Int32() (int32, error) {
	if a.Type != ArgTypeInt32 || len(a.Data) != 4 {
		return 0, fmt.Errorf("wire: arg is not a valid int32")
	}
	return int32(binary.LittleEndian.Uint32(a.Data)), nil
}

// Int64 decodes the argument as a little-endian int64.
func (a Arg) Int64() (int64, error) {
	if a.Type != ArgTypeInt64 || len(a.Data) != 8 {
		return 0, fmt.Errorf("wire: arg is not a valid int64")
	}
	return int64(binary.LittleEndian.Uint64(a.Data)), nil
}

// String decodes the argument as a length-prefixed string.
func (a Arg) String() (string, error) {
	if a.Type != ArgTypeString && a.Type != ArgTypeRaw {
		return "", fmt.Errorf("wire: arg is not a valid string")
	}
	return decodeLengthPrefixed(a.Data)
}

// Bytes decodes the argument as a length-prefixed byte slice.
func (a Arg) Bytes() ([]byte, error) {
	if a.Type != ArgTypeRaw && a.Type != ArgTypeString {
		return nil, fmt.Errorf("wire: arg is not raw bytes")
	}
	s, err := decodeLengthPrefixed(a.Data)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// Stat decodes the argument as a stat tuple.
func (a Arg) Stat() (Stat, error) {
	if a.Type != ArgTypeStat {
		return Stat{}, fmt.Errorf("wire: arg is not a stat tuple")
	}
	return DecodeStat(a.Data)
}

func decodeLengthPrefixed(data []byte) (string, error) {
	if len(data) < 4 {
		return "", fmt.Errorf("wire: length-prefixed value too short")
	}
	n := binary.LittleEndian.Uint32(data)
	if int(4+n) != len(data) {
		return "", fmt.Errorf("wire: length-prefixed value length mismatch: declared %d, have %d", n, len(data)-4)
	}
	return string(data[4 : 4+n]), nil
}

// encodeArg serializes one arg as { type:4 LE, length:4 LE, bytes:length }.
func encodeArg(a Arg) []byte {
	buf := make([]byte, 8+len(a.Data))
	binary.LittleEndian.PutUint32(buf, uint32(a.Type))
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(a.Data)))
	copy(buf[8:], a.Data)
	return buf
}

// decodeArg reads one { type, length, bytes } tuple from data, returning the
// arg and the number of bytes consumed.
func decodeArg(data []byte) (Arg, int, error) {
	if len(data) < 8 {
		return Arg{}, 0, fmt.Errorf("wire: arg header too short")
	}
	typ := ArgType(binary.LittleEndian.Uint32(data))
	length := binary.LittleEndian.Uint32(data[4:])
	if int(8+length) > len(data) {
		return Arg{}, 0, fmt.Errorf("wire: arg body truncated: declared %d bytes", length)
	}
	argData := make([]byte, length)
	copy(argData, data[8:8+length])
	return Arg{Type: typ, Data: argData}, int(8 + length), nil
}
