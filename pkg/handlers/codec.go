package handlers

import (
	"encoding/binary"
	"fmt"

	"github.com/sharewire/sharewire/internal/wire"
)

// payloadWriter assembles a handler's success payload: the fixed-field,
// non-Arg-wrapped binary layouts the table in §4.7 describes (a
// fileVnid plus a stat tuple, a directory page, and so on). Handler
// payloads are a different wire shape from request Args — Args carry a
// type tag per field for the dispatcher's argc/type validation, while
// a reply payload is whatever fixed layout that one command promises.
type payloadWriter struct {
	buf []byte
}

func (w *payloadWriter) PutUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *payloadWriter) PutUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *payloadWriter) PutString(s string) {
	w.PutUint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *payloadWriter) PutBytes(b []byte) {
	w.PutUint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *payloadWriter) PutStat(s wire.Stat) {
	w.buf = append(w.buf, wire.EncodeStat(s)...)
}

func (w *payloadWriter) Bytes() []byte { return w.buf }

// payloadReader walks a reply payload produced by payloadWriter. Used
// only by tests that verify a handler's encoding; the session loop
// itself never needs to decode its own replies.
type payloadReader struct {
	data []byte
	pos  int
}

func (r *payloadReader) Uint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("handlers: payload truncated reading uint32")
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *payloadReader) Uint64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("handlers: payload truncated reading uint64")
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *payloadReader) String() (string, error) {
	n, err := r.Uint32()
	if err != nil {
		return "", err
	}
	if r.pos+int(n) > len(r.data) {
		return "", fmt.Errorf("handlers: payload truncated reading string")
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *payloadReader) Bytes() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if r.pos+int(n) > len(r.data) {
		return nil, fmt.Errorf("handlers: payload truncated reading bytes")
	}
	b := r.data[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, nil
}

func (r *payloadReader) Stat() (wire.Stat, error) {
	if r.pos+wire.StatEncodedLen > len(r.data) {
		return wire.Stat{}, fmt.Errorf("handlers: payload truncated reading stat")
	}
	s, err := wire.DecodeStat(r.data[r.pos : r.pos+wire.StatEncodedLen])
	if err != nil {
		return wire.Stat{}, err
	}
	r.pos += wire.StatEncodedLen
	return s, nil
}
