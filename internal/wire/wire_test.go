package wire

import (
	"bytes"
	"strings"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := []byte("hello frame body")

	if err := WriteFrame(&buf, 0x1234, body); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	frame, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if frame.XID != 0x1234 {
		t.Errorf("XID = %#x, want %#x", frame.XID, 0x1234)
	}
	if !bytes.Equal(frame.Body, body) {
		t.Errorf("Body = %q, want %q", frame.Body, body)
	}
}

func TestFrameRejectsBadSignature(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("XXRPC")
	buf.Write(make([]byte, 8))

	if _, err := ReadFrame(&buf); err == nil {
		t.Error("expected error for bad signature")
	}
}

func TestFrameBoundary(t *testing.T) {
	t.Run("exactly max body length accepted", func(t *testing.T) {
		var buf bytes.Buffer
		body := make([]byte, MaxBodyLen)
		if err := WriteFrame(&buf, 1, body); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
		if _, err := ReadFrame(&buf); err != nil {
			t.Errorf("ReadFrame rejected max-length body: %v", err)
		}
	})

	t.Run("one byte over max is rejected", func(t *testing.T) {
		var buf bytes.Buffer
		body := make([]byte, MaxBodyLen+1)
		if err := WriteFrame(&buf, 1, body); err == nil {
			t.Error("expected WriteFrame to reject oversize body")
		}
	})
}

func TestRequestRoundTrip(t *testing.T) {
	req := Request{
		Command: CmdLookup,
		Args: []Arg{
			Int64Arg(42),
			StringArg("hello.txt"),
		},
		XID: 7,
	}

	body, err := EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}

	got, err := DecodeRequest(body)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}

	if got.Command != req.Command {
		t.Errorf("Command = %v, want %v", got.Command, req.Command)
	}
	if got.XID != req.XID {
		t.Errorf("XID = %d, want %d", got.XID, req.XID)
	}
	if len(got.Args) != len(req.Args) {
		t.Fatalf("len(Args) = %d, want %d", len(got.Args), len(req.Args))
	}
	for i := range req.Args {
		if got.Args[i].Type != req.Args[i].Type {
			t.Errorf("arg %d type = %v, want %v", i, got.Args[i].Type, req.Args[i].Type)
		}
		if !bytes.Equal(got.Args[i].Data, req.Args[i].Data) {
			t.Errorf("arg %d data = %v, want %v", i, got.Args[i].Data, req.Args[i].Data)
		}
	}

	v, err := got.Args[0].Int64()
	if err != nil || v != 42 {
		t.Errorf("Args[0].Int64() = %d, %v; want 42, nil", v, err)
	}
	s, err := got.Args[1].String()
	if err != nil || s != "hello.txt" {
		t.Errorf("Args[1].String() = %q, %v; want %q, nil", s, err, "hello.txt")
	}
}

func TestRequestArgcBoundary(t *testing.T) {
	args := make([]Arg, MaxCommandArgs)
	for i := range args {
		args[i] = Int32Arg(int32(i))
	}

	if _, err := EncodeRequest(Request{Command: CmdRead, Args: args}); err != nil {
		t.Errorf("EncodeRequest with argc == MaxCommandArgs failed: %v", err)
	}

	tooMany := append(args, Int32Arg(99))
	if _, err := EncodeRequest(Request{Command: CmdRead, Args: tooMany}); err == nil {
		t.Error("expected EncodeRequest to reject argc > MaxCommandArgs")
	}
}

func TestResponseRoundTrip(t *testing.T) {
	resp := Response{XID: 9, Status: 0, Payload: []byte("payload bytes")}

	body := EncodeResponse(resp)
	got, err := DecodeResponse(body)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}

	if got.XID != resp.XID || got.Status != resp.Status {
		t.Errorf("got %+v, want %+v", got, resp)
	}
	if !bytes.Equal(got.Payload, resp.Payload) {
		t.Errorf("Payload = %q, want %q", got.Payload, resp.Payload)
	}
}

func TestResponseErrorHasNoPayload(t *testing.T) {
	resp := Response{XID: 1, Status: -2, Payload: []byte("should be dropped")}
	body := EncodeResponse(resp)

	got, err := DecodeResponse(body)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if len(got.Payload) != 0 {
		t.Errorf("Payload = %q, want empty on error status", got.Payload)
	}
}

func TestStatRoundTrip(t *testing.T) {
	s := Stat{
		Nlink:   1,
		UID:     1000,
		GID:     1000,
		Size:    123456789,
		Blksize: 4096,
		Rdev:    0,
		Ino:     987654321,
		Mode:    0644,
		Atime:   1700000000,
		Mtime:   1700000001,
		Ctime:   1700000002,
	}

	got, err := DecodeStat(EncodeStat(s))
	if err != nil {
		t.Fatalf("DecodeStat: %v", err)
	}
	if got != s {
		t.Errorf("got %+v, want %+v", got, s)
	}
}

func TestCommandString(t *testing.T) {
	if CmdMount.String() != "Mount" {
		t.Errorf("CmdMount.String() = %q, want %q", CmdMount.String(), "Mount")
	}
	if !strings.Contains(Command(99).String(), "Unknown") {
		t.Errorf("Command(99).String() = %q, want it to mention Unknown", Command(99).String())
	}
}
