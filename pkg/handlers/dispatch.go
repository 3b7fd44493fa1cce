package handlers

import (
	"errors"
	"os"

	"github.com/sharewire/sharewire/internal/shareerr"
	"github.com/sharewire/sharewire/internal/wire"
	"github.com/sharewire/sharewire/pkg/share"
)

// HandlerFunc implements one command. It returns the frame to send back
// to the client, or nil if the command never replies (Write's
// intermediate chunks, §4.7.1).
type HandlerFunc func(sess *Session, req wire.Request) *wire.Response

// commandSpec is one row of the static dispatch table described in
// §4.3 step 3 and §8's "dynamic dispatch" design note: a u8 opcode maps
// to whether it's implemented at all, its expected argument shape, and
// the handler.
type commandSpec struct {
	Supported bool
	ArgTypes  []wire.ArgType
	// Mutating marks a handler that changes on-disk or share state;
	// Dispatch enforces the write-rights check here so no individual
	// handler has to remember to (§4.3: "Rights are enforced at the
	// handler boundary").
	Mutating bool
	Fn       HandlerFunc
}

var commandTable map[wire.Command]commandSpec

func init() {
	commandTable = map[wire.Command]commandSpec{
		wire.CmdPreMount: {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeString}, Fn: handlePreMount},
		wire.CmdMount:    {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeString, wire.ArgTypeString, wire.ArgTypeRaw}, Fn: handleMount},
		wire.CmdFSInfo:   {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeInt64}, Fn: handleFSInfo},
		wire.CmdLookup:   {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeInt64, wire.ArgTypeString}, Fn: handleLookup},
		wire.CmdStat:     {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeInt64}, Fn: handleStat},
		wire.CmdReadDir:  {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeInt64, wire.ArgTypeInt64}, Fn: handleReadDir},
		wire.CmdRead:     {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeInt64, wire.ArgTypeInt64, wire.ArgTypeInt32}, Fn: handleRead},
		wire.CmdWrite:    {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeInt64, wire.ArgTypeInt64, wire.ArgTypeInt32, wire.ArgTypeInt64, wire.ArgTypeRaw}, Mutating: true, Fn: handleWrite},
		wire.CmdCreate:   {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeInt64, wire.ArgTypeString, wire.ArgTypeInt32, wire.ArgTypeInt32}, Mutating: true, Fn: handleCreate},
		wire.CmdTruncate: {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeInt64, wire.ArgTypeInt64}, Mutating: true, Fn: handleTruncate},
		wire.CmdMkDir:    {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeInt64, wire.ArgTypeString, wire.ArgTypeInt32}, Mutating: true, Fn: handleMkDir},
		wire.CmdRmDir:    {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeInt64, wire.ArgTypeString}, Mutating: true, Fn: handleRmDir},
		wire.CmdRename:   {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeInt64, wire.ArgTypeString, wire.ArgTypeInt64, wire.ArgTypeString}, Mutating: true, Fn: handleRename},
		wire.CmdUnlink:   {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeInt64, wire.ArgTypeString}, Mutating: true, Fn: handleUnlink},
		wire.CmdReadLink: {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeInt64}, Fn: handleReadLink},
		wire.CmdSymLink:  {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeInt64, wire.ArgTypeString, wire.ArgTypeString}, Mutating: true, Fn: handleSymLink},
		wire.CmdWStat: {Supported: true, ArgTypes: []wire.ArgType{
			wire.ArgTypeInt64, // vnid
			wire.ArgTypeInt32, // mask
			wire.ArgTypeInt32, // mode
			wire.ArgTypeInt32, // uid
			wire.ArgTypeInt32, // gid
			wire.ArgTypeInt64, // size
			wire.ArgTypeInt32, // atime
			wire.ArgTypeInt32, // mtime
		}, Mutating: true, Fn: handleWStat},

		wire.CmdReadAttrib: {Supported: true, ArgTypes: []wire.ArgType{
			wire.ArgTypeInt64,  // vnid
			wire.ArgTypeString, // name
			wire.ArgTypeInt64,  // type tag (advisory)
			wire.ArgTypeInt32,  // pos
			wire.ArgTypeInt32,  // len
		}, Fn: handleReadAttrib},
		wire.CmdWriteAttrib: {Supported: true, ArgTypes: []wire.ArgType{
			wire.ArgTypeInt64,  // vnid
			wire.ArgTypeString, // name
			wire.ArgTypeInt64,  // type tag (advisory)
			wire.ArgTypeRaw,    // bytes
			wire.ArgTypeInt32,  // pos
			wire.ArgTypeInt32,  // len
		}, Mutating: true, Fn: handleWriteAttrib},
		wire.CmdReadAttribDir: {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeInt64, wire.ArgTypeInt64}, Fn: handleReadAttribDir},
		wire.CmdRemoveAttrib:  {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeInt64, wire.ArgTypeString}, Mutating: true, Fn: handleRemoveAttrib},
		wire.CmdStatAttrib:    {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeInt64, wire.ArgTypeString}, Fn: handleStatAttrib},

		wire.CmdReadIndexDir: {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeString, wire.ArgTypeInt64}, Fn: handleReadIndexDir},
		wire.CmdCreateIndex:  {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeString, wire.ArgTypeInt32}, Mutating: true, Fn: handleCreateIndex},
		wire.CmdRemoveIndex:  {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeString}, Mutating: true, Fn: handleRemoveIndex},
		wire.CmdStatIndex:    {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeString}, Fn: handleStatIndex},
		wire.CmdReadQuery: {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeInt64, wire.ArgTypeString}, Fn: handleReadQuery},

		wire.CmdCommit: {Supported: true, ArgTypes: []wire.ArgType{wire.ArgTypeInt64}, Mutating: true, Fn: handleCommit},
		wire.CmdQuit:   {Supported: true, ArgTypes: nil, Fn: handleQuit},

		wire.CmdPrintJobNew:    {Supported: false},
		wire.CmdPrintJobData:   {Supported: false},
		wire.CmdPrintJobCommit: {Supported: false},
	}
}

// Dispatch looks up req.Command in the static table, validates argc and
// per-argument type tags, enforces write-rights for mutating commands,
// and invokes the handler. It never panics on malformed input: every
// failure path encodes into a POSIX status on the reply, per §7's
// "handlers never raise exceptions across the dispatch boundary."
func Dispatch(sess *Session, req wire.Request) *wire.Response {
	spec, known := commandTable[req.Command]
	if !known || !spec.Supported {
		return statusReply(req.XID, shareerr.StatusEOPNOTSUPP)
	}

	if len(req.Args) != len(spec.ArgTypes) {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	for i, want := range spec.ArgTypes {
		if req.Args[i].Type != want {
			return statusReply(req.XID, shareerr.StatusEINVAL)
		}
	}

	if req.Command != wire.CmdPreMount && req.Command != wire.CmdMount && !sess.Mounted {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	if spec.Mutating && !sess.Rights.Has(share.Write) {
		return statusReply(req.XID, shareerr.StatusEACCES)
	}

	return spec.Fn(sess, req)
}

func statusReply(xid uint32, status int32) *wire.Response {
	return &wire.Response{XID: xid, Status: status}
}

func okReply(xid uint32, payload []byte) *wire.Response {
	return &wire.Response{XID: xid, Status: shareerr.StatusOK, Payload: payload}
}

func errReply(xid uint32, err error) *wire.Response {
	return statusReply(xid, shareerr.ToStatus(err))
}

func vnidArg(a wire.Arg) (uint64, error) {
	v, err := a.Int64()
	if err != nil {
		return 0, err
	}
	return uint64(v), nil
}

func vnidArgValue(v uint64) wire.Arg {
	return wire.Int64Arg(int64(v))
}

// mapOSErr translates a raw os/io error into the typed domain error the
// rest of the handler layer deals in.
func mapOSErr(path string, err error) error {
	if err == nil {
		return nil
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		err = pathErr.Err
	}
	switch {
	case errors.Is(err, os.ErrNotExist):
		return shareerr.NewNotFound(path)
	case errors.Is(err, os.ErrExist):
		return shareerr.NewExists(path)
	case errors.Is(err, os.ErrPermission):
		return shareerr.NewAccessDenied("permission denied")
	default:
		return shareerr.NewIOError(path, err)
	}
}
