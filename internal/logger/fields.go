package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging. Use these consistently across
// all log statements so log aggregation and querying stays uniform.
const (
	// Request correlation
	KeyXID       = "xid"       // RPC transaction id (request/reply correlation)
	KeyCommand   = "command"   // command name: Mount, Read, Write, ReadDir, ...
	KeyShare     = "share"     // share name
	KeyStatus    = "status"    // shareerr status code
	KeyStatusMsg = "status_msg"

	// Filesystem operations
	KeyPath       = "path"
	KeyFilename   = "filename"
	KeyParentPath = "parent_path"
	KeyOldPath    = "old_path"
	KeyNewPath    = "new_path"
	KeyVnid       = "vnid"
	KeySize       = "size"
	KeyMode       = "mode"

	// I/O
	KeyOffset       = "offset"
	KeyCount        = "count"
	KeyBytesRead    = "bytes_read"
	KeyBytesWritten = "bytes_written"

	// Client / principal identification
	KeyClientIP   = "client_ip"
	KeyClientPort = "client_port"
	KeyPrincipal  = "principal"
	KeyRights     = "rights"

	// Session & connection
	KeySessionID = "session_id"
	KeyXIDEpoch  = "xid_epoch"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"
	KeyAttempt    = "attempt"

	// Index / query
	KeyIndexName  = "index_name"
	KeyQueryText  = "query_text"
	KeyEntries    = "entries"
	KeyCookie     = "cookie"

	// Write block
	KeyWriteBlockID = "write_block_id"
	KeyTotalLen     = "total_len"

	// Archive (S3 write-behind)
	KeyBucket = "bucket"
	KeyKey    = "key"
)

// XID returns a slog.Attr for the RPC transaction id.
func XID(xid uint32) slog.Attr {
	return slog.String(KeyXID, fmt.Sprintf("0x%x", xid))
}

// Command returns a slog.Attr for the command name.
func Command(name string) slog.Attr {
	return slog.String(KeyCommand, name)
}

// Share returns a slog.Attr for the share name.
func Share(name string) slog.Attr {
	return slog.String(KeyShare, name)
}

// Status returns a slog.Attr for a shareerr status code.
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

// Path returns a slog.Attr for a filesystem path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Filename returns a slog.Attr for a basename.
func Filename(name string) slog.Attr {
	return slog.String(KeyFilename, name)
}

// OldPath returns a slog.Attr for the source path of a rename.
func OldPath(p string) slog.Attr {
	return slog.String(KeyOldPath, p)
}

// NewPath returns a slog.Attr for the destination path of a rename.
func NewPath(p string) slog.Attr {
	return slog.String(KeyNewPath, p)
}

// Vnid returns a slog.Attr for a vnode id.
func Vnid(id uint64) slog.Attr {
	return slog.Uint64(KeyVnid, id)
}

// Size returns a slog.Attr for a byte size.
func Size(s uint64) slog.Attr {
	return slog.Uint64(KeySize, s)
}

// Offset returns a slog.Attr for an I/O offset.
func Offset(off int64) slog.Attr {
	return slog.Int64(KeyOffset, off)
}

// Count returns a slog.Attr for a requested byte count.
func Count(c int) slog.Attr {
	return slog.Int(KeyCount, c)
}

// BytesWritten returns a slog.Attr for actual bytes written.
func BytesWritten(n int) slog.Attr {
	return slog.Int(KeyBytesWritten, n)
}

// ClientIP returns a slog.Attr for a client IP address.
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// Principal returns a slog.Attr for an authenticated principal name.
func Principal(name string) slog.Attr {
	return slog.String(KeyPrincipal, name)
}

// SessionID returns a slog.Attr for a session identifier.
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error, or a zero Attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric error code.
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}

// Attempt returns a slog.Attr for a retry attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// IndexName returns a slog.Attr for an index name.
func IndexName(name string) slog.Attr {
	return slog.String(KeyIndexName, name)
}

// Entries returns a slog.Attr for a directory/index entry count.
func Entries(n int) slog.Attr {
	return slog.Int(KeyEntries, n)
}

// Cookie returns a slog.Attr for a readdir/query continuation cookie.
func Cookie(c uint64) slog.Attr {
	return slog.Uint64(KeyCookie, c)
}

// WriteBlockID returns a slog.Attr for a gathered-write block id.
func WriteBlockID(id uint32) slog.Attr {
	return slog.Uint64(KeyWriteBlockID, uint64(id))
}

// TotalLen returns a slog.Attr for a gathered-write declared total length.
func TotalLen(n int64) slog.Attr {
	return slog.Int64(KeyTotalLen, n)
}

// Bucket returns a slog.Attr for an archive bucket name.
func Bucket(name string) slog.Attr {
	return slog.String(KeyBucket, name)
}

// Key returns a slog.Attr for an archive object key.
func Key(k string) slog.Attr {
	return slog.String(KeyKey, k)
}
