// Package shareerr defines the typed domain error that crosses every
// share/vnode/handler boundary, and its mapping onto the wire's
// POSIX-style status integers.
package shareerr

import "fmt"

// Code categorizes a domain error.
type Code int

const (
	NotFound Code = iota
	AccessDenied
	AuthRequired
	Exists
	NotEmpty
	IsDirectory
	NotDirectory
	Invalid
	IOError
	NoSpace
	ReadOnly
	NotSupported
	InvalidHandle
	NameTooLong
)

// Error is the typed error returned by share, vnode, and handler
// operations. Handlers never let a raw error cross into a reply; they
// translate with ToStatus.
type Error struct {
	Code    Code
	Message string
	Path    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// New builds an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithPath returns a copy of e with Path set.
func (e *Error) WithPath(path string) *Error {
	return &Error{Code: e.Code, Message: e.Message, Path: path}
}

func NewNotFound(path string) *Error {
	return &Error{Code: NotFound, Message: "not found", Path: path}
}

func NewAccessDenied(reason string) *Error {
	return &Error{Code: AccessDenied, Message: reason}
}

func NewAuthRequired() *Error {
	return &Error{Code: AuthRequired, Message: "authentication required"}
}

func NewExists(path string) *Error {
	return &Error{Code: Exists, Message: "already exists", Path: path}
}

func NewNotEmpty(path string) *Error {
	return &Error{Code: NotEmpty, Message: "directory not empty", Path: path}
}

func NewIsDirectory(path string) *Error {
	return &Error{Code: IsDirectory, Message: "is a directory", Path: path}
}

func NewNotDirectory(path string) *Error {
	return &Error{Code: NotDirectory, Message: "not a directory", Path: path}
}

func NewInvalid(message string) *Error {
	return &Error{Code: Invalid, Message: message}
}

func NewIOError(path string, cause error) *Error {
	msg := "I/O error"
	if cause != nil {
		msg = fmt.Sprintf("I/O error: %v", cause)
	}
	return &Error{Code: IOError, Message: msg, Path: path}
}

func NewNoSpace() *Error {
	return &Error{Code: NoSpace, Message: "no space left on device"}
}

func NewReadOnly(path string) *Error {
	return &Error{Code: ReadOnly, Message: "share is read-only", Path: path}
}

func NewNotSupported(op string) *Error {
	return &Error{Code: NotSupported, Message: "operation not supported: " + op}
}

func NewInvalidHandle() *Error {
	return &Error{Code: InvalidHandle, Message: "invalid vnode handle"}
}

func NewNameTooLong(path string) *Error {
	return &Error{Code: NameTooLong, Message: "name too long", Path: path}
}

// Is reports whether err is a *Error with the given code.
func Is(err error, code Code) bool {
	se, ok := err.(*Error)
	return ok && se.Code == code
}
