// Package attrstore maps the legacy BFS-style named-attribute calls
// (ReadAttrib/WriteAttrib/ReadAttribDir/RemoveAttrib/StatAttrib, §4.7)
// onto POSIX extended attributes, the closest primitive a non-BFS host
// filesystem offers. Every attribute name is namespaced under
// "user.sharewire." so a share directory's ordinary xattrs (ACLs,
// SELinux labels, whatever else the host stores there) never collide
// with or leak into a client's attribute directory.
package attrstore

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/sharewire/sharewire/internal/shareerr"
)

const namespacePrefix = "user.sharewire."

func wireName(name string) string {
	return namespacePrefix + name
}

// List returns the attribute names set on path, in the caller-facing
// form (namespace prefix stripped).
func List(path string) ([]string, error) {
	size, err := unix.Listxattr(path, nil)
	if err != nil {
		return nil, mapErr(path, err)
	}
	if size == 0 {
		return nil, nil
	}

	buf := make([]byte, size)
	n, err := unix.Listxattr(path, buf)
	if err != nil {
		return nil, mapErr(path, err)
	}

	var names []string
	for _, raw := range splitNUL(buf[:n]) {
		if len(raw) > len(namespacePrefix) && raw[:len(namespacePrefix)] == namespacePrefix {
			names = append(names, raw[len(namespacePrefix):])
		}
	}
	return names, nil
}

// Get reads the full value of the named attribute.
func Get(path, name string) ([]byte, error) {
	wire := wireName(name)
	size, err := unix.Getxattr(path, wire, nil)
	if err != nil {
		return nil, mapErr(path, err)
	}
	if size == 0 {
		return []byte{}, nil
	}

	buf := make([]byte, size)
	n, err := unix.Getxattr(path, wire, buf)
	if err != nil {
		return nil, mapErr(path, err)
	}
	return buf[:n], nil
}

// Set writes (replacing, or creating) the named attribute's value.
func Set(path, name string, data []byte) error {
	if err := unix.Setxattr(path, wireName(name), data, 0); err != nil {
		return mapErr(path, err)
	}
	return nil
}

// Remove deletes the named attribute.
func Remove(path, name string) error {
	if err := unix.Removexattr(path, wireName(name)); err != nil {
		return mapErr(path, err)
	}
	return nil
}

func splitNUL(buf []byte) []string {
	var out []string
	start := 0
	for i, b := range buf {
		if b == 0 {
			if i > start {
				out = append(out, string(buf[start:i]))
			}
			start = i + 1
		}
	}
	return out
}

func mapErr(path string, err error) error {
	switch err {
	case unix.ENODATA:
		return shareerr.NewNotFound(path)
	case unix.ENOENT:
		return shareerr.NewNotFound(path)
	case unix.ENOTSUP:
		return shareerr.NewNotSupported("extended attributes")
	default:
		// EOPNOTSUPP equals ENOTSUP on Linux, so it cannot be a second
		// case label there.
		if err == unix.EOPNOTSUPP {
			return shareerr.NewNotSupported("extended attributes")
		}
		return shareerr.NewIOError(path, fmt.Errorf("%w", err))
	}
}
