package identity

import "errors"

var (
	// ErrPrincipalNotFound is returned when a username has no matching row.
	ErrPrincipalNotFound = errors.New("identity: principal not found")
	// ErrDuplicatePrincipal is returned when a username is already taken.
	ErrDuplicatePrincipal = errors.New("identity: principal already exists")
	// ErrGroupNotFound is returned when a group name has no matching row.
	ErrGroupNotFound = errors.New("identity: group not found")
	// ErrDuplicateGroup is returned when a group name is already taken.
	ErrDuplicateGroup = errors.New("identity: group already exists")
	// ErrInvalidCredentials is returned by Authenticate on a username/
	// password mismatch, distinct from ErrPrincipalNotFound so callers
	// can't distinguish "no such user" from "wrong password" by error
	// type, matching the auth exchange's single ok/not-ok reply (§4.5).
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
)
