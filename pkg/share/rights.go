package share

import "github.com/sharewire/sharewire/internal/shareerr"

// AuthClient is the subset of the authentication client (§4.5) the
// rights engine needs. pkg/authclient implements this; defining the
// interface here instead of importing that package keeps the rights
// computation testable without a real auth server.
type AuthClient interface {
	Authenticate(user, token string) (bool, error)
	WhichGroups(user string) ([]string, error)
}

// ComputeRights implements §4.4's "Rights computation at mount":
//
//   - AuthNone: effective rights = Read, plus Write iff the share is
//     not read-only. No principal check.
//   - AuthExternal: authenticate the principal against auth, then union
//     the rights of every ACL entry matching the user directly, then
//     union the rights of every ACL entry matching one of the user's
//     groups. An empty union is access denied. The result is then
//     intersected with the share's read-only flag.
func ComputeRights(s *Share, principal, token string, auth AuthClient) (Rights, error) {
	if s.AuthClass == AuthNone {
		r := Read
		if !s.ReadOnly {
			r |= Write
		}
		return r, nil
	}

	ok, err := auth.Authenticate(principal, token)
	if err != nil || !ok {
		return 0, shareerr.NewAccessDenied("authentication rejected")
	}

	var rights Rights
	for _, e := range s.ACL {
		if !e.IsGroup && e.Principal == principal {
			rights |= e.Rights
		}
	}

	groups, err := auth.WhichGroups(principal)
	if err != nil {
		return 0, shareerr.NewAccessDenied("group lookup failed")
	}
	groupSet := make(map[string]bool, len(groups))
	for _, g := range groups {
		groupSet[g] = true
	}
	for _, e := range s.ACL {
		if e.IsGroup && groupSet[e.Principal] {
			rights |= e.Rights
		}
	}

	if rights == 0 {
		return 0, shareerr.NewAccessDenied("no matching ACL entry")
	}
	if s.ReadOnly {
		rights &^= Write
	}
	return rights, nil
}
