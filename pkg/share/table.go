package share

import (
	"os"
	"strings"

	"github.com/sharewire/sharewire/internal/rwlock"
	"github.com/sharewire/sharewire/internal/shareconf"
	"github.com/sharewire/sharewire/internal/shareerr"
)

// canonicalName folds a share name to the case-insensitive key byName
// is keyed on, per §3's "display name (case-insensitive, distinct)".
func canonicalName(name string) string {
	return strings.ToLower(name)
}

// Table is the process-wide share table. Shares are kept in a slice so
// that a session can remember "my share is index 3" and Reload can
// detect when that index moved, per §4.4's rebind rule.
type Table struct {
	lock           *rwlock.RWLock
	shares         []*Share
	byName         map[string]int
	authServerHost string
}

// New returns an empty table.
func New() *Table {
	return &Table{lock: rwlock.New(), byName: make(map[string]int)}
}

// Load replaces the table's contents with the result of applying
// directives in order, starting from empty. Used for the initial load;
// Reload is used for subsequent signals.
func Load(directives []shareconf.Directive, statPath func(string) error) (*Table, error) {
	t := &Table{lock: rwlock.New(), byName: make(map[string]int)}
	if err := t.apply(directives, statPath); err != nil {
		return nil, err
	}
	return t, nil
}

// RebindPlan describes what Reload changed, so the session layer can
// react: shares whose index moved must have every session pointing at
// the old index rebound to the new one, and shares that disappeared
// must have every dependent session flagged killed.
type RebindPlan struct {
	// Rebind maps old share index -> new share index, for shares that
	// survived the reload at a different position.
	Rebind map[int]int
	// Removed lists the old indices of shares that no longer exist.
	Removed []int
}

// Reload builds a new table from directives without holding the lock,
// then takes the write lock to diff it against the current table by
// local path and swap it in. Lookups through the table's own methods
// hold the read lock only for the lookup itself; a mount's rights
// computation runs after ByName returns and is not covered by the
// lock, so a reload can land between a mount's lookup and its rights
// check. Reload never cancels an operation mid-call: it only blocks
// waiting for the write lock.
func (t *Table) Reload(directives []shareconf.Directive, statPath func(string) error) (RebindPlan, error) {
	newTable := &Table{byName: make(map[string]int)}
	if err := newTable.apply(directives, statPath); err != nil {
		return RebindPlan{}, err
	}

	t.lock.BeginWriting()
	defer t.lock.EndWriting()

	plan := RebindPlan{Rebind: make(map[int]int)}

	oldByPath := make(map[string]int, len(t.shares))
	for i, s := range t.shares {
		oldByPath[s.LocalPath] = i
	}

	for newIdx, s := range newTable.shares {
		if oldIdx, ok := oldByPath[s.LocalPath]; ok {
			if oldIdx != newIdx {
				plan.Rebind[oldIdx] = newIdx
			}
			delete(oldByPath, s.LocalPath)
		}
	}
	for _, oldIdx := range oldByPath {
		plan.Removed = append(plan.Removed, oldIdx)
	}

	t.shares = newTable.shares
	t.byName = newTable.byName
	t.authServerHost = newTable.authServerHost
	return plan, nil
}

func (t *Table) apply(directives []shareconf.Directive, statPath func(string) error) error {
	if statPath == nil {
		statPath = func(path string) error {
			_, err := os.Stat(path)
			return err
		}
	}

	for _, d := range directives {
		switch d.Kind {
		case shareconf.DirShare:
			key := canonicalName(d.ShareName)
			if _, exists := t.byName[key]; exists {
				return shareerr.NewExists(d.ShareName)
			}
			if err := statPath(d.LocalPath); err != nil {
				return shareerr.NewNotFound(d.LocalPath)
			}
			idx := len(t.shares)
			t.shares = append(t.shares, &Share{
				Name:        d.ShareName,
				LocalPath:   d.LocalPath,
				ReadOnly:    true,
				Promiscuous: d.Promiscuous,
			})
			t.byName[key] = idx

		case shareconf.DirSetReadWrite:
			idx, ok := t.byName[canonicalName(d.ShareName)]
			if !ok {
				return shareerr.NewNotFound(d.ShareName)
			}
			t.shares[idx].ReadOnly = false

		case shareconf.DirGrant:
			idx, ok := t.byName[canonicalName(d.ShareName)]
			if !ok {
				return shareerr.NewNotFound(d.ShareName)
			}
			var rights Rights
			if d.Read {
				rights |= Read
			}
			if d.Write {
				rights |= Write
			}
			t.shares[idx].ACL = append(t.shares[idx].ACL, ACLEntry{
				Principal: d.Principal,
				IsGroup:   d.IsGroup,
				Rights:    rights,
			})

		case shareconf.DirAuthenticate:
			t.authServerHost = d.AuthServerHost
			for _, s := range t.shares {
				s.AuthClass = AuthExternal
			}
		}
	}
	return nil
}

// ByName returns the share at the given name and its index, or false.
// Matching is case-insensitive, per §3.
func (t *Table) ByName(name string) (*Share, int, bool) {
	t.lock.BeginReading()
	defer t.lock.EndReading()

	idx, ok := t.byName[canonicalName(name)]
	if !ok {
		return nil, 0, false
	}
	return t.shares[idx], idx, true
}

// ByIndex returns the share at idx, or false if idx is out of range.
func (t *Table) ByIndex(idx int) (*Share, bool) {
	t.lock.BeginReading()
	defer t.lock.EndReading()

	if idx < 0 || idx >= len(t.shares) {
		return nil, false
	}
	return t.shares[idx], true
}

// All returns a snapshot of every share currently in the table, in
// table order. Used by pkg/discovery's ShareProbe responder, which has
// no single share name to look up.
func (t *Table) All() []*Share {
	t.lock.BeginReading()
	defer t.lock.EndReading()

	out := make([]*Share, len(t.shares))
	copy(out, t.shares)
	return out
}

// AuthServerHost returns the host set by the most recent `authenticate
// with` directive, or "" if none was ever parsed.
func (t *Table) AuthServerHost() string {
	t.lock.BeginReading()
	defer t.lock.EndReading()
	return t.authServerHost
}
