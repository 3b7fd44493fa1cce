// Package vnode implements the per-mount vnode cache (§4.6): a
// parent-linked arena of (vnid, parent, name) records that maps the
// opaque 64-bit handles clients carry across requests onto paths
// within a share. Each mounted session builds its own Cache; one Cache
// is not shared across sessions.
package vnode

import (
	"os"
	"strings"
	"syscall"

	"github.com/sharewire/sharewire/internal/rwlock"
	"github.com/sharewire/sharewire/internal/shareerr"
)

// RootVnid is the parent vnid passed to AddHandle for a share's root
// directory; the first record added with this parent becomes the root.
const RootVnid uint64 = 0

// entry is one cached (vnid, parent, name) record.
type entry struct {
	vnid    uint64
	parent  uint64
	name    string
	hasRoot bool // true only for the share root, which has no parent record
	invalid bool
}

// Cache is the vnode arena for a single mounted share. The zero value is
// not usable; construct one with New.
type Cache struct {
	lock    *rwlock.RWLock
	byVnid  map[uint64]*entry
	rootSet bool
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		lock:   rwlock.New(),
		byVnid: make(map[uint64]*entry),
	}
}

// Len returns the number of cached vnode entries, for metrics.
func (c *Cache) Len() int {
	c.lock.BeginReading()
	defer c.lock.EndReading()
	return len(c.byVnid)
}

// AddHandle records that fileVnid is reachable as name under
// parentVnid. "." and ".." are never recorded. A record that already
// exists with the same fileVnid and a matching (parent, name) is a
// duplicate and is ignored. The first call with parentVnid == 0
// establishes the share root.
func (c *Cache) AddHandle(parentVnid, fileVnid uint64, name string) {
	if name == "." || name == ".." {
		return
	}

	c.lock.BeginWriting()
	defer c.lock.EndWriting()

	if existing, ok := c.byVnid[fileVnid]; ok {
		if existing.parent == parentVnid && existing.name == name {
			return
		}
	}

	e := &entry{vnid: fileVnid, parent: parentVnid, name: name}
	if !c.rootSet && parentVnid == RootVnid {
		e.hasRoot = true
		c.rootSet = true
	}
	c.byVnid[fileVnid] = e
}

// LookupByVnid returns the record for vnid, or false if it is not
// cached (or has been invalidated by a pending purge).
func (c *Cache) LookupByVnid(vnid uint64) (parent uint64, name string, ok bool) {
	c.lock.BeginReading()
	defer c.lock.EndReading()

	e, found := c.byVnid[vnid]
	if !found || e.invalid {
		return 0, "", false
	}
	return e.parent, e.name, true
}

// RemoveHandle unlinks the record for vnid. It is a no-op if vnid is
// not cached.
func (c *Cache) RemoveHandle(vnid uint64) {
	c.lock.BeginWriting()
	defer c.lock.EndWriting()
	delete(c.byVnid, vnid)
}

// PurgeSubtree removes vnid and every descendant of vnid from the
// cache. It runs in two passes: first every node whose ancestor chain
// contains vnid (including vnid itself) is marked invalid, then every
// invalid node is unlinked. Marking before unlinking means a child is
// never left pointing at a parent that has already been removed.
func (c *Cache) PurgeSubtree(vnid uint64) {
	c.lock.BeginWriting()
	defer c.lock.EndWriting()

	for _, e := range c.byVnid {
		if c.isDescendantLocked(e, vnid) {
			e.invalid = true
		}
	}
	for v, e := range c.byVnid {
		if e.invalid {
			delete(c.byVnid, v)
		}
	}
}

// isDescendantLocked reports whether e is vnid itself or has vnid
// somewhere in its ancestor chain. Must be called with c.lock held.
func (c *Cache) isDescendantLocked(e *entry, vnid uint64) bool {
	for cur := e; cur != nil; {
		if cur.vnid == vnid {
			return true
		}
		if cur.hasRoot {
			return false
		}
		next, ok := c.byVnid[cur.parent]
		if !ok {
			return false
		}
		cur = next
	}
	return false
}

// RenderPath walks the ancestor chain from vnid up to the share root
// and returns the "/"-joined path of cached names, relative to the
// share root; it is not joined with the share's local path. Returns
// shareerr.InvalidHandle if vnid is not cached.
func (c *Cache) RenderPath(vnid uint64) (string, error) {
	c.lock.BeginReading()
	defer c.lock.EndReading()

	e, ok := c.byVnid[vnid]
	if !ok || e.invalid {
		return "", shareerr.NewInvalidHandle()
	}

	var names []string
	cur := e
	for {
		names = append(names, cur.name)
		if cur.hasRoot {
			break
		}
		parent, ok := c.byVnid[cur.parent]
		if !ok {
			return "", shareerr.NewInvalidHandle()
		}
		cur = parent
	}

	var b strings.Builder
	for i := len(names) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(names[i])
	}
	return b.String(), nil
}

// VnidFromInfo derives a vnid from a file's inode number, the closest
// stand-in on a host filesystem for BFS's native vnode identifier:
// stable for the life of the file regardless of the path used to reach
// it, which is exactly what a handle cached across requests requires.
func VnidFromInfo(info os.FileInfo) uint64 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return st.Ino
	}
	return 0
}
