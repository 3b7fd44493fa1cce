package vnode

import "testing"

func TestAddHandleEstablishesRoot(t *testing.T) {
	c := New()
	c.AddHandle(0, 1, "share-root")

	parent, name, ok := c.LookupByVnid(1)
	if !ok {
		t.Fatal("expected root vnid 1 to be cached")
	}
	if parent != 0 || name != "share-root" {
		t.Errorf("got parent=%d name=%q, want parent=0 name=share-root", parent, name)
	}
}

func TestAddHandleIgnoresDotAndDotDot(t *testing.T) {
	c := New()
	c.AddHandle(0, 1, "root")
	c.AddHandle(1, 2, ".")
	c.AddHandle(1, 3, "..")

	if _, _, ok := c.LookupByVnid(2); ok {
		t.Error("\".\" should not be cached")
	}
	if _, _, ok := c.LookupByVnid(3); ok {
		t.Error("\"..\" should not be cached")
	}
}

func TestAddHandleDuplicateIgnored(t *testing.T) {
	c := New()
	c.AddHandle(0, 1, "root")
	c.AddHandle(1, 2, "file.txt")
	c.AddHandle(1, 2, "file.txt") // duplicate, same parent+name

	parent, name, ok := c.LookupByVnid(2)
	if !ok || parent != 1 || name != "file.txt" {
		t.Errorf("got parent=%d name=%q ok=%v, want 1 file.txt true", parent, name, ok)
	}
}

func TestLookupByVnidMissing(t *testing.T) {
	c := New()
	if _, _, ok := c.LookupByVnid(999); ok {
		t.Error("expected miss for uncached vnid")
	}
}

func TestRemoveHandle(t *testing.T) {
	c := New()
	c.AddHandle(0, 1, "root")
	c.AddHandle(1, 2, "file.txt")

	c.RemoveHandle(2)
	if _, _, ok := c.LookupByVnid(2); ok {
		t.Error("expected vnid to be gone after RemoveHandle")
	}
}

func TestRenderPath(t *testing.T) {
	c := New()
	c.AddHandle(0, 1, "root")
	c.AddHandle(1, 2, "dir")
	c.AddHandle(2, 3, "file.txt")

	path, err := c.RenderPath(3)
	if err != nil {
		t.Fatalf("RenderPath: %v", err)
	}
	if path != "/root/dir/file.txt" {
		t.Errorf("RenderPath = %q, want /root/dir/file.txt", path)
	}
}

func TestRenderPathRoot(t *testing.T) {
	c := New()
	c.AddHandle(0, 1, "root")

	path, err := c.RenderPath(1)
	if err != nil {
		t.Fatalf("RenderPath: %v", err)
	}
	if path != "/root" {
		t.Errorf("RenderPath(root) = %q, want /root", path)
	}
}

func TestRenderPathMissingVnid(t *testing.T) {
	c := New()
	if _, err := c.RenderPath(42); err == nil {
		t.Error("expected error for uncached vnid")
	}
}

// TestPurgeSubtree exercises the invariant from §8: after purging a
// directory, every descendant is gone too and none is left pointing at
// a parent that no longer exists.
func TestPurgeSubtree(t *testing.T) {
	c := New()
	c.AddHandle(0, 1, "root")
	c.AddHandle(1, 2, "dir")
	c.AddHandle(2, 3, "a.txt")
	c.AddHandle(2, 4, "b.txt")
	c.AddHandle(1, 5, "sibling.txt")

	c.PurgeSubtree(2)

	for _, vnid := range []uint64{2, 3, 4} {
		if _, _, ok := c.LookupByVnid(vnid); ok {
			t.Errorf("vnid %d should have been purged", vnid)
		}
	}
	if _, _, ok := c.LookupByVnid(5); !ok {
		t.Error("sibling outside the purged subtree should survive")
	}
	if _, _, ok := c.LookupByVnid(1); !ok {
		t.Error("root outside the purged subtree should survive")
	}
}

// TestPurgeSubtreeIdempotent purging an already-purged or never-cached
// vnid must not panic and must be a no-op.
func TestPurgeSubtreeIdempotent(t *testing.T) {
	c := New()
	c.AddHandle(0, 1, "root")
	c.PurgeSubtree(999)
	c.PurgeSubtree(999)

	if _, _, ok := c.LookupByVnid(1); !ok {
		t.Error("unrelated root should be unaffected by purging an unknown vnid")
	}
}
