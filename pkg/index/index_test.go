package index

import "testing"

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndStatIndex(t *testing.T) {
	s := openTestStore(t)

	if err := s.CreateIndex("by-name", TypeString); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	typ, err := s.StatIndex("by-name")
	if err != nil {
		t.Fatalf("StatIndex: %v", err)
	}
	if typ != TypeString {
		t.Errorf("Type = %v, want TypeString", typ)
	}
}

func TestCreateIndexRejectsDuplicate(t *testing.T) {
	s := openTestStore(t)
	_ = s.CreateIndex("by-name", TypeString)
	if err := s.CreateIndex("by-name", TypeString); err == nil {
		t.Error("expected duplicate index name to be rejected")
	}
}

func TestRemoveIndex(t *testing.T) {
	s := openTestStore(t)
	_ = s.CreateIndex("by-name", TypeString)
	_ = s.Put("by-name", Entry{Key: "a.txt", Vnid: 1})

	if err := s.RemoveIndex("by-name"); err != nil {
		t.Fatalf("RemoveIndex: %v", err)
	}
	if _, err := s.StatIndex("by-name"); err == nil {
		t.Error("expected StatIndex to fail after RemoveIndex")
	}
}

func TestReadIndexDirPagination(t *testing.T) {
	s := openTestStore(t)
	_ = s.CreateIndex("by-name", TypeString)
	for i, name := range []string{"a.txt", "b.txt", "c.txt"} {
		_ = s.Put("by-name", Entry{Key: name, Vnid: uint64(i + 1)})
	}

	page, cookie, err := s.ReadIndexDir("by-name", 0, 2)
	if err != nil {
		t.Fatalf("ReadIndexDir: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("len(page) = %d, want 2", len(page))
	}

	rest, _, err := s.ReadIndexDir("by-name", cookie, 2)
	if err != nil {
		t.Fatalf("ReadIndexDir: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("len(rest) = %d, want 1", len(rest))
	}
}

func TestReadQueryExactAndPrefix(t *testing.T) {
	s := openTestStore(t)
	_ = s.CreateIndex("by-name", TypeString)
	_ = s.Put("by-name", Entry{Key: "report-2024.txt", Vnid: 1})
	_ = s.Put("by-name", Entry{Key: "report-2025.txt", Vnid: 2})
	_ = s.Put("by-name", Entry{Key: "notes.txt", Vnid: 3})

	exact, err := s.ReadQuery("by-name", "notes.txt")
	if err != nil {
		t.Fatalf("ReadQuery: %v", err)
	}
	if len(exact) != 1 || exact[0].Vnid != 3 {
		t.Errorf("exact = %+v", exact)
	}

	prefix, err := s.ReadQuery("by-name", "report-*")
	if err != nil {
		t.Fatalf("ReadQuery: %v", err)
	}
	if len(prefix) != 2 {
		t.Errorf("len(prefix) = %d, want 2", len(prefix))
	}
}
