package share

import (
	"errors"
	"testing"

	"github.com/sharewire/sharewire/internal/shareconf"
)

func okStat(string) error { return nil }

func TestLoadShareAndGrant(t *testing.T) {
	directives, err := shareconf.Parse([]string{
		`share "/srv/pub" as "pub"`,
		`set "pub" read-write`,
		`grant read,write on "pub" to "alice"`,
		`grant read on "pub" to group "staff"`,
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	table, err := Load(directives, okStat)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	s, idx, ok := table.ByName("pub")
	if !ok {
		t.Fatal("expected share \"pub\" to exist")
	}
	if idx != 0 {
		t.Errorf("idx = %d, want 0", idx)
	}
	if s.ReadOnly {
		t.Error("expected read-write share")
	}
	if len(s.ACL) != 2 {
		t.Fatalf("len(ACL) = %d, want 2", len(s.ACL))
	}
}

func TestLoadRejectsDuplicateShareName(t *testing.T) {
	directives, _ := shareconf.Parse([]string{
		`share "/srv/pub" as "pub"`,
		`share "/srv/other" as "pub"`,
	})
	if _, err := Load(directives, okStat); err == nil {
		t.Fatal("expected duplicate share name to be rejected")
	}
}

func TestShareNameMatchingIsCaseInsensitive(t *testing.T) {
	directives, err := shareconf.Parse([]string{`share "/srv/pub" as "Pub"`})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	table, err := Load(directives, okStat)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	s, _, ok := table.ByName("pub")
	if !ok {
		t.Fatal("expected case-insensitive lookup to find \"Pub\"")
	}
	if s.Name != "Pub" {
		t.Errorf("Name = %q, want display name \"Pub\" preserved", s.Name)
	}

	if _, _, ok := table.ByName("PUB"); !ok {
		t.Fatal("expected case-insensitive lookup to find \"Pub\" via \"PUB\"")
	}
}

func TestLoadRejectsDuplicateShareNameDifferentCase(t *testing.T) {
	directives, _ := shareconf.Parse([]string{
		`share "/srv/pub" as "Pub"`,
		`share "/srv/other" as "pub"`,
	})
	if _, err := Load(directives, okStat); err == nil {
		t.Fatal("expected \"Pub\" and \"pub\" to be rejected as the same share name")
	}
}

func TestLoadRejectsNonexistentPath(t *testing.T) {
	directives, _ := shareconf.Parse([]string{`share "/does/not/exist" as "pub"`})
	failStat := func(string) error { return errors.New("not found") }
	if _, err := Load(directives, failStat); err == nil {
		t.Fatal("expected nonexistent path to be rejected")
	}
}

func TestReloadRebindsMovedIndex(t *testing.T) {
	initial, _ := shareconf.Parse([]string{
		`share "/srv/a" as "a"`,
		`share "/srv/b" as "b"`,
	})
	table, err := Load(initial, okStat)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// "b" now comes first: its index moves from 1 to 0.
	reloaded, _ := shareconf.Parse([]string{
		`share "/srv/b" as "b"`,
		`share "/srv/a" as "a"`,
	})
	plan, err := table.Reload(reloaded, okStat)
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if plan.Rebind[1] != 0 {
		t.Errorf("expected share at old index 1 to rebind to 0, got %+v", plan.Rebind)
	}
	if len(plan.Removed) != 0 {
		t.Errorf("expected no removed shares, got %v", plan.Removed)
	}
}

func TestReloadFlagsRemovedShare(t *testing.T) {
	initial, _ := shareconf.Parse([]string{`share "/srv/a" as "a"`})
	table, err := Load(initial, okStat)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	plan, err := table.Reload(nil, okStat)
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if len(plan.Removed) != 1 || plan.Removed[0] != 0 {
		t.Errorf("plan.Removed = %v, want [0]", plan.Removed)
	}
}
