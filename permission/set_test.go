package permission

import (
	"sort"
	"testing"
)

func TestNewSetDropsInvalidPermissions(t *testing.T) {
	s := NewSet(CanViewUser, Permission("can_fly"), CanViewBlog, Permission(""))
	if s.Len() != 2 {
		t.Fatalf("expected invalid members dropped, got %v", s.Strings())
	}
	if s.Has(Permission("can_fly")) {
		t.Fatal("invalid permission resolved to a grant")
	}
}

func TestSetCloneIsIndependent(t *testing.T) {
	s := NewSet(CanViewUser)
	c := s.Clone()
	c.Add(CanViewBlog)

	if s.Has(CanViewBlog) {
		t.Fatal("clone mutation leaked into the source")
	}
	if !c.Has(CanViewUser) || !c.Has(CanViewBlog) {
		t.Fatal("clone lost members")
	}
}

func TestSetListIsSorted(t *testing.T) {
	s := NewSet(CanViewUser, CanManageBlog, CanViewBlog, CanEditUser)
	got := s.Strings()
	if !sort.StringsAreSorted(got) {
		t.Fatalf("List must be sorted, got %v", got)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 members, got %v", got)
	}
}

func TestPermissionValid(t *testing.T) {
	for _, p := range All() {
		if !p.Valid() {
			t.Errorf("enumerated permission %s reported invalid", p)
		}
	}
	if Permission("can_view_blog ").Valid() {
		t.Fatal("whitespace variant must not validate")
	}
}
