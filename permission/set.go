package permission

import "sort"

// Set is a deduplicated collection of permissions. The zero value is not
// usable; construct with [NewSet].
type Set map[Permission]struct{}

// NewSet creates a Set containing the given permissions. Invalid permissions
// are dropped silently; the closed enumeration is the only membership domain.
func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s.Add(p)
	}
	return s
}

// Add inserts p if it belongs to the closed enumeration.
func (s Set) Add(p Permission) {
	if !p.Valid() {
		return
	}
	s[p] = struct{}{}
}

// Has reports membership of p.
func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Len reports the number of members.
func (s Set) Len() int {
	return len(s)
}

// Clone returns an independent copy. Callers of the cache receive clones so
// the owned entry can never be mutated from outside.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

// List returns the members sorted by wire form, for stable snapshots and logs.
func (s Set) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the sorted wire forms of the members.
func (s Set) Strings() []string {
	list := s.List()
	out := make([]string, len(list))
	for i, p := range list {
		out[i] = string(p)
	}
	return out
}
