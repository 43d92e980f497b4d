package permission

import "strings"

// Role is a coarse user classification derived from profile attributes.
// Roles are static configuration, not mutable data.
type Role struct {
	ID   int
	Name string
}

var (
	// RoleAdmin has every console permission.
	RoleAdmin = Role{ID: 1, Name: "admin"}
	// RoleInstructor covers teaching staff ("teacher" and "instructor"
	// professional statuses).
	RoleInstructor = Role{ID: 2, Name: "instructor"}
	// RoleStudent is the least-privileged default for everyone else,
	// including unknown or missing input.
	RoleStudent = Role{ID: 3, Name: "student"}
)

// RolePermissions is the static role-to-permission fallback table. It is
// consulted only when live permission data is unavailable; it documents a
// degraded mode and must never be used to grant beyond what the server
// would grant.
var RolePermissions = map[Role]Set{
	RoleAdmin: NewSet(all...),
	RoleInstructor: NewSet(
		CanViewUser,
		CanViewBlog,
		CanManageBlog,
		CanViewJob,
		CanViewTraining,
		CanManageTraining,
		CanViewReclamation,
		CanViewCenter,
	),
	RoleStudent: NewSet(
		CanViewBlog,
		CanViewJob,
		CanViewTraining,
	),
}

// ResolveRole maps a profile's professional status to a [Role]. Pure and
// total: matching is case-insensitive and anything unrecognized, including
// the empty string, resolves to [RoleStudent].
func ResolveRole(professionalStatus string) Role {
	switch strings.ToLower(strings.TrimSpace(professionalStatus)) {
	case "admin":
		return RoleAdmin
	case "teacher", "instructor":
		return RoleInstructor
	default:
		return RoleStudent
	}
}

// FallbackPermissions returns a copy of the static permission set for role.
// A role with no table entry yields the empty set rather than an error.
func FallbackPermissions(role Role) Set {
	set, ok := RolePermissions[role]
	if !ok {
		return NewSet()
	}
	return set.Clone()
}
