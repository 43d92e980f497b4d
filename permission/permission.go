package permission

// Permission identifies one grantable console capability. The enumeration is
// closed: strings outside this list never resolve to a grant, regardless of
// what a transport returns.
type Permission string

const (
	// CanViewUser is membership in the user-directory read surface.
	CanViewUser Permission = "can_view_user"
	// CanCreateUser allows creating console accounts.
	CanCreateUser Permission = "can_create_user"
	// CanEditUser allows mutating existing accounts.
	CanEditUser Permission = "can_edit_user"
	// CanDeleteUser allows removing accounts.
	CanDeleteUser Permission = "can_delete_user"
	// CanManageRoles allows editing role definitions and assignments.
	CanManageRoles Permission = "can_manage_roles"

	// CanViewBlog and CanManageBlog cover the blog module.
	CanViewBlog   Permission = "can_view_blog"
	CanManageBlog Permission = "can_manage_blog"

	// CanViewJob and CanManageJob cover the job-offers module.
	CanViewJob   Permission = "can_view_job"
	CanManageJob Permission = "can_manage_job"

	// CanViewTraining and CanManageTraining cover the training module.
	CanViewTraining   Permission = "can_view_training"
	CanManageTraining Permission = "can_manage_training"

	// CanViewPayment and CanManagePayment cover the payments module.
	CanViewPayment   Permission = "can_view_payment"
	CanManagePayment Permission = "can_manage_payment"

	// CanViewReclamation and CanManageReclamation cover reclamations.
	CanViewReclamation   Permission = "can_view_reclamation"
	CanManageReclamation Permission = "can_manage_reclamation"

	// CanViewCenter and CanManageCenter cover organization centers.
	CanViewCenter   Permission = "can_view_center"
	CanManageCenter Permission = "can_manage_center"
)

var all = []Permission{
	CanViewUser,
	CanCreateUser,
	CanEditUser,
	CanDeleteUser,
	CanManageRoles,
	CanViewBlog,
	CanManageBlog,
	CanViewJob,
	CanManageJob,
	CanViewTraining,
	CanManageTraining,
	CanViewPayment,
	CanManagePayment,
	CanViewReclamation,
	CanManageReclamation,
	CanViewCenter,
	CanManageCenter,
}

var known = func() map[Permission]struct{} {
	m := make(map[Permission]struct{}, len(all))
	for _, p := range all {
		m[p] = struct{}{}
	}
	return m
}()

// All returns the closed enumeration in declaration order.
func All() []Permission {
	out := make([]Permission, len(all))
	copy(out, all)
	return out
}

// Valid reports whether p belongs to the closed enumeration.
func (p Permission) Valid() bool {
	_, ok := known[p]
	return ok
}

// String returns the canonical wire form.
func (p Permission) String() string {
	return string(p)
}
