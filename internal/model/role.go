package model

// Role is a member's standing in a project.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// Permissions is the flattened capability set of a role.
type Permissions struct {
	EditProject   bool `json:"canEditProject"`
	DeleteProject bool `json:"canDeleteProject"`
	ManageMembers bool `json:"canManageMembers"`
	CreateTasks   bool `json:"canCreateTasks"`
	EditTasks     bool `json:"canEditTasks"`
	DeleteTasks   bool `json:"canDeleteTasks"`
	ManageBoards  bool `json:"canManageBoards"`
}

var rolePermissions = map[Role]Permissions{
	RoleOwner: {
		EditProject: true, DeleteProject: true, ManageMembers: true,
		CreateTasks: true, EditTasks: true, DeleteTasks: true, ManageBoards: true,
	},
	RoleAdmin: {
		EditProject: true, ManageMembers: true,
		CreateTasks: true, EditTasks: true, DeleteTasks: true, ManageBoards: true,
	},
	RoleMember: {
		CreateTasks: true, EditTasks: true,
	},
	RoleViewer: {},
}

// Permissions looks r up in the fixed table. Unknown roles get viewer
// rights, i.e. read-only.
func (r Role) Permissions() Permissions {
	if p, ok := rolePermissions[r]; ok {
		return p
	}
	return rolePermissions[RoleViewer]
}
