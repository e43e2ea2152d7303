// Package rbac decides what a user may do with a checklist or note.
package rbac

type Role string
type Action string

const (
	RoleNone         Role = "none"
	RoleCollaborator Role = "collaborator"
	RoleOwner        Role = "owner"
	RoleAdmin        Role = "admin"
)

// ActionDelete removes the item itself; collaborators may edit but not
// delete. ActionAdmin covers user management, settings and cross-user
// listings.
const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionShare  Action = "share"
	ActionDelete Action = "delete"
	ActionAdmin  Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleOwner:
		return action == ActionRead || action == ActionWrite || action == ActionShare || action == ActionDelete
	case RoleCollaborator:
		return action == ActionRead || action == ActionWrite
	default:
		return false
	}
}

// RoleFor derives the caller's role on an item owned by owner and shared with
// sharedWith. Public visibility is deliberately not an input: it only matters
// on the unauthenticated public route.
func RoleFor(username string, isAdmin bool, owner string, sharedWith []string) Role {
	if username == "" {
		return RoleNone
	}
	if isAdmin {
		return RoleAdmin
	}
	if username == owner {
		return RoleOwner
	}
	for _, name := range sharedWith {
		if name == username {
			return RoleCollaborator
		}
	}
	return RoleNone
}

func CanAccessItem(username string, isAdmin bool, owner string, sharedWith []string, action Action) bool {
	return Can(RoleFor(username, isAdmin, owner, sharedWith), action)
}
