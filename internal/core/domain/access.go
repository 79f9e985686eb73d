package domain

// Users with RoleAdmin can do anything as they are the global administrator
// of the external video system.
const RoleAdmin = "ROLE_ADMIN"

// RoleAnonymous is held implicitly by every user, logged in or not. An ACL
// containing it grants access to everyone.
const RoleAnonymous = "ROLE_ANONYMOUS"

// DefaultModeratorRole is the default role allowing realm tree edits.
const DefaultModeratorRole = "ROLE_LECTERN_MODERATOR"

// User is the identity attached to a request, as asserted by the trusted
// auth proxy in front of Lectern.
type User struct {
	Username    string
	DisplayName string
	Roles       []string
}

// Anonymous is the user for unauthenticated requests.
var Anonymous = User{Roles: []string{RoleAnonymous}}

// IsAdmin reports whether the user holds the global admin role.
func (u *User) IsAdmin() bool {
	for _, r := range u.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

// HasRole reports whether the user holds the given role. Every user holds
// RoleAnonymous.
func (u *User) HasRole(role string) bool {
	if role == RoleAnonymous {
		return true
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Access resolves effective permissions from user role-sets and entity
// ACLs. It is a pure function layer with no side effects, shared by the
// mutation API and the query surface.
type Access struct {
	// ModeratorRole grants the ability to modify the realm structure.
	ModeratorRole string
}

// NewAccess builds an Access resolver, falling back to the default
// moderator role when none is configured.
func NewAccess(moderatorRole string) Access {
	if moderatorRole == "" {
		moderatorRole = DefaultModeratorRole
	}
	return Access{ModeratorRole: moderatorRole}
}

// CanReadEvent reports whether the user may see the event. An empty read
// ACL means unrestricted: the entity inherits public readability.
func (a Access) CanReadEvent(u *User, ev *Event) bool {
	return a.allowed(u, ev.ReadRoles, true)
}

// CanWriteEvent reports whether the user may modify the event. An empty
// write ACL restricts writes to the admin.
func (a Access) CanWriteEvent(u *User, ev *Event) bool {
	return a.allowed(u, ev.WriteRoles, false)
}

// CanReadDocument reports whether the user may see a search document,
// using the read roles denormalized into the index.
func (a Access) CanReadDocument(u *User, doc *SearchDocument) bool {
	return a.allowed(u, doc.ReadRoles, true)
}

// CanEditRealms reports whether the user may mutate the realm tree.
// Realms carry no ACL of their own; structural edits require the
// moderator role or admin.
func (a Access) CanEditRealms(u *User) bool {
	return u.IsAdmin() || u.HasRole(a.ModeratorRole)
}

func (a Access) allowed(u *User, acl []string, openDefault bool) bool {
	if u.IsAdmin() {
		return true
	}
	if len(acl) == 0 {
		return openDefault
	}
	for _, role := range acl {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}
