package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccess_CanReadEvent(t *testing.T) {
	access := NewAccess("")
	admin := User{Username: "root", Roles: []string{RoleAdmin}}
	student := User{Username: "sam", Roles: []string{"ROLE_STUDENT"}}

	restricted := Event{ID: "ev-1", ReadRoles: []string{"ROLE_STAFF"}}
	public := Event{ID: "ev-2", ReadRoles: []string{RoleAnonymous}}
	unrestricted := Event{ID: "ev-3"}

	assert.True(t, access.CanReadEvent(&admin, &restricted))
	assert.False(t, access.CanReadEvent(&student, &restricted))
	assert.False(t, access.CanReadEvent(&Anonymous, &restricted))

	assert.True(t, access.CanReadEvent(&student, &public))
	assert.True(t, access.CanReadEvent(&Anonymous, &public))

	// No ACL at all inherits public readability.
	assert.True(t, access.CanReadEvent(&Anonymous, &unrestricted))
}

func TestAccess_CanWriteEvent(t *testing.T) {
	access := NewAccess("")
	admin := User{Username: "root", Roles: []string{RoleAdmin}}
	staff := User{Username: "pat", Roles: []string{"ROLE_STAFF"}}
	student := User{Username: "sam", Roles: []string{"ROLE_STUDENT"}}

	ev := Event{ID: "ev-1", WriteRoles: []string{"ROLE_STAFF"}}
	noACL := Event{ID: "ev-2"}

	assert.True(t, access.CanWriteEvent(&admin, &ev))
	assert.True(t, access.CanWriteEvent(&staff, &ev))
	assert.False(t, access.CanWriteEvent(&student, &ev))

	// Without a write ACL only the admin may write.
	assert.True(t, access.CanWriteEvent(&admin, &noACL))
	assert.False(t, access.CanWriteEvent(&staff, &noACL))
}

func TestAccess_CanEditRealms(t *testing.T) {
	access := NewAccess("ROLE_PAGE_EDITOR")
	admin := User{Roles: []string{RoleAdmin}}
	editor := User{Roles: []string{"ROLE_PAGE_EDITOR"}}
	student := User{Roles: []string{"ROLE_STUDENT"}}

	assert.True(t, access.CanEditRealms(&admin))
	assert.True(t, access.CanEditRealms(&editor))
	assert.False(t, access.CanEditRealms(&student))
	assert.False(t, access.CanEditRealms(&Anonymous))
}

func TestAccess_DefaultModeratorRole(t *testing.T) {
	access := NewAccess("")
	assert.Equal(t, DefaultModeratorRole, access.ModeratorRole)

	moderator := User{Roles: []string{DefaultModeratorRole}}
	assert.True(t, access.CanEditRealms(&moderator))
}

func TestAccess_CanReadDocument(t *testing.T) {
	access := NewAccess("")
	student := User{Roles: []string{"ROLE_STUDENT"}}

	doc := SearchDocument{DocID: "event:1", ReadRoles: []string{"ROLE_STAFF"}}
	open := SearchDocument{DocID: "event:2"}

	assert.False(t, access.CanReadDocument(&student, &doc))
	assert.True(t, access.CanReadDocument(&student, &open))
}

func TestUserHasRole(t *testing.T) {
	u := User{Roles: []string{"ROLE_A"}}
	assert.True(t, u.HasRole("ROLE_A"))
	assert.True(t, u.HasRole(RoleAnonymous))
	assert.False(t, u.HasRole("ROLE_B"))
}
