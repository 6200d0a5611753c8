package domain

import (
	"strings"
	"time"
)

// Role is one of the fixed helpdesk roles.
type Role string

const (
	RoleUser       Role = "USER"
	RoleTechnician Role = "TECHNICIAN"
	RoleAdmin      Role = "ADMIN"
)

// AllRoles lists every known role in ascending privilege.
var AllRoles = []Role{RoleUser, RoleTechnician, RoleAdmin}

// ParseRole converts raw input into a Role.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	switch role {
	case RoleUser, RoleTechnician, RoleAdmin:
		return role, nil
	}
	return "", &InvalidValueError{Field: "role", Value: raw}
}

// RoleSet is a closed set of roles. The base role is always a member.
type RoleSet uint8

const (
	roleBitUser RoleSet = 1 << iota
	roleBitTechnician
	roleBitAdmin
)

func roleBit(r Role) RoleSet {
	switch r {
	case RoleUser:
		return roleBitUser
	case RoleTechnician:
		return roleBitTechnician
	case RoleAdmin:
		return roleBitAdmin
	}
	return 0
}

// NewRoleSet builds a set from roles; unknown values are ignored.
func NewRoleSet(roles ...Role) RoleSet {
	set := roleBitUser
	for _, r := range roles {
		set |= roleBit(r)
	}
	return set
}

// Has reports membership.
func (s RoleSet) Has(r Role) bool {
	bit := roleBit(r)
	if bit == roleBitUser {
		return true
	}
	return bit != 0 && s&bit != 0
}

// IsStaff reports whether the set grants technician-level access.
func (s RoleSet) IsStaff() bool {
	return s.Has(RoleTechnician) || s.Has(RoleAdmin)
}

// IsAdmin reports whether the set contains ADMIN.
func (s RoleSet) IsAdmin() bool {
	return s.Has(RoleAdmin)
}

// Roles returns the members in ascending privilege.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(AllRoles))
	for _, r := range AllRoles {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Strings returns the members as plain strings, e.g. for token claims.
func (s RoleSet) Strings() []string {
	roles := s.Roles()
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// User is a person who files or works tickets.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Roles        []Role
	FirstName    string
	LastName     string
	Department   *string
	Phone        *string
	CreatedAt    time.Time
}

// RoleSet returns the user's normalized role set.
func (u *User) RoleSet() RoleSet {
	return NewRoleSet(u.Roles...)
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Actor returns the principal used for policy decisions.
func (u *User) Actor() Actor {
	return Actor{UserID: u.ID, Roles: u.RoleSet()}
}
