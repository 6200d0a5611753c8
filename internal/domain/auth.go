package domain

import "fmt"

// Actor is the authenticated principal performing an operation.
type Actor struct {
	UserID string
	Roles  RoleSet
}

// NewActor builds an actor from stored roles.
func NewActor(userID string, roles ...Role) Actor {
	return Actor{UserID: userID, Roles: NewRoleSet(roles...)}
}

// InvalidValueError reports input outside a closed enumeration.
type InvalidValueError struct {
	Field string
	Value string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}
