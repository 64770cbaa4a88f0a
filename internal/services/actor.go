package services

import (
	"gestion-backend/internal/workflow"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   int
	Role workflow.Role
	IP   string
}

func (a Actor) auditIP() *string {
	if a.IP == "" {
		return nil
	}
	ip := a.IP
	return &ip
}

func (a Actor) auditUser() *int {
	if a.ID == 0 {
		return nil
	}
	id := a.ID
	return &id
}

func (a Actor) is(roles ...workflow.Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
