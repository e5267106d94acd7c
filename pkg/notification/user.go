// Package notification is the producer-side service: it turns user
// lifecycle changes into events on the sink, with a per-kind fallback when
// the broker rejects the publish.
package notification

import "github.com/google/uuid"

// Role is a user's access level.
type Role string

const (
	RoleAnonymous     Role = "ANONYMOUS"
	RoleAuthenticated Role = "AUTHENTICATED"
	RoleManager       Role = "MANAGER"
	RoleAdmin         Role = "ADMIN"
)

// User carries the account fields notifications are built from.
type User struct {
	ID                uuid.UUID
	Email             string
	FirstName         string
	VerificationToken string
	IsProfessional    bool
}
