package model

// Role is the caller role supplied by the external auth service.
type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

// Actor identifies who performs a mutating operation.
type Actor struct {
	ID   string
	Role Role
}

// SystemActor is used by background jobs.
var SystemActor = Actor{ID: SystemActorID, Role: RoleSystem}

// IsAdmin reports whether the actor has admin rights.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
