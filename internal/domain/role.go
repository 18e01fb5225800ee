package domain

// Role is the closed set of caller roles known to the permission gate.
type Role string

const (
	RoleUser         Role = "USER"
	RoleCommissioner Role = "CONFERENCE_COMMISSIONER"
	RoleAdmin        Role = "ADMIN"
)
