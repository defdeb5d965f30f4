package model

import "strings"

// Role identifies one of the pipeline's actor kinds. The set is closed;
// requests carrying anything else are rejected at the edge.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleOptimizer       Role = "optimizer"
	RoleReviewer        Role = "reviewer"
	RoleContentReviewer Role = "content_reviewer"
	RoleMediaReviewer   Role = "media_reviewer"
	RoleUploader        Role = "uploader"
)

var allRoles = []Role{
	RoleAdmin,
	RoleOptimizer,
	RoleReviewer,
	RoleContentReviewer,
	RoleMediaReviewer,
	RoleUploader,
}

var roleSet = func() map[Role]struct{} {
	set := make(map[Role]struct{}, len(allRoles))
	for _, r := range allRoles {
		set[r] = struct{}{}
	}
	return set
}()

// AllRoles returns every known role. Callers must not mutate the result.
func AllRoles() []Role {
	return allRoles
}

// ParseRole normalizes and validates a raw role string.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := roleSet[role]
	return role, ok
}

// IsAdmin reports whether the role is the administrator role.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}
