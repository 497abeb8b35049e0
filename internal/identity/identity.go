// Package identity maps raw account identifiers to platform roles by
// domain-suffix matching.
package identity

import (
	"strings"

	"practice_service/internal/domain"
)

type Resolver struct {
	studentDomain  string
	teacherDomains []string
}

// NewResolver builds a resolver. studentDomain must include the leading "@".
func NewResolver(studentDomain string, teacherDomains []string) *Resolver {
	return &Resolver{
		studentDomain:  studentDomain,
		teacherDomains: teacherDomains,
	}
}

// Normalize expands a bare username into a full student account identifier.
// Identifiers that already carry a domain pass through untouched.
func (r *Resolver) Normalize(identifier string) string {
	if identifier == "" || strings.Contains(identifier, "@") {
		return identifier
	}
	return identifier + r.studentDomain
}

// Resolve classifies an account email. An empty email is a guest; a
// recognized suffix yields student or teacher; anything else is unknown.
func (r *Resolver) Resolve(email string) domain.Role {
	if email == "" {
		return domain.RoleGuest
	}
	if strings.HasSuffix(email, r.studentDomain) {
		return domain.RoleStudent
	}
	for _, d := range r.teacherDomains {
		if strings.HasSuffix(email, d) {
			return domain.RoleTeacher
		}
	}
	return domain.RoleUnknown
}
