package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"practice_service/internal/domain"
	"practice_service/internal/identity"
)

func newResolver() *identity.Resolver {
	return identity.NewResolver("@id.local", []string{"@naver.com", "@gmail.com"})
}

func TestNormalize(t *testing.T) {
	r := newResolver()

	assert.Equal(t, "sujin@id.local", r.Normalize("sujin"))
	assert.Equal(t, "sujin@id.local", r.Normalize("sujin@id.local"))
	assert.Equal(t, "teacher@gmail.com", r.Normalize("teacher@gmail.com"))
	assert.Equal(t, "", r.Normalize(""))
}

func TestResolve(t *testing.T) {
	r := newResolver()

	assert.Equal(t, domain.RoleGuest, r.Resolve(""))
	assert.Equal(t, domain.RoleStudent, r.Resolve("sujin@id.local"))
	assert.Equal(t, domain.RoleTeacher, r.Resolve("t@naver.com"))
	assert.Equal(t, domain.RoleTeacher, r.Resolve("t@gmail.com"))
	assert.Equal(t, domain.RoleUnknown, r.Resolve("someone@example.org"))
}
