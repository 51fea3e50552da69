package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRole(t *testing.T) {
	assert.True(t, RoleOwner.IsManager())
	assert.True(t, RoleOwner.IsOwner())
	assert.True(t, RoleManager.IsManager())
	assert.False(t, RoleManager.IsOwner())
	assert.False(t, RoleEmployee.IsManager())
	assert.False(t, Role("").IsOwner())
}
