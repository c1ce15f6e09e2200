package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasherVerify(t *testing.T) {
	hasher, err := NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	passwords := []string{"p1", "correct horse battery staple", "ünïcødé", strings.Repeat("x", 60)}
	for _, password := range passwords {
		digest, err := hasher.Hash(password)
		require.NoError(t, err)
		assert.NotContains(t, digest, password)

		assert.True(t, hasher.Verify(password, digest), password)
		assert.False(t, hasher.Verify(password+"!", digest), password)
		assert.False(t, hasher.Verify("", digest), password)
	}
}

func TestPasswordHasherSaltsEachHash(t *testing.T) {
	hasher, err := NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	first, err := hasher.Hash("same")
	require.NoError(t, err)
	second, err := hasher.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestPasswordHasherClampsCost(t *testing.T) {
	hasher, err := NewPasswordHasher(1)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, hasher.cost)

	digest, err := hasher.Hash("p")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	assert.NotPanics(t, func() { hasher.VerifyDummy("anything") })
}

func TestPasswordHasherRejectsOverlongPassword(t *testing.T) {
	hasher, err := NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	_, err = hasher.Hash(strings.Repeat("x", 73))
	require.Error(t, err)
}
