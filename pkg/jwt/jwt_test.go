package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_GenerateAndVerify(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	token, err := manager.Generate("user-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestJWTManager_RejectsWrongSecret(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	other := NewJWTManager("other-secret", time.Hour)

	token, err := manager.Generate("user-1")
	require.NoError(t, err)

	claims, err := other.Verify(token)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestJWTManager_RejectsExpiredToken(t *testing.T) {
	manager := NewJWTManager("test-secret", -time.Minute)

	token, err := manager.Generate("user-1")
	require.NoError(t, err)

	claims, err := manager.Verify(token)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestJWTManager_RejectsGarbage(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	claims, err := manager.Verify("not-a-token")
	assert.Error(t, err)
	assert.Nil(t, claims)
}
