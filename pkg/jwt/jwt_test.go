package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *JWTManager {
	return NewJWTManager("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
}

func TestGenerateTokenPair_RoundTrip(t *testing.T) {
	m := newTestManager()
	roleID := uint(7)

	pair, err := m.GenerateTokenPair(42, &roleID, "agent@example.com")
	require.NoError(t, err)

	claims, err := m.VerifyToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	require.NotNil(t, claims.RoleID)
	assert.Equal(t, uint(7), *claims.RoleID)
	assert.Equal(t, "agent@example.com", claims.Email)
	assert.NotEmpty(t, claims.ID)

	refresh, err := m.VerifyRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, uint(42), refresh.UserID)
	assert.NotEqual(t, claims.ID, refresh.ID)
}

func TestVerify_RejectsWrongTokenKind(t *testing.T) {
	m := newTestManager()
	pair, err := m.GenerateTokenPair(1, nil, "a@b.c")
	require.NoError(t, err)

	_, err = m.VerifyToken(pair.RefreshToken)
	assert.Error(t, err)

	_, err = m.VerifyRefreshToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestVerify_RejectsForeignSignatureAndExpiry(t *testing.T) {
	m := newTestManager()
	other := NewJWTManager("other", "other-refresh", time.Hour, time.Hour)

	pair, err := other.GenerateTokenPair(1, nil, "a@b.c")
	require.NoError(t, err)
	_, err = m.VerifyToken(pair.AccessToken)
	assert.Error(t, err)

	expired := NewJWTManager("access-secret", "refresh-secret", -time.Minute, time.Hour)
	pair, err = expired.GenerateTokenPair(1, nil, "a@b.c")
	require.NoError(t, err)
	_, err = m.VerifyToken(pair.AccessToken)
	assert.Error(t, err)
}
