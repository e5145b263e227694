package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-that-is-at-least-32-bytes-long")

func testTokenManager(t *testing.T, now time.Time) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)
	m.Now = func() time.Time { return now }
	return m
}

func TestNewTokenManager(t *testing.T) {
	_, err := NewTokenManager([]byte("short"), time.Hour)
	assert.ErrorIs(t, err, ErrSecretTooShort)

	m, err := NewTokenManager(testSecret, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, m.TTL())
}

func TestTokenManager_MintVerify(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	m := testTokenManager(t, now)

	identity := Identity{ID: 7, Email: "ana@example.com", Name: "Ana", Role: RoleAdmin}
	token, claims, err := m.Mint(identity)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.NotEmpty(t, claims.RegisteredClaims.ID)
	assert.Equal(t, now.Add(time.Hour), claims.ExpiresAt.Time)

	verified, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, &identity, verified.Identity())
	assert.Equal(t, claims.RegisteredClaims.ID, verified.RegisteredClaims.ID)
}

func TestTokenManager_VerifyRejects(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	m := testTokenManager(t, now)
	token, _, err := m.Mint(Identity{ID: 1, Email: "a@example.com", Role: RoleUser})
	require.NoError(t, err)

	t.Run("Tampered", func(t *testing.T) {
		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		sig := []byte(parts[2])
		if sig[0] == 'A' {
			sig[0] = 'B'
		} else {
			sig[0] = 'A'
		}
		_, err := m.Verify(parts[0] + "." + parts[1] + "." + string(sig))
		assert.Error(t, err)
	})

	t.Run("Expired", func(t *testing.T) {
		later := testTokenManager(t, now.Add(2*time.Hour))
		_, err := later.Verify(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other, err := NewTokenManager([]byte("another-secret-that-is-at-least-32-bytes"), time.Hour)
		require.NoError(t, err)
		other.Now = m.Now
		_, err = other.Verify(token)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("NoneAlgorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			UserID: 1,
			Role:   RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		})
		forged, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Verify(forged)
		assert.Error(t, err)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := m.Verify("not-a-token")
		assert.Error(t, err)
	})
}
