package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("unit-test-secret", 1, 7)

	t.Run("签发与验证往返", func(t *testing.T) {
		tokenStr, err := m.GenerateToken(42, "m@casinha.org", "DIRECTOR")
		require.NoError(t, err)

		claims, err := m.VerifyToken(tokenStr)
		require.NoError(t, err)
		assert.Equal(t, uint(42), claims.UserID)
		assert.Equal(t, "m@casinha.org", claims.Email)
		assert.Equal(t, "DIRECTOR", claims.Role)
		assert.NotNil(t, claims.ExpiresAt)
	})

	t.Run("refresh token 同样可被验证", func(t *testing.T) {
		refresh, err := m.GenerateRefreshToken(7, "r@casinha.org", "MEMBER")
		require.NoError(t, err)

		claims, err := m.VerifyToken(refresh)
		require.NoError(t, err)
		assert.Equal(t, uint(7), claims.UserID)
	})

	t.Run("密钥不匹配时验证失败", func(t *testing.T) {
		tokenStr, err := m.GenerateToken(1, "x@casinha.org", "MEMBER")
		require.NoError(t, err)

		other := NewJWTManager("another-secret", 1, 7)
		_, err = other.VerifyToken(tokenStr)
		assert.Error(t, err)
	})

	t.Run("非法字符串被拒绝", func(t *testing.T) {
		_, err := m.VerifyToken("definitely-not-a-jwt")
		assert.Error(t, err)
	})
}

func TestGenerateRandomString(t *testing.T) {
	a := GenerateRandomString(16)
	b := GenerateRandomString(16)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
