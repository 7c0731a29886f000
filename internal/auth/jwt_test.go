package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdpulse/backend/internal/models"
)

func TestJWTService(t *testing.T) {
	svc := NewJWTService("test-secret", 1)

	t.Run("round trip", func(t *testing.T) {
		userID := uuid.New()
		token, err := svc.Generate(userID, "mod@example.com", models.RoleModerator)
		require.NoError(t, err)

		claims, err := svc.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, "mod@example.com", claims.Email)
		assert.Equal(t, models.RoleModerator, claims.Role)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := svc.Validate("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects token signed with another secret", func(t *testing.T) {
		other := NewJWTService("other-secret", 1)
		token, err := other.Generate(uuid.New(), "x@example.com", models.RoleAdmin)
		require.NoError(t, err)

		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		expired := NewJWTService("test-secret", -1)
		token, err := expired.Generate(uuid.New(), "x@example.com", models.RoleModerator)
		require.NoError(t, err)

		// issued already past its expiry
		time.Sleep(10 * time.Millisecond)
		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
