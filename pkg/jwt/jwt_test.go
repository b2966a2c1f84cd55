package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	m, err := NewManager("secret", "raffle-api", time.Hour)
	require.NoError(t, err)

	token, err := m.Issue("buyer-1", "ana@example.com", "buyer")
	require.NoError(t, err)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "buyer-1", claims.Subject)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, "buyer", claims.Role)
}

func TestParseRejectsForeignSecret(t *testing.T) {
	a, _ := NewManager("secret-a", "", time.Hour)
	b, _ := NewManager("secret-b", "", time.Hour)

	token, err := a.Issue("admin-1", "", "admin")
	require.NoError(t, err)

	_, err = b.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseExpired(t *testing.T) {
	m, _ := NewManager("secret", "", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := m.Issue("buyer-1", "", "buyer")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager("", "", time.Hour)
	assert.Error(t, err)
}
