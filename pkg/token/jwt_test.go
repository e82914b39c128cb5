package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	m := NewManager("secret", "shop")

	raw, err := m.Issue(42, "a@example.com", "admin", PurposeAccess, time.Hour)
	require.NoError(t, err)

	claims, err := m.Parse(raw, PurposeAccess)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestParseRejects(t *testing.T) {
	m := NewManager("secret", "shop")

	expired, err := m.Issue(1, "", "customer", PurposeAccess, -time.Minute)
	require.NoError(t, err)
	_, err = m.Parse(expired, PurposeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	verify, err := m.Issue(1, "", "", PurposeVerifyEmail, time.Hour)
	require.NoError(t, err)
	_, err = m.Parse(verify, PurposeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := NewManager("other", "shop").Issue(1, "", "admin", PurposeAccess, time.Hour)
	require.NoError(t, err)
	_, err = m.Parse(foreign, PurposeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	otherIssuer, err := NewManager("secret", "todo").Issue(1, "", "admin", PurposeAccess, time.Hour)
	require.NoError(t, err)
	_, err = m.Parse(otherIssuer, PurposeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Parse("not-a-token", PurposeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
