package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager("", "", time.Hour)
	require.NoError(t, err)
	return m
}

func TestIssueAndValidateToken(t *testing.T) {
	m := newTestManager(t)
	keyID := uuid.New()

	token, exp, err := m.IssueToken("ingest-worker-1", RoleCollaborator, keyID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ingest-worker-1", claims.ClientID)
	assert.Equal(t, RoleCollaborator, claims.Role)
	require.NotNil(t, claims.APIKeyID)
	assert.Equal(t, keyID, *claims.APIKeyID)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	m := newTestManager(t)

	_, err := m.ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestValidateTokenRejectsForeignKey(t *testing.T) {
	issuerMgr := newTestManager(t)
	otherMgr := newTestManager(t)

	token, _, err := issuerMgr.IssueToken("analysis-worker", RoleCollaborator, uuid.New())
	require.NoError(t, err)

	_, err = otherMgr.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	m, err := NewJWTManager("", "", -time.Minute)
	require.NoError(t, err)

	token, _, err := m.IssueToken("ingest-worker-1", RoleCollaborator, uuid.New())
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}

func TestHashAndVerifyAPIKey(t *testing.T) {
	encoded, err := HashAPIKey("pp_live_d41d8cd98f")
	require.NoError(t, err)

	ok, err := VerifyAPIKey("pp_live_d41d8cd98f", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyAPIKey("pp_live_wrong", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashAPIKeySaltsDiffer(t *testing.T) {
	a, err := HashAPIKey("same-key")
	require.NoError(t, err)
	b, err := HashAPIKey("same-key")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyAPIKeyBadFormat(t *testing.T) {
	_, err := VerifyAPIKey("anything", "no-separator")
	assert.Error(t, err)
}
