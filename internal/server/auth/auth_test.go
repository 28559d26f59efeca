// internal/server/auth/auth_test.go
package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/form3tech-oss/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndAuthenticate(t *testing.T) {
	a := NewJWT("s3cret", false)
	token, err := a.Issue("alice", time.Hour)
	require.NoError(t, err)

	id, err := a.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", id)
}

func TestRejectsBadTokens(t *testing.T) {
	a := NewJWT("s3cret", false)

	other, err := NewJWT("other", false).Issue("alice", time.Hour)
	require.NoError(t, err)
	_, err = a.Authenticate(other)
	assert.ErrorIs(t, err, ErrUnauthorized)

	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := a.Issue("alice", time.Hour)
	require.NoError(t, err)
	a.now = time.Now
	_, err = a.Authenticate(expired)
	assert.ErrorIs(t, err, ErrUnauthorized)

	none := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"userId": "alice"})
	signed, err := none.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = a.Authenticate(signed)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = a.Authenticate("")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = a.Authenticate("dev:alice")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestDevIdentity(t *testing.T) {
	a := NewJWT("", true)
	id, err := a.Authenticate("dev:bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", id)

	_, err = a.Authenticate("dev:")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=query-token", nil)
	assert.Equal(t, "query-token", TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", TokenFromRequest(r))
}

func TestSubjectReadsWithoutSecret(t *testing.T) {
	signed, err := NewJWT("server-only", false).Issue("carol", time.Hour)
	require.NoError(t, err)

	id, err := Subject(signed)
	require.NoError(t, err)
	assert.Equal(t, "carol", id)

	id, err = Subject("dev:dave")
	require.NoError(t, err)
	assert.Equal(t, "dave", id)

	_, err = Subject("not-a-jwt")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = Subject("dev:")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
