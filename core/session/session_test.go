package session_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schooladmin/core/session"
	"github.com/trezcool/schooladmin/storage/session"
)

func makeToken(t *testing.T, sub string, exp time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": exp.Unix(),
	})
	ss, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)
	return ss
}

func TestSession_claims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	sess := session.Session{AccessToken: makeToken(t, "user-1", exp)}

	assert.True(t, sess.Authenticated())
	assert.Equal(t, "user-1", sess.Subject())
	assert.True(t, exp.Equal(sess.ExpiresAt()))
	assert.False(t, sess.Expired(time.Now()))
	assert.True(t, sess.Expired(exp.Add(time.Second)))

	opaque := session.Session{AccessToken: "not-a-jwt"}
	assert.True(t, opaque.ExpiresAt().IsZero())
	assert.False(t, opaque.Expired(time.Now()))
	assert.Equal(t, "", opaque.Subject())
}

func TestManager(t *testing.T) {
	store := sessionstore.NewMemoryStore(session.Session{AccessToken: "stored", SchoolID: "s1"})
	mgr, err := session.NewManager(store)
	require.NoError(t, err)
	assert.Equal(t, "stored", mgr.Token())
	assert.Equal(t, "s1", mgr.SchoolID())

	require.NoError(t, mgr.SignIn(session.Session{AccessToken: "tok", SchoolID: "s2", UserID: "u"}))
	require.NoError(t, mgr.SelectSchool("s3"))
	assert.Equal(t, session.Session{AccessToken: "tok", SchoolID: "s3", UserID: "u"}, mgr.Current())

	stored, _ := store.Load()
	assert.Equal(t, "s3", stored.SchoolID)

	require.NoError(t, mgr.SignOut())
	assert.Equal(t, session.Session{}, mgr.Current())
	stored, _ = store.Load()
	assert.False(t, stored.Authenticated())
}
