package sessionstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schooladmin/core/session"
)

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	st := NewFileStore(path)

	// missing file loads an empty session
	sess, err := st.Load()
	require.NoError(t, err)
	assert.False(t, sess.Authenticated())

	want := session.Session{AccessToken: "tok", SchoolID: "school-1", UserID: "u1", Email: "a@b.jp"}
	require.NoError(t, st.Save(want))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	got, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, st.Clear())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// clearing twice is fine
	assert.NoError(t, st.Clear())
}

func TestFileStore_corrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{lol"), 0o600))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	st := NewMemoryStore(session.Session{AccessToken: "tok"})
	sess, _ := st.Load()
	assert.Equal(t, "tok", sess.AccessToken)

	_ = st.Save(session.Session{AccessToken: "new", SchoolID: "s"})
	_ = st.Clear()
	sess, _ = st.Load()
	assert.Equal(t, session.Session{}, sess)
	assert.Equal(t, 1, st.Saves)
	assert.Equal(t, 1, st.Clears)
}
