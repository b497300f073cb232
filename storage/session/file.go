package sessionstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/schooladmin/core/session"
)

type fileStore struct {
	path  string
	mutex sync.Mutex
}

var _ session.Store = (*fileStore)(nil)

// NewFileStore keeps the session as JSON in path, readable by the owner only.
func NewFileStore(path string) session.Store {
	return &fileStore{path: path}
}

func (st *fileStore) Load() (session.Session, error) {
	st.mutex.Lock()
	defer st.mutex.Unlock()

	var sess session.Session
	data, err := os.ReadFile(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			return sess, nil
		}
		return sess, errors.Wrapf(err, "reading %s", st.path)
	}
	if len(data) == 0 {
		return sess, nil
	}
	if err := json.Unmarshal(data, &sess); err != nil {
		return session.Session{}, errors.Wrapf(err, "decoding %s", st.path)
	}
	return sess, nil
}

func (st *fileStore) Save(sess session.Session) error {
	st.mutex.Lock()
	defer st.mutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(st.path), 0o700); err != nil {
		return errors.Wrap(err, "creating session dir")
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}

	// write then rename so a crash never leaves half a token behind
	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrapf(err, "writing %s", tmp)
	}
	return errors.Wrap(os.Rename(tmp, st.path), "replacing session file")
}

func (st *fileStore) Clear() error {
	st.mutex.Lock()
	defer st.mutex.Unlock()

	if err := os.Remove(st.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing %s", st.path)
	}
	return nil
}
