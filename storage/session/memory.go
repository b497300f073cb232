package sessionstore

import (
	"sync"

	"github.com/trezcool/schooladmin/core/session"
)

type memoryStore struct {
	sess  session.Session
	mutex sync.RWMutex

	Saves  int
	Clears int
}

var _ session.Store = (*memoryStore)(nil)

// NewMemoryStore returns a Store that forgets everything when the process exits.
func NewMemoryStore(initial ...session.Session) *memoryStore {
	st := &memoryStore{}
	if len(initial) > 0 {
		st.sess = initial[0]
	}
	return st
}

func (st *memoryStore) Load() (session.Session, error) {
	st.mutex.RLock()
	defer st.mutex.RUnlock()
	return st.sess, nil
}

func (st *memoryStore) Save(sess session.Session) error {
	st.mutex.Lock()
	defer st.mutex.Unlock()
	st.sess = sess
	st.Saves++
	return nil
}

func (st *memoryStore) Clear() error {
	st.mutex.Lock()
	defer st.mutex.Unlock()
	st.sess = session.Session{}
	st.Clears++
	return nil
}
