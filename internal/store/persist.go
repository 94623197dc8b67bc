package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"dreamhome/internal/domain"
)

const (
	RootKey        = "persist:root"
	PersistVersion = 1
)

// Persister stores one versioned blob per key for a single browser session.
type Persister interface {
	Load(key string) (version int, payload []byte, err error)
	Save(key string, version int, payload []byte) error
	Delete(key string) error
}

type persisted struct {
	User *domain.User `json:"user"`
}

// Rehydrate restores the user slice. A missing row or a payload written
// under another version leaves the store signed out.
func Rehydrate(s *Store, p Persister) error {
	version, payload, err := p.Load(RootKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", RootKey, err)
	}
	if version != PersistVersion {
		return p.Delete(RootKey)
	}
	var st persisted
	if err := json.Unmarshal(payload, &st); err != nil {
		return fmt.Errorf("decode %s: %w", RootKey, err)
	}
	if st.User != nil {
		s.Dispatch(SigninSuccess{User: *st.User})
	}
	return nil
}

// Persist writes the user slice whenever it changes. The edit session is
// never written. Errors go to onErr; the store keeps working in memory.
func Persist(s *Store, p Persister, onErr func(error)) (unsubscribe func()) {
	last := s.CurrentUser()
	return s.Subscribe(func(st State) {
		if sameUser(last, st.User.Current) {
			return
		}
		last = st.User.Current
		var err error
		if st.User.Current == nil {
			err = p.Delete(RootKey)
		} else {
			var b []byte
			b, err = json.Marshal(persisted{User: st.User.Current})
			if err == nil {
				err = p.Save(RootKey, PersistVersion, b)
			}
		}
		if err != nil && onErr != nil {
			onErr(err)
		}
	})
}

func sameUser(a, b *domain.User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
