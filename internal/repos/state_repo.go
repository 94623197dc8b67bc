package repos

import (
	"time"

	"github.com/jmoiron/sqlx"
)

// StateRepo persists client state blobs per browser session id.
type StateRepo struct{ db *sqlx.DB }

func NewStateRepo(db *sqlx.DB) *StateRepo { return &StateRepo{db: db} }

// For binds the repo to one sid; the result satisfies store.Persister.
func (r *StateRepo) For(sid string) *SessionState { return &SessionState{repo: r, sid: sid} }

type SessionState struct {
	repo *StateRepo
	sid  string
}

// Load returns sql.ErrNoRows when nothing is stored under key.
func (s *SessionState) Load(key string) (int, []byte, error) {
	var row struct {
		Version int    `db:"version"`
		Payload string `db:"payload"`
	}
	if err := s.repo.db.Get(&row, `SELECT version, payload FROM persisted_state WHERE sid=? AND key=?`, s.sid, key); err != nil {
		return 0, nil, err
	}
	return row.Version, []byte(row.Payload), nil
}

func (s *SessionState) Save(key string, version int, payload []byte) error {
	_, err := s.repo.db.Exec(`
	  INSERT INTO persisted_state(sid, key, version, payload, updated_at)
	  VALUES(?,?,?,?,?)
	  ON CONFLICT(sid, key) DO UPDATE SET version=excluded.version, payload=excluded.payload, updated_at=excluded.updated_at
	`, s.sid, key, version, string(payload), time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *SessionState) Delete(key string) error {
	_, err := s.repo.db.Exec(`DELETE FROM persisted_state WHERE sid=? AND key=?`, s.sid, key)
	return err
}
