package repos

import (
	"encoding/json"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// :memory: databases are per connection
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Ensure demo users exist (idempotent; safe to run every start)
	if err := seedUsers(db); err != nil {
		return nil, err
	}
	if err := seedListingsIfEmpty(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Users (mock remote auth API)
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  avatar TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

-- Listings (mock remote listing API)
CREATE TABLE IF NOT EXISTS listings(
  id TEXT PRIMARY KEY,
  user_ref TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  description TEXT NOT NULL,
  address TEXT NOT NULL,
  regular_price NUMERIC NOT NULL CHECK (regular_price >= 0),
  discount_price NUMERIC NULL CHECK (discount_price IS NULL OR discount_price >= 0),
  bedroom INTEGER NOT NULL CHECK (bedroom >= 1),
  bathroom INTEGER NOT NULL CHECK (bathroom >= 1),
  furnished INTEGER NOT NULL DEFAULT 0,
  parking INTEGER NOT NULL DEFAULT 0,
  offer INTEGER NOT NULL DEFAULT 0,
  type TEXT NOT NULL CHECK (type IN ('rent','sale')),
  images_json TEXT NOT NULL DEFAULT '[]',
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_listings_user_ref   ON listings(user_ref);
CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings(created_at);

-- Per-browser persisted client state (frontend)
CREATE TABLE IF NOT EXISTS persisted_state(
  sid TEXT NOT NULL,
  key TEXT NOT NULL,
  version INTEGER NOT NULL,
  payload TEXT NOT NULL,
  updated_at TEXT,
  PRIMARY KEY (sid, key)
);
`
	_, err := db.Exec(schema)
	return err
}

// seedUsers ensures the demo accounts exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Hash string
	}
	mk := func(id, email, name, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.MinCost)
		return u{ID: id, Email: email, Name: name, Hash: string(h)}
	}

	users := []u{
		mk("u-alice", "alice@dreamhome.test", "alice", "Passw0rd!"),
		mk("u-bob", "bob@dreamhome.test", "bob", "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,username,password_hash)
			VALUES(?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func seedListingsIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM listings`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo listings")

	imgs := func(urls ...string) string {
		b, _ := json.Marshal(urls)
		return string(b)
	}
	base := time.Now().UTC().Add(-72 * time.Hour)
	at := func(h int) string { return base.Add(time.Duration(h) * time.Hour).Format(time.RFC3339Nano) }

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO listings(id,user_ref,name,description,address,regular_price,discount_price,
	  bedroom,bathroom,furnished,parking,offer,type,images_json,created_at,updated_at) VALUES
	  (?,'u-alice','Harbor View Loft','Bright loft over the marina','12 Quay St',2400,2100,2,1,1,0,1,'rent',?,?,?),
	  (?,'u-alice','Maple Family House','Four bedrooms and a big yard','88 Maple Ave',450000,NULL,4,2,0,1,0,'sale',?,?,?),
	  (?,'u-bob','Downtown Studio','Compact studio near the station','5 Central Sq',1200,NULL,1,1,1,0,0,'rent',?,?,?)`,
		primitive.NewObjectID().Hex(), imgs("/media/seed/loft.svg"), at(0), at(0),
		primitive.NewObjectID().Hex(), imgs("/media/seed/maple.svg"), at(1), at(1),
		primitive.NewObjectID().Hex(), imgs(), at(2), at(2))
	return tx.Commit()
}
