package repos

import (
	"time"

	"dreamhome/internal/domain"

	"github.com/jmoiron/sqlx"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

// UserRow carries the password hash, which never leaves the backend.
type UserRow struct {
	domain.User
	Hash string `db:"password_hash"`
}

func (r *UserRepo) ByEmail(email string) (*UserRow, error) {
	var u UserRow
	err := r.DB.Get(&u, `SELECT id,email,username,avatar,password_hash FROM users WHERE LOWER(email)=LOWER(?)`, email)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(id string) (*UserRow, error) {
	var u UserRow
	err := r.DB.Get(&u, `SELECT id,email,username,avatar,password_hash FROM users WHERE id=?`, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(u UserRow) error {
	_, err := r.DB.Exec(`INSERT INTO users(id,email,username,avatar,password_hash) VALUES(?,?,?,?,?)`,
		u.ID, u.Email, u.Username, u.Avatar, u.Hash)
	return err
}

// Update writes profile fields; an empty hash keeps the current password.
func (r *UserRepo) Update(u UserRow) error {
	_, err := r.DB.Exec(`
		UPDATE users SET
		  username=?, email=?, avatar=?,
		  password_hash=CASE WHEN ?='' THEN password_hash ELSE ? END,
		  updated_at=?
		WHERE id=?`,
		u.Username, u.Email, u.Avatar, u.Hash, u.Hash, time.Now().UTC().Format(time.RFC3339), u.ID)
	return err
}

// DeleteUserCascade removes the user; their listings cascade.
func (r *UserRepo) DeleteUserCascade(userID string) error {
	tx, err := r.DB.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM listings WHERE user_ref=?`, userID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM users WHERE id=?`, userID); err != nil {
		return err
	}
	return tx.Commit()
}
