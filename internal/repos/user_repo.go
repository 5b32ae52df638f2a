package repos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kiz-commit/porchrecords-sub005/internal/domain"
)

type UserRepo struct{ db *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) ByEmail(email string) (*domain.User, error) {
	var u domain.User
	err := r.db.Get(&u, `
		SELECT id, email, name, password_hash, role
		FROM users WHERE LOWER(email) = LOWER(?)
	`, email)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) BindSession(sid, userID string) error {
	_, err := r.db.Exec(`
		INSERT INTO sessions(id, user_id, last_seen) VALUES(?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, last_seen = excluded.last_seen
	`, sid, userID, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (r *UserRepo) UnbindSession(sid string) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, sid)
	return err
}

// SessionUser resolves a session cookie to its user, or (nil, nil) for an
// unknown/anonymous session.
func (r *UserRepo) SessionUser(sid string) (*domain.User, error) {
	var u domain.User
	err := r.db.Get(&u, `
		SELECT u.id, u.email, u.name, u.password_hash, u.role
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.id = ?
	`, sid)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_, _ = r.db.Exec(`UPDATE sessions SET last_seen = ? WHERE id = ?`, time.Now().UTC().Format(time.RFC3339), sid)
	return &u, nil
}
