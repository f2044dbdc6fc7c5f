package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// SaveOTP stores a one-time code for an email. Earlier codes for the same
// address are superseded.
func (r Repo) SaveOTP(ctx context.Context, email, code string, ttl time.Duration) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM otps WHERE email=?`, email); err != nil {
		return err
	}
	expires := time.Now().UTC().Add(ttl).Format(time.RFC3339)
	_, err := r.DB.ExecContext(ctx, `INSERT INTO otps(id, email, code, expires_at, created_at) VALUES (?,?,?,?,?)`,
		uuid.NewString(), email, code, expires, now())
	return err
}

// ConsumeOTP checks and burns a code. An expired or unknown code returns
// ErrNotFound.
func (r Repo) ConsumeOTP(ctx context.Context, email, code string) error {
	row := r.DB.QueryRowContext(ctx, `SELECT id, expires_at FROM otps WHERE email=? AND code=?`, email, code)
	var id, expires string
	if err := row.Scan(&id, &expires); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM otps WHERE id=?`, id); err != nil {
		return err
	}
	exp, err := time.Parse(time.RFC3339, expires)
	if err != nil || time.Now().UTC().After(exp) {
		return ErrNotFound
	}
	return nil
}

// SaveResetToken issues a password-reset token and returns its uid/token pair.
func (r Repo) SaveResetToken(ctx context.Context, userID int64, ttl time.Duration) (uid, token string, err error) {
	uid = uuid.NewString()
	token = uuid.NewString()
	expires := time.Now().UTC().Add(ttl).Format(time.RFC3339)
	_, err = r.DB.ExecContext(ctx, `INSERT INTO reset_tokens(id, user_id, token, expires_at, created_at) VALUES (?,?,?,?,?)`,
		uid, userID, token, expires, now())
	return uid, token, err
}

// ConsumeResetToken validates and burns a reset token, returning the user id.
func (r Repo) ConsumeResetToken(ctx context.Context, uid, token string) (int64, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT user_id, expires_at FROM reset_tokens WHERE id=? AND token=?`, uid, token)
	var userID int64
	var expires string
	if err := row.Scan(&userID, &expires); err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM reset_tokens WHERE id=?`, uid); err != nil {
		return 0, err
	}
	exp, err := time.Parse(time.RFC3339, expires)
	if err != nil || time.Now().UTC().After(exp) {
		return 0, ErrNotFound
	}
	return userID, nil
}
