// Package repo is the SQL storage layer for the development server.
package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"taskdeck/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// HashPassword returns a stable SHA-256 hex digest. The dev server is a
// fixture, not a production credential store.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(password)))
	return hex.EncodeToString(sum[:])
}

// User is the stored account row.
type User struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         string
	Verified     bool
	CreatedAt    string
}

func (u User) Name() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u User) Ref() domain.UserRef {
	return domain.UserRef{ID: u.ID, Name: u.Name()}
}

// CreateUser inserts an account and returns its server-assigned id.
func (r Repo) CreateUser(ctx context.Context, u User) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users(email, first_name, last_name, password_hash, role, is_verified, created_at) VALUES (?,?,?,?,?,?,?)`,
		u.Email, u.FirstName, u.LastName, u.PasswordHash, u.Role, boolInt(u.Verified), now())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	var verified int
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.Role, &verified, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	u.Verified = verified != 0
	return u, err
}

const userColumns = `id, email, first_name, last_name, password_hash, role, is_verified, created_at`

func (r Repo) GetUser(ctx context.Context, id int64) (User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, email))
}

// ListUsers returns {id, name} pairs for assignee selectors.
func (r Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, first_name, last_name, role FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []domain.User
	for rows.Next() {
		var id int64
		var first, last, role string
		if err := rows.Scan(&id, &first, &last, &role); err != nil {
			return nil, err
		}
		users = append(users, domain.User{ID: id, Name: strings.TrimSpace(first + " " + last), Role: role})
	}
	return users, rows.Err()
}

// MarkVerified flips the verification flag after a successful OTP check.
func (r Repo) MarkVerified(ctx context.Context, userID int64) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET is_verified=1 WHERE id=?`, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPassword replaces the stored hash, used by the reset flow.
func (r Repo) SetPassword(ctx context.Context, userID int64, hash string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET password_hash=? WHERE id=?`, hash, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GrantPermission records a capability grant; granting twice is a no-op.
func (r Repo) GrantPermission(ctx context.Context, userID int64, permission string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT OR IGNORE INTO user_permissions(user_id, permission) VALUES (?,?)`, userID, permission)
	return err
}

// UserPermissions returns the grants consumed once per login by the client.
func (r Repo) UserPermissions(ctx context.Context, userID int64) ([]domain.Permission, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT rowid, permission FROM user_permissions WHERE user_id=? ORDER BY rowid`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []domain.Permission
	for rows.Next() {
		var p domain.Permission
		if err := rows.Scan(&p.ID, &p.PermissionName); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
