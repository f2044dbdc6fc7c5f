// Package session owns the identity state seeded at login and cleared at
// logout. It is write-once per session; the file on disk is the only
// persistence.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskdeck/internal/capability"
	"taskdeck/internal/domain"
)

var ErrNoSession = errors.New("not logged in")

// Session holds everything the client keeps between commands: tokens,
// identity, and the permission list fetched once at login.
type Session struct {
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token"`
	UserID       int64               `json:"user_id"`
	UserName     string              `json:"user_name"`
	Role         string              `json:"role"`
	Verified     bool                `json:"is_verified"`
	Permissions  []domain.Permission `json:"permissions"`
}

// Resolver builds the capability resolver for this session.
func (s *Session) Resolver() capability.Resolver {
	return capability.NewResolver(s.Role, s.Permissions)
}

// TokenExpiry reads the access token's exp claim without verifying the
// signature; the client has no secret and only needs the timestamp.
func (s *Session) TokenExpiry() (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("token has no expiry")
	}
	return exp.Time, nil
}

// Store reads and writes the session file under the workspace dot-dir.
type Store struct {
	Workspace string
}

func (st Store) path() string {
	ws := st.Workspace
	if ws == "" {
		ws = "."
	}
	return filepath.Join(ws, ".taskdeck", "session.json")
}

// Save persists the session, creating the dot-dir if missing.
func (st Store) Save(s Session) error {
	if err := os.MkdirAll(filepath.Dir(st.path()), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(st.path(), data, 0o600)
}

// Load returns the stored session or ErrNoSession.
func (st Store) Load() (*Session, error) {
	data, err := os.ReadFile(st.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("corrupt session file: %w", err)
	}
	return &s, nil
}

// Clear removes the session file. Clearing an absent session is not an error.
func (st Store) Clear() error {
	err := os.Remove(st.path())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
