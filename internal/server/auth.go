package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskdeck/internal/domain"
	"taskdeck/internal/repo"
)

const (
	accessTokenTTL  = time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
	otpTTL          = 10 * time.Minute
	resetTokenTTL   = 30 * time.Minute
)

// Principal is the authenticated identity attached to each request.
type Principal struct {
	UserID int64
	Name   string
	Role   string
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

type jwtClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

func (s *Server) issueToken(u repo.User, ttl time.Duration) (string, error) {
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Name: u.Name(),
		Role: u.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
}

func (s *Server) authenticate(token string) (Principal, error) {
	if strings.TrimSpace(s.secret) == "" {
		return Principal{}, errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwtClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.secret), nil
	})
	if err != nil {
		return Principal{}, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return Principal{}, errors.New("invalid token")
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Principal{}, fmt.Errorf("invalid subject: %w", err)
	}
	return Principal{UserID: id, Name: claims.Name, Role: claims.Role}, nil
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(strings.TrimSpace(r.Header.Get("Authorization")))
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		principal, err := s.authenticate(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
	})
}

// signInPayload matches the shape the web client stores at login.
type signInPayload struct {
	Tokens struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	} `json:"tokens"`
	User       domain.UserRef `json:"user"`
	UserRole   string         `json:"user_role"`
	IsVerified bool           `json:"is_verified"`
}

func (s *Server) signInResult(u repo.User) (signInPayload, error) {
	var p signInPayload
	access, err := s.issueToken(u, accessTokenTTL)
	if err != nil {
		return p, err
	}
	refresh, err := s.issueToken(u, refreshTokenTTL)
	if err != nil {
		return p, err
	}
	p.Tokens.Access = access
	p.Tokens.Refresh = refresh
	p.User = u.Ref()
	p.UserRole = u.Role
	p.IsVerified = u.Verified
	return p, nil
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Password  string `json:"password"`
		Role      string `json:"role"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" || req.FirstName == "" {
		writeFailure(w, "email, first_name and password are required")
		return
	}
	if req.Role == "" {
		req.Role = domain.RoleUser
	}
	userID, err := s.repo.CreateUser(r.Context(), repo.User{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: repo.HashPassword(req.Password),
		Role:         req.Role,
	})
	if err != nil {
		writeFailure(w, "user already exists or invalid data")
		return
	}
	for _, perm := range defaultPermissions(req.Role) {
		if err := s.repo.GrantPermission(r.Context(), userID, perm); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to seed permissions")
			return
		}
	}
	if err := s.sendOTP(r.Context(), req.Email); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to send otp")
		return
	}
	writeMessage(w, "signup successful, otp sent")
}

// defaultPermissions seeds role grants at signup.
func defaultPermissions(role string) []string {
	if role == domain.RoleAdmin {
		return []string{domain.PermManageTasks, domain.PermViewTasks}
	}
	return []string{domain.PermViewTasks}
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := s.repo.GetUserByEmail(r.Context(), req.Email)
	if err != nil || u.PasswordHash != repo.HashPassword(req.Password) {
		writeFailure(w, "invalid credentials")
		return
	}
	payload, err := s.signInResult(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}
	writeData(w, payload)
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.repo.ConsumeOTP(r.Context(), req.Email, req.OTP); err != nil {
		writeFailure(w, "invalid or expired otp")
		return
	}
	u, err := s.repo.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeFailure(w, "unknown user")
		return
	}
	if err := s.repo.MarkVerified(r.Context(), u.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to verify user")
		return
	}
	u.Verified = true
	payload, err := s.signInResult(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}
	writeData(w, payload)
}

func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := s.repo.GetUserByEmail(r.Context(), req.Email); err != nil {
		writeFailure(w, "unknown user")
		return
	}
	if err := s.sendOTP(r.Context(), req.Email); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to send otp")
		return
	}
	writeMessage(w, "otp sent")
}

// sendOTP generates and "delivers" a code. The dev server has no mailer; the
// code lands in the server log.
func (s *Server) sendOTP(ctx context.Context, email string) error {
	code := fmt.Sprintf("%06d", rand.Intn(1000000))
	if err := s.repo.SaveOTP(ctx, email, code, otpTTL); err != nil {
		return err
	}
	s.logger.Printf("otp for %s: %s", email, code)
	return nil
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := s.repo.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeFailure(w, "unknown user")
		return
	}
	uid, token, err := s.repo.SaveResetToken(r.Context(), u.ID, resetTokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create reset token")
		return
	}
	s.logger.Printf("reset link for %s: uid=%s token=%s", req.Email, uid, token)
	writeMessage(w, "reset link sent")
}

func (s *Server) handleConfirmResetPassword(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("uid")
	token := r.URL.Query().Get("token")
	var req struct {
		NewPassword string `json:"new_password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if uid == "" || token == "" || req.NewPassword == "" {
		writeFailure(w, "uid, token and new_password are required")
		return
	}
	userID, err := s.repo.ConsumeResetToken(r.Context(), uid, token)
	if err != nil {
		writeFailure(w, "invalid or expired reset token")
		return
	}
	if err := s.repo.SetPassword(r.Context(), userID, repo.HashPassword(req.NewPassword)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to set password")
		return
	}
	writeMessage(w, "password reset successful")
}
