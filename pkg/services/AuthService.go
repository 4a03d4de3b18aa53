package services

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/adampresley/photovault/pkg/models"
	"github.com/adampresley/photovault/pkg/ratelimit"
	"golang.org/x/crypto/bcrypt"
)

const DefaultSessionTTL = 30 * 24 * time.Hour

type AuthServicer interface {
	Login(password, role, identifier string) (*models.SessionUser, error)
	Verify(user *models.SessionUser) error
	VerifyAdmin(user *models.SessionUser) error
}

type AuthServiceConfig struct {
	AdminPassword  string
	ViewerPassword string
	RateLimiter    ratelimit.Store
	SessionTTL     time.Duration
}

/*
AuthService validates passwords against the configured secrets and tracks
failed attempts per identifier. Configured passwords may be bcrypt hashes
or, for migration only, plain text.
*/
type AuthService struct {
	adminPassword  string
	viewerPassword string
	rateLimiter    ratelimit.Store
	sessionTTL     time.Duration
}

func NewAuthService(config AuthServiceConfig) AuthService {
	if config.SessionTTL <= 0 {
		config.SessionTTL = DefaultSessionTTL
	}

	return AuthService{
		adminPassword:  config.AdminPassword,
		viewerPassword: config.ViewerPassword,
		rateLimiter:    config.RateLimiter,
		sessionTTL:     config.SessionTTL,
	}
}

func isBcryptHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}

func (s AuthService) passwordMatches(supplied, expected string) bool {
	if isBcryptHash(expected) {
		return bcrypt.CompareHashAndPassword([]byte(expected), []byte(supplied)) == nil
	}

	slog.Warn("plain text password comparison in use. configure a bcrypt hash instead")
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(expected)) == 1
}

/*
Login authenticates a password for the given role. When the identifier has
accumulated too many failures inside the window the attempt is rejected
before the password is ever looked at, which keeps brute forcing slow even
with a correct guess in hand.
*/
func (s AuthService) Login(password, role, identifier string) (*models.SessionUser, error) {
	key := "login:" + identifier

	count, resetAt, err := s.rateLimiter.Peek(key)

	if err != nil {
		slog.Error("error reading login attempt counter. allowing attempt", "identifier", identifier, "error", err)
	}

	if count >= ratelimit.LoginMaxAttempts {
		return nil, &models.RateLimitError{
			Limit:   ratelimit.LoginMaxAttempts,
			ResetAt: resetAt,
		}
	}

	var expected string

	switch role {
	case models.RoleAdmin:
		expected = s.adminPassword
	case models.RoleViewer:
		expected = s.viewerPassword
	default:
		return nil, fmt.Errorf("unknown role '%s'", role)
	}

	if expected == "" {
		return nil, models.ErrPasswordNotConfigured
	}

	if !s.passwordMatches(password, expected) {
		if _, _, err = s.rateLimiter.Increment(key, ratelimit.LoginWindow); err != nil {
			slog.Error("error recording failed login attempt", "identifier", identifier, "error", err)
		}

		return nil, models.ErrWrongPassword
	}

	if err = s.rateLimiter.Clear(key); err != nil {
		slog.Error("error clearing login attempt counter", "identifier", identifier, "error", err)
	}

	return &models.SessionUser{
		UserID:     role,
		Role:       role,
		CreatedAt:  time.Now(),
		IsLoggedIn: true,
	}, nil
}

/*
Verify re-checks a session server-side. Routing-layer checks can be
bypassed, so every handler on a protected resource calls this itself.
*/
func (s AuthService) Verify(user *models.SessionUser) error {
	if user == nil || !user.IsLoggedIn {
		return models.ErrUnauthorized
	}

	if time.Since(user.CreatedAt) > s.sessionTTL {
		return models.ErrUnauthorized
	}

	return nil
}

func (s AuthService) VerifyAdmin(user *models.SessionUser) error {
	if err := s.Verify(user); err != nil {
		return err
	}

	if user.Role != models.RoleAdmin {
		return models.ErrForbidden
	}

	return nil
}
