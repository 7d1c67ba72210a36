package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"spendlog/internal/models"
	"spendlog/internal/storage"
)

// SessionDuration is how long sessions last (30 days).
const SessionDuration = 30 * 24 * time.Hour

// Sentinel errors returned by the auth service.
var (
	// ErrInvalidCredentials is returned for any login failure. It is
	// deliberately identical for unknown usernames and wrong passwords.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("auth: username taken")
	// ErrPasswordMismatch is returned when the confirmation does not match.
	ErrPasswordMismatch = errors.New("auth: passwords do not match")
	// ErrUnauthenticated is returned when a session does not resolve to a user.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
)

// ValidationError reports per-field registration input problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return "auth: invalid registration: " + strings.Join(parts, "; ")
}

// Service implements the identity lifecycle over the storage layer.
type Service struct {
	db *storage.DB
}

// NewService creates an auth service backed by db.
func NewService(db *storage.DB) *Service {
	return &Service{db: db}
}

// Register validates the input, hashes the password and creates the user.
func (s *Service) Register(username, password, confirm string) (*models.User, error) {
	username = strings.TrimSpace(username)

	if fields := ValidateRegistration(username, password, confirm); len(fields) > 0 {
		if _, ok := fields["confirm_password"]; ok && len(fields) == 1 {
			return nil, ErrPasswordMismatch
		}
		return nil, &ValidationError{Fields: fields}
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.db.CreateUser(username, hash, 0)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login verifies the credentials and establishes a new session, returning
// its opaque token.
func (s *Service) Login(username, password string) (string, error) {
	user, err := s.db.GetUserByUsername(strings.TrimSpace(username))
	if err != nil || !CheckPassword(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateSessionToken()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}

	if err := s.db.CreateSession(token, user.ID, time.Now().Add(SessionDuration)); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

// Logout invalidates the session identified by token.
func (s *Service) Logout(token string) error {
	return s.db.DeleteSession(token)
}

// CurrentUser resolves a session token to its owning user.
func (s *Service) CurrentUser(token string) (*models.User, error) {
	info, err := s.SessionInfo(token)
	if err != nil {
		return nil, err
	}
	return info.User, nil
}

// SessionInfo resolves a session token to the owning user plus expiry data.
func (s *Service) SessionInfo(token string) (*storage.SessionInfo, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	info, err := s.db.GetSession(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return info, nil
}

// Renew extends a session to expire at newExpiresAt.
func (s *Service) Renew(token string, newExpiresAt time.Time) error {
	return s.db.RenewSession(token, newExpiresAt)
}
