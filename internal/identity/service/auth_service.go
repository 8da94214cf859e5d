// Package service implements account registration for password login.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Badrul886/riverside/internal/audit"
	"github.com/Badrul886/riverside/internal/security"
	sessionservice "github.com/Badrul886/riverside/internal/session/service"
	userdomain "github.com/Badrul886/riverside/internal/user/domain"
	userrepo "github.com/Badrul886/riverside/internal/user/repository"
)

// Sentinel errors for registration; the HTTP layer maps them to 400 and 409.
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrEmailAlreadyRegistered = fmt.Errorf("email already registered: %w", sessionservice.ErrConflict)
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// RegisterInput is a new account request.
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	Role            string
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
}

// AuthService registers password accounts.
type AuthService struct {
	userRepo UserRepo
	hasher   *security.PasswordHasher
	audit    audit.AuditLogger
	now      func() time.Time
}

// NewAuthService returns an AuthService. auditLogger may be nil.
func NewAuthService(userRepo UserRepo, hasher *security.PasswordHasher, auditLogger audit.AuditLogger) *AuthService {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	return &AuthService{userRepo: userRepo, hasher: hasher, audit: auditLogger, now: time.Now}
}

// Register validates in, hashes the password and creates the user. Returns the new user id.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (string, error) {
	name := strings.TrimSpace(in.Name)
	email := userdomain.NormalizeEmail(in.Email)
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = userdomain.RoleUser
	}
	if err := validate(name, email, role, in.Password); err != nil {
		return "", err
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("register: lookup email: %w", err)
	}
	if existing != nil {
		return "", ErrEmailAlreadyRegistered
	}
	if in.Password != in.ConfirmPassword {
		return "", fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", fmt.Errorf("register: hash password: %w", err)
	}
	now := s.now().UTC()
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hashed,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, userrepo.ErrEmailTaken) {
			return "", ErrEmailAlreadyRegistered
		}
		return "", fmt.Errorf("register: create user: %w", err)
	}
	s.audit.LogEvent(ctx, user.ID, audit.ActionRegister, audit.ResourceUser, "role="+role)
	return user.ID, nil
}

func validate(name, email, role, password string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case email == "":
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	case !emailPattern.MatchString(email):
		return fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	case len(password) < security.MinPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, security.MinPasswordLength)
	case role != userdomain.RoleUser && role != userdomain.RoleAdmin:
		return fmt.Errorf("%w: role must be user or admin", ErrInvalidInput)
	}
	return nil
}
