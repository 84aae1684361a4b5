package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"sensor-cloud/internal/auth"
	users "sensor-cloud/internal/users/domain"
)

// ErrValidation wraps signup validation failures.
var ErrValidation = errors.New("validation failed")

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, user *users.User) error
	GetByEmail(ctx context.Context, email string) (*users.User, error)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Service handles signup and login.
type Service struct {
	store    UserStore
	secret   []byte
	tokenTTL time.Duration
	clock    Clock
}

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithTokenTTL overrides the default token lifetime.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// NewService constructs a user service.
func NewService(store UserStore, jwtSecret []byte, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("users: nil store")
	}
	if len(jwtSecret) == 0 {
		return nil, errors.New("users: empty jwt secret")
	}
	service := &Service{
		store:    store,
		secret:   jwtSecret,
		tokenTTL: 24 * time.Hour,
		clock:    systemClock{},
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Signup registers an account with a bcrypt-hashed password.
func (s *Service) Signup(ctx context.Context, email, password string) (*users.User, error) {
	if s == nil {
		return nil, errors.New("users: nil service")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if err := checkPassword(password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &users.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         string(auth.RoleViewer),
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *users.User, error) {
	if s == nil {
		return "", nil, errors.New("users: nil service")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, users.ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, users.ErrBadCredentials
	}
	role, ok := auth.NormalizeRole(user.Role)
	if !ok {
		role = auth.RoleViewer
	}
	token, err := auth.IssueJWT(user.Email, role, s.secret, s.tokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func checkPassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return fmt.Errorf("%w: password must contain upper, lower and digit characters", ErrValidation)
	}
	return nil
}
