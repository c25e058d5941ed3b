package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"expense-tracker-api/internal/model"
	"expense-tracker-api/internal/pkg/jwtutil"
	"expense-tracker-api/internal/repository"
)

var (
	ErrWeakPassword      = errors.New("password does not meet strength rules")
	ErrInvalidEmail      = errors.New("invalid email format")
	ErrUserExists        = errors.New("username or email already exists")
	ErrInvalidCredential = errors.New("invalid credentials")
)

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmailOrUsername(ctx context.Context, identifier string) (*model.User, error)
}

type AuthService struct {
	users         UserStore
	jwtSecret     string
	jwtExpiration time.Duration
	hashCost      int
}

type RegisterInput struct {
	Name     string
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	EmailOrUsername string
	Password        string
}

func NewAuthService(users UserStore, jwtSecret string, jwtExpiration time.Duration) *AuthService {
	return &AuthService{
		users:         users,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		hashCost:      bcrypt.DefaultCost,
	}
}

// Register validates credentials, hashes the password once and stores the user.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	if !ValidatePassword(input.Password) {
		return nil, ErrWeakPassword
	}
	if !ValidateEmail(input.Email) {
		return nil, ErrInvalidEmail
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, requiredField("name")
	}
	if strings.TrimSpace(input.Username) == "" {
		return nil, requiredField("username")
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         input.Name,
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return user, nil
}

// Login returns a signed token. Unknown identifiers and wrong passwords both yield ErrInvalidCredential.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (string, error) {
	if input.EmailOrUsername == "" || input.Password == "" {
		return "", ErrInvalidCredential
	}

	user, err := s.users.GetByEmailOrUsername(ctx, input.EmailOrUsername)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidCredential
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return "", ErrInvalidCredential
	}

	return jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, user.ID)
}

// hashPassword is the only path from a plaintext password to a stored value.
func (s *AuthService) hashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password failed: %w", err)
	}
	return string(hash), nil
}
