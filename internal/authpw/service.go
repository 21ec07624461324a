// Package authpw provides email/password authentication over the user store.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"qolintake/api/internal/docstore"
	"qolintake/api/internal/model"
	"qolintake/api/internal/users"
)

var (
	ErrMissingFields      = errors.New("email, password, and name are required")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type Service struct {
	users *users.Store

	// Serializes the email-uniqueness check and identifier allocation; both
	// read the store before writing, so interleaved signups could otherwise
	// mint duplicate identifiers or register the same email twice.
	mu sync.Mutex
}

func NewService(store *users.Store) *Service {
	return &Service{users: store}
}

// SignUpRequest contains sign-up parameters
type SignUpRequest struct {
	Email    string
	Password string
	Name     string
}

// SignUp creates a new patient account with a fresh patient identifier.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (model.User, error) {
	email := strings.TrimSpace(req.Email)
	name := strings.TrimSpace(req.Name)
	if email == "" || req.Password == "" || name == "" {
		return model.User{}, ErrMissingFields
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return model.User{}, ErrEmailTaken
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return model.User{}, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	userID, patientID, err := s.users.NextIdentifiers(ctx)
	if err != nil {
		return model.User{}, fmt.Errorf("allocate identifiers: %w", err)
	}

	user := model.User{
		UserID:       userID,
		PatientID:    patientID,
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         model.RolePatient,
		IsReport:     false,
	}
	if err := s.users.Save(ctx, user); err != nil {
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// SignIn authenticates a user by email and password.
func (s *Service) SignIn(ctx context.Context, email, password string) (model.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return model.User{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return model.User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// HashPassword is used when doctors create accounts directly.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
