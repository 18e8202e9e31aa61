package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/bolingo/bolingo-backend/internal/crypto"
	"github.com/bolingo/bolingo-backend/internal/model"
	"github.com/bolingo/bolingo-backend/internal/repository"
)

var (
	ErrValidation         = errors.New("email and password required")
	ErrConflict           = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("incorrect credentials")
	ErrPasswordTooLong    = errors.New("password too long")
	ErrInternal           = errors.New("internal error")
)

// UserRepository is the credential store consumed by AuthService.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// TokenIssuer creates session tokens for authenticated users.
type TokenIssuer interface {
	Issue(sub crypto.Subject) (string, error)
}

// AuthService handles signup and login.
type AuthService struct {
	repo     UserRepository
	hasher   crypto.PasswordHasher
	tokens   TokenIssuer
	validate *validator.Validate

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo UserRepository, hasher crypto.PasswordHasher, tokens TokenIssuer) *AuthService {
	return &AuthService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Signup creates a new user account and returns an auth token.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) (model.AuthResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return model.AuthResponse{}, ErrValidation
	}

	_, err := s.repo.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return model.AuthResponse{}, ErrConflict
	case !errors.Is(err, repository.ErrUserNotFound):
		return model.AuthResponse{}, internal("looking up user", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, crypto.ErrPasswordTooLong) {
			return model.AuthResponse{}, ErrPasswordTooLong
		}
		return model.AuthResponse{}, internal("hashing password", err)
	}

	user := &model.User{
		Email:        req.Email,
		Name:         req.Name,
		Phone:        req.Phone,
		Country:      req.Country,
		Plan:         model.DefaultPlan,
		PasswordHash: hash,
	}

	// The lookup above does not reserve the email; a concurrent signup can
	// still win the insert.
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.AuthResponse{}, ErrConflict
		}
		return model.AuthResponse{}, internal("creating user", err)
	}

	return s.issue(user)
}

// Login authenticates a user and returns an auth token. An unknown email and
// a wrong password both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Unknown emails pay for a verification too.
			s.hasher.Verify(req.Password, s.dummy())
			return model.AuthResponse{}, ErrInvalidCredentials
		}
		return model.AuthResponse{}, internal("looking up user", err)
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return model.AuthResponse{}, ErrInvalidCredentials
	}

	return s.issue(user)
}

// Me returns the public profile of the user a verified token was issued to.
func (s *AuthService) Me(ctx context.Context, userID string) (model.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.UserResponse{}, ErrInvalidCredentials
		}
		return model.UserResponse{}, internal("looking up user", err)
	}

	return user.Response(), nil
}

func (s *AuthService) issue(user *model.User) (model.AuthResponse, error) {
	token, err := s.tokens.Issue(crypto.Subject{ID: user.ID, Email: user.Email})
	if err != nil {
		return model.AuthResponse{}, internal("issuing token", err)
	}
	return model.AuthResponse{OK: true, Token: token}, nil
}

// dummy returns a hash of a fixed password made with the configured hasher,
// computed on first use.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("bolingo-dummy-password")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func internal(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}
