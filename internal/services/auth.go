package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/eguard/eguard-backend/internal/apperr"
	"github.com/eguard/eguard-backend/internal/models"
	"github.com/eguard/eguard-backend/pkg/slogx"
	"github.com/eguard/eguard-backend/pkg/utils"
)

const invalidCredentials = "Invalid credentials"

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginResult struct {
	Token string
	User  models.UserSummary
}

// AuthService handles registration and password login.
type AuthService struct {
	users  UserStore
	tokens *TokenService
}

func NewAuthService(users UserStore, tokens *TokenService) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (models.UserSummary, error) {
	name := strings.TrimSpace(in.Name)
	email := utils.NormalizeEmail(in.Email)

	if name == "" || email == "" || in.Password == "" {
		return models.UserSummary{}, apperr.BadRequest("Please provide name, email, and password")
	}
	if !models.ValidEmail(email) {
		return models.UserSummary{}, apperr.BadRequest("Please provide a valid email address")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return models.UserSummary{}, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{Name: name, Email: email, Password: hash}
	if err := s.users.Create(ctx, u); err != nil {
		return models.UserSummary{}, fmt.Errorf("register: %w", err)
	}

	slogx.FromContext(ctx).Info("user registered", "user_id", u.ID.Hex(), "email", utils.MaskEmail(email))
	return u.Summary(), nil
}

// Login verifies the credentials and issues a token. Unknown emails and wrong
// passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, apperr.BadRequest("Please provide email and password")
	}

	logger := slogx.FromContext(ctx)

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			logger.Info("login failed", "reason", "unknown email", "email", utils.MaskEmail(email))
			return LoginResult{}, apperr.Unauthenticated(invalidCredentials)
		}
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}

	ok, err := utils.VerifyPassword(password, u.Password)
	if err != nil {
		logger.Warn("stored password hash unreadable", "user_id", u.ID.Hex(), slog.Any("error", err))
	}
	if !ok {
		logger.Info("login failed", "reason", "wrong password", "user_id", u.ID.Hex())
		return LoginResult{}, apperr.Unauthenticated(invalidCredentials)
	}

	token, err := s.tokens.Issue(u.ID.Hex())
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{Token: token, User: u.Summary()}, nil
}
