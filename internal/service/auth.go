package service

// AuthService is the business logic layer for authentication:
//
//	AuthHandler (HTTP) → AuthService (rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// Two ways in: username/email + password, or GitHub OAuth. Both end with
// the same AuthResult so the handler sets the cookie the same way.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/Gur1a/CheckList/internal/apperror"
	"github.com/Gur1a/CheckList/internal/auth"
	"github.com/Gur1a/CheckList/internal/model"
	"github.com/Gur1a/CheckList/internal/repository"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 6
)

// usernamePattern matches GitHub's own login alphabet plus underscore.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// errBadCredentials is deliberately vague: it never says whether the
// login or the password was wrong.
var errBadCredentials = apperror.Unauthorized("invalid username/email or password")

type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
	now       func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		now:       time.Now,
	}
}

// AuthResult bundles the user and the issued JWT so the handler can set
// the cookie and respond in one step.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates a password account and logs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if err := checkLength("username", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return nil, err
	}
	if !usernamePattern.MatchString(username) {
		return nil, apperror.ValidationFailed("username",
			"username may only contain letters, digits, '_' and '-'")
	}
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}
	if len(in.Password) < MinPasswordLength || len(in.Password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be between %d and %d bytes", MinPasswordLength, auth.MaxPasswordBytes))
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		LastLoginAt:  &now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// Conflicts pass through untouched so the handler can answer 409.
		return nil, fmt.Errorf("service/auth: registering %q: %w", username, err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)
	return s.issue(user)
}

// Login accepts either the username or the email as login.
func (s *AuthService) Login(ctx context.Context, login, password string) (*AuthResult, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, apperror.ValidationFailed("login", "login and password are required")
	}

	user, err := s.users.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", login, err)
	}

	// GitHub-only accounts have no password to compare against.
	if user.PasswordHash == "" {
		return nil, errBadCredentials
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("failed login", slog.Int64("userID", user.ID))
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}
	if !user.IsActive {
		return nil, apperror.Forbidden("this account has been disabled")
	}

	s.touchLastLogin(ctx, user)
	return s.issue(user)
}

// LoginOrRegisterGitHub finishes the OAuth callback: the GitHub profile is
// upserted by its stable numeric id and a JWT is issued.
//
// GitHub hides the email of users who keep it private. The users table
// requires one, so those accounts get GitHub's noreply address.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	email := strings.ToLower(strings.TrimSpace(gh.Email))
	if email == "" {
		email = strings.ToLower(gh.Login) + "@users.noreply.github.com"
	}
	ghID := gh.ID
	user := &model.User{
		Username:  gh.Login,
		Email:     email,
		GitHubID:  &ghID,
		AvatarURL: gh.AvatarURL,
	}

	if err := s.users.UpsertGitHubUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", gh.ID, err)
	}
	if !user.IsActive {
		return nil, apperror.Forbidden("this account has been disabled")
	}

	s.logger.Info("user authenticated via GitHub",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)
	s.touchLastLogin(ctx, user)
	return s.issue(user)
}

// GetUserByID backs GET /api/auth/verify.
func (s *AuthService) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	if id <= 0 {
		return nil, apperror.Unauthorized("valid authentication required")
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", id, err)
	}
	if !user.IsActive {
		return nil, apperror.Forbidden("this account has been disabled")
	}
	return user, nil
}

// touchLastLogin is best effort: a failed timestamp update does not fail
// the login.
func (s *AuthService) touchLastLogin(ctx context.Context, user *model.User) {
	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record last login",
			slog.Int64("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	user.LastLoginAt = &now
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
