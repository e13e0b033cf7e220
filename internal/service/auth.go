// Package service: authentication business logic.
//
// AuthService sits between the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository, TokenRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// TOKENS ARE SIGNED AND RECORDED:
// A JWT alone cannot be revoked before it expires. Every issued token's id
// (the "jti" claim) is stored in auth_tokens; Authenticate requires both a
// valid signature and a live row, and Logout deletes the row.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/auth"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

// compile-time check that *AuthService can back the auth middleware
var _ auth.Authenticator = (*AuthService)(nil)

// LoginInput is the body of POST /api/auth/token/login/.
type LoginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

var errBadCredentials = apperror.ValidationFailed("credentials", "unable to log in with provided credentials")

type AuthService struct {
	users     repository.UserRepository
	tokens    repository.TokenRepository
	issuer    *auth.TokenService
	passwords *auth.PasswordService
	validator *Validator
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	issuer *auth.TokenService,
	passwords *auth.PasswordService,
	validator *Validator,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		issuer:    issuer,
		passwords: passwords,
		validator: validator,
		logger:    logger,
	}
}

// Login checks email and password and returns a new token. Unknown email and
// wrong password produce the same error so accounts cannot be enumerated.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (string, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return "", err
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, apperror.ErrNotFound) {
		return "", errBadCredentials
	}
	if err != nil {
		return "", fmt.Errorf("service/auth: looking up %s: %w", in.Email, err)
	}

	// Accounts created through GitHub have no password.
	if user.PasswordHash == "" {
		return "", errBadCredentials
	}
	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("failed login", slog.Int64("user_id", user.ID))
			return "", errBadCredentials
		}
		return "", fmt.Errorf("service/auth: verifying password: %w", err)
	}

	return s.issue(ctx, user.ID)
}

// Logout revokes the token with the given id.
func (s *AuthService) Logout(ctx context.Context, tokenID string) error {
	if err := s.tokens.DeleteToken(ctx, tokenID); err != nil {
		return fmt.Errorf("service/auth: revoking token: %w", err)
	}
	return nil
}

// Authenticate implements auth.Authenticator: the token must verify and its
// id must still be recorded.
func (s *AuthService) Authenticate(ctx context.Context, rawToken string) (auth.Identity, error) {
	claims, err := s.issuer.Validate(rawToken)
	if err != nil {
		return auth.Identity{}, apperror.Unauthorized("invalid token")
	}

	active, err := s.tokens.TokenActive(ctx, claims.TokenID)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("service/auth: checking token: %w", err)
	}
	if !active {
		return auth.Identity{}, apperror.Unauthorized("token has been revoked")
	}

	return auth.Identity{UserID: claims.UserID, TokenID: claims.TokenID}, nil
}

// LoginGitHub finds or creates the account for a GitHub identity and returns
// a token for it. Lookup order: linked github_id, then a matching email
// (which links the identity), else a new account.
func (s *AuthService) LoginGitHub(ctx context.Context, gh *auth.GitHubUser) (string, error) {
	if gh == nil || gh.ID == 0 {
		return "", fmt.Errorf("service/auth: GitHub user must not be empty")
	}

	user, err := s.users.GetUserByGitHubID(ctx, gh.ID)
	switch {
	case err == nil:
	case !errors.Is(err, apperror.ErrNotFound):
		return "", fmt.Errorf("service/auth: looking up github user %d: %w", gh.ID, err)
	case gh.Email == "":
		return "", apperror.ValidationFailed("email", "your GitHub account has no verified email address")
	default:
		user, err = s.users.GetUserByEmail(ctx, gh.Email)
		switch {
		case err == nil:
			if err := s.users.LinkGitHub(ctx, user.ID, gh.ID); err != nil {
				return "", err
			}
			s.logger.Info("github account linked",
				slog.Int64("user_id", user.ID),
				slog.Int64("github_id", gh.ID),
			)
		case errors.Is(err, apperror.ErrNotFound):
			user, err = s.createGitHubUser(ctx, gh)
			if err != nil {
				return "", err
			}
		default:
			return "", fmt.Errorf("service/auth: looking up %s: %w", gh.Email, err)
		}
	}

	s.logger.Info("user authenticated via GitHub",
		slog.Int64("user_id", user.ID),
		slog.String("login", gh.Login),
	)
	return s.issue(ctx, user.ID)
}

var usernameUnsafe = regexp.MustCompile(`[^\w.@+-]`)

func (s *AuthService) createGitHubUser(ctx context.Context, gh *auth.GitHubUser) (*model.User, error) {
	base := usernameUnsafe.ReplaceAllString(gh.Login, "")
	if base == "" || reservedUsernames[strings.ToLower(base)] {
		base = "github" + strconv.FormatInt(gh.ID, 10)
	}
	if len(base) > 140 {
		base = base[:140]
	}

	username := base
	for i := 2; ; i++ {
		taken, err := s.users.UsernameTaken(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("service/auth: checking username: %w", err)
		}
		if !taken {
			break
		}
		username = base + strconv.Itoa(i)
	}

	first, last, _ := strings.Cut(strings.TrimSpace(gh.Name), " ")
	githubID := gh.ID
	user := &model.User{
		Email:     gh.Email,
		Username:  username,
		FirstName: first,
		LastName:  strings.TrimSpace(last),
		GitHubID:  &githubID,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user for github %d: %w", gh.ID, err)
	}

	s.logger.Info("user registered via GitHub",
		slog.Int64("id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

func (s *AuthService) issue(ctx context.Context, userID int64) (string, error) {
	issued, err := s.issuer.Issue(userID)
	if err != nil {
		return "", fmt.Errorf("service/auth: issuing token: %w", err)
	}

	record := &model.AuthToken{
		ID:        issued.ID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: issued.ExpiresAt,
	}
	if err := s.tokens.CreateToken(ctx, record); err != nil {
		return "", fmt.Errorf("service/auth: recording token: %w", err)
	}
	return issued.Token, nil
}
