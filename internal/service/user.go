package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/auth"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
	"github.com/sakif/foodgram/internal/storage"
)

// RegisterInput is the body of POST /api/users/.
type RegisterInput struct {
	Email     string `json:"email"      validate:"required,email,max=254"`
	Username  string `json:"username"   validate:"required,max=150,username"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name"  validate:"required,max=150"`
	Password  string `json:"password"   validate:"required,min=8,max=72"`
}

// SetPasswordInput is the body of POST /api/users/set_password/.
type SetPasswordInput struct {
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=72"`
	CurrentPassword string `json:"current_password" validate:"required"`
}

// UserService covers registration, profiles, avatars and subscriptions.
type UserService struct {
	users     repository.UserRepository
	subs      repository.SubscriptionRepository
	recipes   repository.RecipeRepository
	passwords *auth.PasswordService
	images    storage.ImageStore
	validator *Validator
	logger    *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	subs repository.SubscriptionRepository,
	recipes repository.RecipeRepository,
	passwords *auth.PasswordService,
	images storage.ImageStore,
	validator *Validator,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		subs:      subs,
		recipes:   recipes,
		passwords: passwords,
		images:    images,
		validator: validator,
		logger:    logger,
	}
}

// Register creates an account with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		Email:        in.Email,
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.Int64("id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Get returns user id as seen by viewerID (0 for anonymous).
func (s *UserService) Get(ctx context.Context, viewerID, id int64) (*model.Profile, error) {
	return s.users.GetProfile(ctx, viewerID, id)
}

func (s *UserService) List(ctx context.Context, viewerID int64, limit, offset int) ([]model.Profile, int, error) {
	profiles, total, err := s.users.ListProfiles(ctx, viewerID, listOptions(limit, offset))
	if err != nil {
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}
	return profiles, total, nil
}

// SetPassword replaces the password after checking the current one.
func (s *UserService) SetPassword(ctx context.Context, userID int64, in SetPasswordInput) error {
	if err := s.validator.Struct(in); err != nil {
		return err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.passwords.Verify(user.PasswordHash, in.CurrentPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) || user.PasswordHash == "" {
			return apperror.ValidationFailed("current_password", "current password is incorrect")
		}
		return fmt.Errorf("verifying password: %w", err)
	}

	hash, err := s.passwords.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	s.logger.Info("password changed", slog.Int64("user_id", userID))
	return nil
}

// SetAvatar stores a new avatar from a data URI and returns its storage key.
// The previous avatar, if any, is removed.
func (s *UserService) SetAvatar(ctx context.Context, userID int64, dataURI string) (string, error) {
	if strings.TrimSpace(dataURI) == "" {
		return "", apperror.ValidationFailed("avatar", "avatar is required")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}

	img, err := storage.DecodeDataURI(dataURI)
	if err != nil {
		if errors.Is(err, storage.ErrImageTooLarge) {
			return "", apperror.ValidationFailed("avatar",
				fmt.Sprintf("avatar must be at most %d MiB", storage.MaxImageSize>>20))
		}
		return "", apperror.ValidationFailed("avatar",
			"avatar must be a base64 data URI of a png, jpeg, gif or webp picture")
	}

	key := storage.NewKey(storage.AvatarPrefix, img.Ext)
	if err := s.images.Save(ctx, key, img.Data, img.ContentType); err != nil {
		return "", fmt.Errorf("saving avatar: %w", err)
	}
	if err := s.users.UpdateAvatar(ctx, userID, key); err != nil {
		deleteImage(ctx, s.images, s.logger, key)
		return "", err
	}
	deleteImage(ctx, s.images, s.logger, user.Avatar)

	return key, nil
}

func (s *UserService) DeleteAvatar(ctx context.Context, userID int64) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.UpdateAvatar(ctx, userID, ""); err != nil {
		return err
	}
	deleteImage(ctx, s.images, s.logger, user.Avatar)
	return nil
}

// Subscribe makes userID follow authorID and returns the author with up to
// recipesLimit of their newest recipes (all of them when recipesLimit <= 0).
func (s *UserService) Subscribe(ctx context.Context, userID, authorID int64, recipesLimit int) (*model.AuthorWithRecipes, error) {
	if userID == authorID {
		return nil, apperror.ValidationFailed("author", "you cannot subscribe to yourself")
	}
	if _, err := s.users.GetUserByID(ctx, authorID); err != nil {
		return nil, err
	}

	if err := s.subs.Subscribe(ctx, userID, authorID); err != nil {
		return nil, err
	}

	s.logger.Info("subscribed",
		slog.Int64("user_id", userID),
		slog.Int64("author_id", authorID),
	)

	author, err := s.subs.GetAuthorWithCount(ctx, userID, authorID)
	if err != nil {
		return nil, err
	}
	author.Recipes, err = s.recipes.ListAuthorRecipes(ctx, authorID, recipesLimit)
	if err != nil {
		return nil, fmt.Errorf("listing recipes of author %d: %w", authorID, err)
	}
	return author, nil
}

func (s *UserService) Unsubscribe(ctx context.Context, userID, authorID int64) error {
	if _, err := s.users.GetUserByID(ctx, authorID); err != nil {
		return err
	}
	return s.subs.Unsubscribe(ctx, userID, authorID)
}

// Subscriptions pages through the authors userID follows, newest first,
// each with a preview of up to recipesLimit recipes.
func (s *UserService) Subscriptions(ctx context.Context, userID int64, limit, offset, recipesLimit int) ([]model.AuthorWithRecipes, int, error) {
	authors, total, err := s.subs.ListSubscriptions(ctx, userID, listOptions(limit, offset))
	if err != nil {
		return nil, 0, fmt.Errorf("listing subscriptions: %w", err)
	}

	for i := range authors {
		authors[i].Recipes, err = s.recipes.ListAuthorRecipes(ctx, authors[i].ID, recipesLimit)
		if err != nil {
			return nil, 0, fmt.Errorf("listing recipes of author %d: %w", authors[i].ID, err)
		}
	}
	return authors, total, nil
}
