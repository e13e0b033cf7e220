package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `u.id, u.email, u.username, u.first_name, u.last_name,
	u.password_hash, u.avatar, u.github_id, u.created_at`

// isSubscribedColumn computes Profile.IsSubscribed for the viewer bound to the
// first placeholder. The CHECK on subscriptions makes it false for self.
const isSubscribedColumn = `EXISTS (SELECT 1 FROM subscriptions s
	WHERE s.user_id = ? AND s.author_id = u.id) AS is_subscribed`

// CreateUser inserts a user and fills its ID and CreatedAt.
// A duplicate email or username is reported as a validation error on that field.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.CreatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (email, username, first_name, last_name, password_hash, avatar, github_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Email,
		user.Username,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.Avatar,
		user.GitHubID,
		user.CreatedAt,
	)
	if err != nil {
		if constraintViolation(err) == uniqueConstraint {
			switch {
			case strings.Contains(err.Error(), "users.email"):
				return apperror.ValidationFailed("email", "a user with this email already exists")
			case strings.Contains(err.Error(), "users.username"):
				return apperror.ValidationFailed("username", "a user with this username already exists")
			}
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: creating user %s: %w", user.Email, err)
	}

	user.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading user id: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users u WHERE u.id = ?`, id)
	if err != nil {
		return nil, notFound(err, "user", id, fmt.Sprintf("getting user %d", id))
	}
	return &u, nil
}

// GetUserByEmail looks a user up by login email, ignoring ASCII case.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users u WHERE u.email = ? COLLATE NOCASE`, email)
	if err != nil {
		return nil, notFound(err, "user", email, "getting user by email")
	}
	return &u, nil
}

func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users u WHERE u.github_id = ?`, githubID)
	if err != nil {
		return nil, notFound(err, "user", fmt.Sprintf("github:%d", githubID), "getting user by github id")
	}
	return &u, nil
}

func (db *DB) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var taken bool
	err := db.conn.GetContext(ctx, &taken,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)`, username)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking username %s: %w", username, err)
	}
	return taken, nil
}

// LinkGitHub attaches a GitHub identity to an existing account.
func (db *DB) LinkGitHub(ctx context.Context, userID, githubID int64) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET github_id = ? WHERE id = ?`, githubID, userID)
	if err != nil {
		if constraintViolation(err) == uniqueConstraint {
			return apperror.Conflict("github account", fmt.Sprint(githubID))
		}
		return fmt.Errorf("sqlite: linking github %d to user %d: %w", githubID, userID, err)
	}
	return expectOne(res, "user", userID)
}

func (db *DB) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, hash, userID)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for user %d: %w", userID, err)
	}
	return expectOne(res, "user", userID)
}

// UpdateAvatar stores the avatar key; an empty string clears it.
func (db *DB) UpdateAvatar(ctx context.Context, userID int64, avatar string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET avatar = ? WHERE id = ?`, avatar, userID)
	if err != nil {
		return fmt.Errorf("sqlite: updating avatar for user %d: %w", userID, err)
	}
	return expectOne(res, "user", userID)
}

// GetProfile returns user id as seen by viewerID (0 for anonymous).
func (db *DB) GetProfile(ctx context.Context, viewerID, id int64) (*model.Profile, error) {
	var p model.Profile
	err := db.conn.GetContext(ctx, &p,
		`SELECT `+userColumns+`, `+isSubscribedColumn+`
		 FROM users u WHERE u.id = ?`, viewerID, id)
	if err != nil {
		return nil, notFound(err, "user", id, fmt.Sprintf("getting profile %d", id))
	}
	return &p, nil
}

// ListProfiles returns one page of users ordered by username, plus the total count.
func (db *DB) ListProfiles(ctx context.Context, viewerID int64, opts repository.ListOptions) ([]model.Profile, int, error) {
	var total int
	if err := db.conn.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting users: %w", err)
	}

	profiles := make([]model.Profile, 0, opts.Limit)
	err := db.conn.SelectContext(ctx, &profiles,
		`SELECT `+userColumns+`, `+isSubscribedColumn+`
		 FROM users u
		 ORDER BY u.username
		 LIMIT ? OFFSET ?`, viewerID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing users: %w", err)
	}
	return profiles, total, nil
}
