package ops

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/db"
	"github.com/hpungsan/lexis/internal/errors"
)

// MaxUsernameLength bounds usernames in runes.
const MaxUsernameLength = 64

var usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}_.-]+$`)

// CreateUserInput contains parameters for the CreateUser operation.
type CreateUserInput struct {
	Username string
}

// CreateUser registers a user. Usernames are unique case-insensitively.
func CreateUser(ctx context.Context, database *sql.DB, input CreateUserInput) (*analysis.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, errors.NewValidation("username is required")
	}
	if len([]rune(username)) > MaxUsernameLength {
		return nil, errors.NewValidation("username must be at most 64 characters")
	}
	if !usernameRegex.MatchString(username) {
		return nil, errors.NewValidation("username may only contain letters, digits, '_', '.' and '-'")
	}

	u := &analysis.User{
		ID:        newID(),
		Username:  username,
		CreatedAt: nowMillis(),
	}
	if err := db.InsertUser(ctx, database, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser retrieves a user by id.
func GetUser(ctx context.Context, database *sql.DB, id string) (*analysis.User, error) {
	id, err := requireID("user_id", id)
	if err != nil {
		return nil, err
	}
	return db.GetUser(ctx, database, id)
}

// ResolveUser finds a user by id, falling back to username.
func ResolveUser(ctx context.Context, database *sql.DB, ref string) (*analysis.User, error) {
	ref, err := requireID("user", ref)
	if err != nil {
		return nil, err
	}
	u, err := db.GetUser(ctx, database, ref)
	if err == nil || !errors.Is(err, errors.ErrNotFound) {
		return u, err
	}
	u, err = db.GetUserByUsername(ctx, database, ref)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, errors.NewNotFound("user", ref)
	}
	return u, err
}
