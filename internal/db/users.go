package db

import (
	"context"
	"database/sql"
	stderrors "errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/errors"
)

var userColumns = []string{"id", "username", "created_at"}

// InsertUser stores a new user. A taken username (case-insensitive) is CONFLICT.
func InsertUser(ctx context.Context, db *sql.DB, u *analysis.User) error {
	_, err := exec(ctx, db, sq.Insert("users").
		Columns(userColumns...).
		Values(u.ID, u.Username, u.CreatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewConflict("username already taken: " + u.Username)
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetUser retrieves a user by id.
func GetUser(ctx context.Context, db *sql.DB, id string) (*analysis.User, error) {
	return getUserWhere(ctx, db, sq.Eq{"id": id}, id)
}

// GetUserByUsername retrieves a user by username (case-insensitive).
func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*analysis.User, error) {
	return getUserWhere(ctx, db, sq.Eq{"username": username}, username)
}

func getUserWhere(ctx context.Context, db *sql.DB, where sq.Eq, ident string) (*analysis.User, error) {
	row, err := queryRow(ctx, db, sq.Select(userColumns...).From("users").Where(where))
	if err != nil {
		return nil, err
	}
	u, err := scanUser(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("user", ident)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return u, nil
}

// MissingUsers returns the subset of ids with no user row, in input order.
func MissingUsers(ctx context.Context, db *sql.DB, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := query(ctx, db, sq.Select("id").From("users").Where(sq.Eq{"id": ids}))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewInternal(err)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func scanUser(row rowScanner) (*analysis.User, error) {
	var u analysis.User
	if err := row.Scan(&u.ID, &u.Username, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
