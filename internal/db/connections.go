package db

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/errors"
)

// InsertConnection stores a directed edge. An existing edge is CONFLICT.
func InsertConnection(ctx context.Context, db *sql.DB, c *analysis.Connection) error {
	_, err := exec(ctx, db, sq.Insert("user_connections").
		Columns("user_id", "connected_user_id", "created_at").
		Values(c.UserID, c.ConnectedUserID, c.CreatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewConflict("connection already exists")
		}
		return errors.NewInternal(err)
	}
	return nil
}

// DeleteConnection removes a directed edge. A missing edge is NOT_FOUND.
func DeleteConnection(ctx context.Context, db *sql.DB, userID, connectedUserID string) error {
	res, err := exec(ctx, db, sq.Delete("user_connections").
		Where(sq.Eq{"user_id": userID, "connected_user_id": connectedUserID}))
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NewNotFound("connection", userID+"->"+connectedUserID)
	}
	return nil
}

// HasConnection reports whether the directed edge userID -> connectedUserID exists.
func HasConnection(ctx context.Context, db *sql.DB, userID, connectedUserID string) (bool, error) {
	n, err := count(ctx, db, sq.Select("COUNT(*)").From("user_connections").
		Where(sq.Eq{"user_id": userID, "connected_user_id": connectedUserID}))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListConnectedUsers returns users reachable by an outgoing edge from userID,
// excluding userID, ordered by username. A non-empty fragment filters by
// case-insensitive substring match on username. Case folding
// happens in Go; SQLite LIKE folds ASCII only.
func ListConnectedUsers(ctx context.Context, db *sql.DB, userID, fragment string) ([]analysis.User, error) {
	b := sq.Select("u.id", "u.username", "u.created_at").
		From("user_connections c").
		Join("users u ON u.id = c.connected_user_id").
		Where(sq.Eq{"c.user_id": userID}).
		Where(sq.NotEq{"u.id": userID}).
		OrderBy("u.username COLLATE NOCASE", "u.id")
	needle := strings.ToLower(fragment)

	rows, err := query(ctx, db, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []analysis.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if needle != "" && !strings.Contains(strings.ToLower(u.Username), needle) {
			continue
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return users, nil
}
