package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/db"
	"github.com/hpungsan/lexis/internal/errors"
)

// ConnectionInput identifies a directed edge UserID -> OtherID.
type ConnectionInput struct {
	UserID  string
	OtherID string
}

func (in ConnectionInput) clean() (string, string, error) {
	userID, err := requireID("user_id", in.UserID)
	if err != nil {
		return "", "", err
	}
	otherID, err := requireID("other_id", in.OtherID)
	if err != nil {
		return "", "", err
	}
	return userID, otherID, nil
}

// AddConnection creates the directed edge. Both users must exist; a self edge
// is VALIDATION; an existing edge is CONFLICT. The reverse edge is not implied.
func AddConnection(ctx context.Context, database *sql.DB, input ConnectionInput) (*analysis.Connection, error) {
	userID, otherID, err := input.clean()
	if err != nil {
		return nil, err
	}
	if userID == otherID {
		return nil, errors.NewValidation("cannot connect a user to themselves")
	}

	c := &analysis.Connection{UserID: userID, ConnectedUserID: otherID, CreatedAt: nowMillis()}
	err = db.RunInTx(ctx, database, func(ctx context.Context) error {
		if _, err := db.GetUser(ctx, database, userID); err != nil {
			return err
		}
		if _, err := db.GetUser(ctx, database, otherID); err != nil {
			return err
		}
		return db.InsertConnection(ctx, database, c)
	})
	if err != nil {
		return nil, errors.Wrap(err)
	}
	return c, nil
}

// RemoveConnectionOutput contains the result of the RemoveConnection operation.
type RemoveConnectionOutput struct {
	UserID  string `json:"user_id"`
	OtherID string `json:"other_id"`
	Removed bool   `json:"removed"`
}

// RemoveConnection deletes the directed edge; NOT_FOUND if absent.
func RemoveConnection(ctx context.Context, database *sql.DB, input ConnectionInput) (*RemoveConnectionOutput, error) {
	userID, otherID, err := input.clean()
	if err != nil {
		return nil, err
	}
	if err := db.DeleteConnection(ctx, database, userID, otherID); err != nil {
		return nil, err
	}
	return &RemoveConnectionOutput{UserID: userID, OtherID: otherID, Removed: true}, nil
}

// ListRecipients returns users the caller can pick as share recipients:
// those reachable by an outgoing edge, excluding the caller, by username.
func ListRecipients(ctx context.Context, database *sql.DB, userID string) ([]analysis.User, error) {
	return SearchRecipients(ctx, database, userID, "")
}

// SearchRecipients is ListRecipients filtered by a case-insensitive
// substring of the username. Wildcards in fragment match literally.
func SearchRecipients(ctx context.Context, database *sql.DB, userID, fragment string) ([]analysis.User, error) {
	userID, err := requireID("user_id", userID)
	if err != nil {
		return nil, err
	}
	if _, err := db.GetUser(ctx, database, userID); err != nil {
		return nil, err
	}
	return db.ListConnectedUsers(ctx, database, userID, strings.TrimSpace(fragment))
}
