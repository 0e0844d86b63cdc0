package db

import (
	"context"
	"database/sql"
	stderrors "errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/errors"
)

var shareColumns = []string{
	"id", "analysis_id", "sharer_id", "recipient_id", "permission", "message",
	"title", "content", "address",
	"sentiment", "ngrams", "named_entities", "word_frequencies",
	"created_at", "updated_at",
}

// upsertShareSuffix refreshes an existing (recipient, analysis) snapshot in
// place; id and created_at of the first share are kept.
const upsertShareSuffix = `ON CONFLICT(recipient_id, analysis_id) DO UPDATE SET
	sharer_id = excluded.sharer_id,
	permission = excluded.permission,
	message = excluded.message,
	title = excluded.title,
	content = excluded.content,
	address = excluded.address,
	sentiment = excluded.sentiment,
	ngrams = excluded.ngrams,
	named_entities = excluded.named_entities,
	word_frequencies = excluded.word_frequencies,
	updated_at = excluded.updated_at
RETURNING id, created_at`

// UpsertShare writes a snapshot keyed by (RecipientID, AnalysisID).
// On return s.ID and s.CreatedAt hold the persisted values.
func UpsertShare(ctx context.Context, db *sql.DB, s *analysis.Shared) error {
	values := []any{
		s.ID, s.AnalysisID, s.SharerID, s.RecipientID, string(s.Permission), toNullString(s.Message),
		s.Title, s.Content, s.Address,
	}
	values = append(values, payloadValues(s.Payloads)...)
	values = append(values, s.CreatedAt, s.UpdatedAt)

	row, err := queryRow(ctx, db, sq.Insert("shared_analyses").
		Columns(shareColumns...).
		Values(values...).
		Suffix(upsertShareSuffix))
	if err != nil {
		return err
	}
	if err := row.Scan(&s.ID, &s.CreatedAt); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetShare retrieves a snapshot by id.
func GetShare(ctx context.Context, db *sql.DB, id string) (*analysis.Shared, error) {
	return getShareWhere(ctx, db, sq.Eq{"id": id}, id)
}

// GetShareFor retrieves the recipient's snapshot of an analysis.
func GetShareFor(ctx context.Context, db *sql.DB, recipientID, analysisID string) (*analysis.Shared, error) {
	return getShareWhere(ctx, db, sq.Eq{"recipient_id": recipientID, "analysis_id": analysisID}, analysisID)
}

// GetShareByAddress retrieves the recipient's snapshot carrying address.
func GetShareByAddress(ctx context.Context, db *sql.DB, recipientID, address string) (*analysis.Shared, error) {
	return getShareWhere(ctx, db, sq.Eq{"recipient_id": recipientID, "address": address}, address)
}

func getShareWhere(ctx context.Context, db *sql.DB, where sq.Eq, ident string) (*analysis.Shared, error) {
	row, err := queryRow(ctx, db, sq.Select(shareColumns...).From("shared_analyses").
		Where(where).
		OrderBy("updated_at DESC").
		Limit(1))
	if err != nil {
		return nil, err
	}
	s, err := scanShare(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("shared analysis", ident)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

// ListSharesByRecipient returns snapshots received by a user, newest first,
// plus the total count.
func ListSharesByRecipient(ctx context.Context, db *sql.DB, recipientID string, limit, offset int) ([]analysis.Shared, int, error) {
	where := sq.Eq{"recipient_id": recipientID}

	total, err := count(ctx, db, sq.Select("COUNT(*)").From("shared_analyses").Where(where))
	if err != nil {
		return nil, 0, err
	}

	rows, err := query(ctx, db, sq.Select(shareColumns...).From("shared_analyses").
		Where(where).
		OrderBy("updated_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []analysis.Shared{}
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		items = append(items, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return items, total, nil
}

// DeleteSharesForAnalysis removes every snapshot cloned from analysisID.
func DeleteSharesForAnalysis(ctx context.Context, db *sql.DB, analysisID string) (int64, error) {
	res, err := exec(ctx, db, sq.Delete("shared_analyses").Where(sq.Eq{"analysis_id": analysisID}))
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return rowsAffected(res)
}

// CountSharesForAnalysis returns how many snapshots reference analysisID.
func CountSharesForAnalysis(ctx context.Context, db *sql.DB, analysisID string) (int, error) {
	return count(ctx, db, sq.Select("COUNT(*)").From("shared_analyses").Where(sq.Eq{"analysis_id": analysisID}))
}

func scanShare(row rowScanner) (*analysis.Shared, error) {
	var (
		s          analysis.Shared
		permission string
		message    sql.NullString
		p          nullPayloads
	)
	dest := []any{
		&s.ID, &s.AnalysisID, &s.SharerID, &s.RecipientID, &permission, &message,
		&s.Title, &s.Content, &s.Address,
	}
	dest = append(dest, p.targets()...)
	dest = append(dest, &s.CreatedAt, &s.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	s.Permission = analysis.Permission(permission)
	s.Message = fromNullString(message)
	s.Payloads = p.payloads()
	return &s, nil
}
