package db

import (
	"context"
	"database/sql"
	stderrors "errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/errors"
)

var uploadColumns = []string{"id", "owner_id", "title", "content", "filename", "created_at"}

// InsertUpload stores a new upload.
func InsertUpload(ctx context.Context, db *sql.DB, u *analysis.Upload) error {
	_, err := exec(ctx, db, sq.Insert("uploads").
		Columns(uploadColumns...).
		Values(u.ID, u.OwnerID, u.Title, u.Content, toNullString(u.Filename), u.CreatedAt))
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetUpload retrieves an upload by id.
func GetUpload(ctx context.Context, db *sql.DB, id string) (*analysis.Upload, error) {
	row, err := queryRow(ctx, db, sq.Select(uploadColumns...).From("uploads").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	u, err := scanUpload(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("upload", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return u, nil
}

// ListUploads returns an owner's uploads, newest first, plus the total count.
func ListUploads(ctx context.Context, db *sql.DB, ownerID string, limit, offset int) ([]analysis.Upload, int, error) {
	where := sq.Eq{"owner_id": ownerID}

	total, err := count(ctx, db, sq.Select("COUNT(*)").From("uploads").Where(where))
	if err != nil {
		return nil, 0, err
	}

	rows, err := query(ctx, db, sq.Select(uploadColumns...).From("uploads").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []analysis.Upload{}
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		items = append(items, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return items, total, nil
}

// DeleteUpload removes an upload. Its analyses go with it (ON DELETE CASCADE);
// shared snapshots do not.
func DeleteUpload(ctx context.Context, db *sql.DB, id string) error {
	res, err := exec(ctx, db, sq.Delete("uploads").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NewNotFound("upload", id)
	}
	return nil
}

func scanUpload(row rowScanner) (*analysis.Upload, error) {
	var (
		u        analysis.Upload
		filename sql.NullString
	)
	if err := row.Scan(&u.ID, &u.OwnerID, &u.Title, &u.Content, &filename, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Filename = fromNullString(filename)
	return &u, nil
}
