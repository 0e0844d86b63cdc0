package db

import (
	"context"
	"database/sql"
	stderrors "errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/errors"
)

var analysisColumns = []string{
	"id", "owner_id", "upload_id", "title", "content", "address",
	"sentiment", "ngrams", "named_entities", "word_frequencies",
	"created_at",
}

// newestFirst orders rows canonical-first: latest created_at, ULID tie-break.
var newestFirst = []string{"created_at DESC", "id DESC"}

// InsertAnalysis stores a new analysis row.
// Returns ErrAddressTaken if the address collides with an existing row.
func InsertAnalysis(ctx context.Context, db *sql.DB, r *analysis.Result) error {
	values := append([]any{
		r.ID, r.OwnerID, toNullString(r.UploadID), r.Title, r.Content, r.Address,
	}, append(payloadValues(r.Payloads), r.CreatedAt)...)

	_, err := exec(ctx, db, sq.Insert("analyses").Columns(analysisColumns...).Values(values...))
	if err != nil {
		if isUniqueOn(err, "analyses.address") {
			return ErrAddressTaken
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetAnalysis retrieves an analysis by id.
func GetAnalysis(ctx context.Context, db *sql.DB, id string) (*analysis.Result, error) {
	return getAnalysisWhere(ctx, db, sq.Eq{"id": id}, id)
}

// GetAnalysisByAddress retrieves an analysis by its public address.
func GetAnalysisByAddress(ctx context.Context, db *sql.DB, address string) (*analysis.Result, error) {
	return getAnalysisWhere(ctx, db, sq.Eq{"address": address}, address)
}

// LatestAnalysisFor returns the canonical (newest) row for (uploadID, ownerID).
func LatestAnalysisFor(ctx context.Context, db *sql.DB, uploadID, ownerID string) (*analysis.Result, error) {
	row, err := queryRow(ctx, db, sq.Select(analysisColumns...).From("analyses").
		Where(sq.Eq{"upload_id": uploadID, "owner_id": ownerID}).
		OrderBy(newestFirst...).
		Limit(1))
	if err != nil {
		return nil, err
	}
	r, err := scanAnalysis(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("analysis", uploadID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

func getAnalysisWhere(ctx context.Context, db *sql.DB, where sq.Eq, ident string) (*analysis.Result, error) {
	row, err := queryRow(ctx, db, sq.Select(analysisColumns...).From("analyses").Where(where))
	if err != nil {
		return nil, err
	}
	r, err := scanAnalysis(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("analysis", ident)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// UpdateAnalysis overwrites title, content, payloads and created_at of an
// existing row. Address, owner and upload are never changed.
func UpdateAnalysis(ctx context.Context, db *sql.DB, r *analysis.Result) error {
	b := sq.Update("analyses").
		Set("title", r.Title).
		Set("content", r.Content).
		Set("created_at", r.CreatedAt).
		Where(sq.Eq{"id": r.ID})
	for i, v := range payloadValues(r.Payloads) {
		b = b.Set(payloadColumns[i], v)
	}

	res, err := exec(ctx, db, b)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NewNotFound("analysis", r.ID)
	}
	return nil
}

// ListAnalyses returns an owner's analyses, newest first, plus the total count.
func ListAnalyses(ctx context.Context, db *sql.DB, ownerID string, limit, offset int) ([]analysis.Result, int, error) {
	where := sq.Eq{"owner_id": ownerID}

	total, err := count(ctx, db, sq.Select("COUNT(*)").From("analyses").Where(where))
	if err != nil {
		return nil, 0, err
	}

	items, err := listAnalyses(ctx, db, sq.Select(analysisColumns...).From("analyses").
		Where(where).
		OrderBy(newestFirst...).
		Limit(uint64(limit)).
		Offset(uint64(offset)))
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// TitleRow is the projection the title normalization pass works on.
type TitleRow struct {
	ID    string
	Title string
}

// ListTitles returns every analysis id with its stored title.
func ListTitles(ctx context.Context, db *sql.DB) ([]TitleRow, error) {
	rows, err := query(ctx, db, sq.Select("id", "title").From("analyses").OrderBy("id"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TitleRow
	for rows.Next() {
		var t TitleRow
		if err := rows.Scan(&t.ID, &t.Title); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// UpdateTitle sets the title of one analysis if it differs from title.
// Returns whether a row changed.
func UpdateTitle(ctx context.Context, db *sql.DB, id, title string) (bool, error) {
	res, err := exec(ctx, db, sq.Update("analyses").
		Set("title", title).
		Where(sq.Eq{"id": id}).
		Where(sq.NotEq{"title": title}))
	if err != nil {
		return false, errors.NewInternal(err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListOrphanIDs returns ids of analyses with no upload back-reference.
func ListOrphanIDs(ctx context.Context, db *sql.DB) ([]string, error) {
	return listIDs(ctx, db, sq.Select("id").From("analyses").
		Where(sq.Eq{"upload_id": nil}).
		OrderBy("id"))
}

// Group identifies the rows sharing one (upload, owner) pair.
type Group struct {
	UploadID string
	OwnerID  string
}

// ListDuplicateGroups returns every (upload, owner) pair with more than one row.
func ListDuplicateGroups(ctx context.Context, db *sql.DB) ([]Group, error) {
	rows, err := query(ctx, db, sq.Select("upload_id", "owner_id").From("analyses").
		Where(sq.NotEq{"upload_id": nil}).
		GroupBy("upload_id", "owner_id").
		Having("COUNT(*) > 1").
		OrderBy("upload_id", "owner_id"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.UploadID, &g.OwnerID); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// GroupMember is one row of a duplicate group.
type GroupMember struct {
	ID        string
	CreatedAt int64
}

// ListGroupMembers returns the rows of a group, newest first.
func ListGroupMembers(ctx context.Context, db *sql.DB, g Group) ([]GroupMember, error) {
	rows, err := query(ctx, db, sq.Select("id", "created_at").From("analyses").
		Where(sq.Eq{"upload_id": g.UploadID, "owner_id": g.OwnerID}).
		OrderBy(newestFirst...))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GroupMember
	for rows.Next() {
		var m GroupMember
		if err := rows.Scan(&m.ID, &m.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// TouchAnalysis sets created_at on one row.
func TouchAnalysis(ctx context.Context, db *sql.DB, id string, at int64) error {
	res, err := exec(ctx, db, sq.Update("analyses").Set("created_at", at).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NewNotFound("analysis", id)
	}
	return nil
}

// DeleteAnalysis removes one analysis row. Dependent snapshots are left to
// the caller (see DeleteSharesForAnalysis). Returns whether a row was removed.
func DeleteAnalysis(ctx context.Context, db *sql.DB, id string) (bool, error) {
	res, err := exec(ctx, db, sq.Delete("analyses").Where(sq.Eq{"id": id}))
	if err != nil {
		return false, errors.NewInternal(err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func listAnalyses(ctx context.Context, db *sql.DB, b sq.SelectBuilder) ([]analysis.Result, error) {
	rows, err := query(ctx, db, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []analysis.Result{}
	for rows.Next() {
		r, err := scanAnalysis(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		items = append(items, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return items, nil
}

func listIDs(ctx context.Context, db *sql.DB, b sq.SelectBuilder) ([]string, error) {
	rows, err := query(ctx, db, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewInternal(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return ids, nil
}

func scanAnalysis(row rowScanner) (*analysis.Result, error) {
	var (
		r        analysis.Result
		uploadID sql.NullString
		p        nullPayloads
	)
	dest := append([]any{&r.ID, &r.OwnerID, &uploadID, &r.Title, &r.Content, &r.Address},
		append(p.targets(), &r.CreatedAt)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	r.UploadID = fromNullString(uploadID)
	r.Payloads = p.payloads()
	return &r, nil
}
