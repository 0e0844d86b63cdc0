package ops

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/lexis/internal/errors"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// page applies limit defaults and bounds and clamps offset to >= 0.
func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return limit, max(offset, 0)
}

func newPagination(limit, offset, returned, total int) Pagination {
	return Pagination{
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+returned < total,
		Total:   total,
	}
}

// newID returns a ULID. ulid.Make draws from a process-wide monotonic source,
// so ids created in the same millisecond still sort in creation order.
func newID() string {
	return ulid.Make().String()
}

// nowMillis is the timestamp source for created_at / updated_at.
var nowMillis = func() int64 {
	return time.Now().UnixMilli()
}

// requireID trims an identifier and rejects empty input with VALIDATION.
func requireID(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.NewValidation(field + " is required")
	}
	return value, nil
}

// cleanIDs trims, drops duplicates and rejects empty entries.
func cleanIDs(field string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, errors.NewValidation(field + " must not be empty")
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, errors.NewValidation(field + " must not contain empty ids")
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

// cleanOptionalString trims whitespace and converts empty strings to nil.
func cleanOptionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
