// Package analysis holds the domain types for uploaded texts, derived
// analysis artifacts, their shared snapshots, and the user connection graph.
package analysis

import "encoding/json"

// User is an account that owns uploads and analyses.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	CreatedAt int64  `json:"created_at"`
}

// Upload is a text submitted by a user. Content is immutable after creation.
type Upload struct {
	ID        string  `json:"id"`
	OwnerID   string  `json:"owner_id"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	Filename  *string `json:"filename,omitempty"`
	CreatedAt int64   `json:"created_at"`
}

// Payloads are the analyzer outputs. Each field is an opaque JSON document
// owned by the analyzer; storage never interprets it.
type Payloads struct {
	Sentiment       json.RawMessage `json:"sentiment,omitempty"`
	Ngrams          json.RawMessage `json:"ngrams,omitempty"`
	NamedEntities   json.RawMessage `json:"named_entities,omitempty"`
	WordFrequencies json.RawMessage `json:"word_frequencies,omitempty"`
}

// Result is the derived artifact for one (upload, owner) pair.
type Result struct {
	// ID is a ULID.
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`

	// UploadID is nil for orphans, which the reconciler removes.
	UploadID *string `json:"upload_id,omitempty"`

	// Title always starts with TitlePrefix.
	Title   string `json:"title"`
	Content string `json:"content"`

	// Address is the opaque public handle. It never changes for the row's lifetime.
	Address string `json:"address"`

	// CreatedAt is the creation or last refresh time in Unix milliseconds.
	CreatedAt int64 `json:"created_at"`

	Payloads
}

// Shared is a recipient-scoped copy of a Result taken at share time.
// AnalysisID is a weak reference: the source may be gone.
type Shared struct {
	ID          string     `json:"id"`
	AnalysisID  string     `json:"analysis_id"`
	SharerID    string     `json:"sharer_id"`
	RecipientID string     `json:"recipient_id"`
	Permission  Permission `json:"permission"`
	Message     *string    `json:"message,omitempty"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Address     string     `json:"address"`
	CreatedAt   int64      `json:"created_at"`
	UpdatedAt   int64      `json:"updated_at"`

	Payloads
}

// Connection is a directed edge from UserID to ConnectedUserID.
type Connection struct {
	UserID          string `json:"user_id"`
	ConnectedUserID string `json:"connected_user_id"`
	CreatedAt       int64  `json:"created_at"`
}

// Snapshot copies the shareable fields of r into a Shared value.
func Snapshot(r *Result) Shared {
	return Shared{
		AnalysisID: r.ID,
		Title:      r.Title,
		Content:    r.Content,
		Address:    r.Address,
		Payloads:   r.Payloads.Clone(),
	}
}

// Clone returns a deep copy so snapshots never alias the source buffers.
func (p Payloads) Clone() Payloads {
	return Payloads{
		Sentiment:       cloneRaw(p.Sentiment),
		Ngrams:          cloneRaw(p.Ngrams),
		NamedEntities:   cloneRaw(p.NamedEntities),
		WordFrequencies: cloneRaw(p.WordFrequencies),
	}
}

func cloneRaw(m json.RawMessage) json.RawMessage {
	if m == nil {
		return nil
	}
	out := make(json.RawMessage, len(m))
	copy(out, m)
	return out
}
