package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hpungsan/lexis/internal/analyzer"
	"github.com/hpungsan/lexis/internal/config"
	"github.com/hpungsan/lexis/internal/errors"
	"github.com/hpungsan/lexis/internal/ops"
)

// maxBodyBytes bounds JSON request bodies, uploads included.
const maxBodyBytes = 4 << 20

// Handlers contains HTTP route handlers for the API.
type Handlers struct {
	db         *sql.DB
	cfg        *config.Config
	analyzer   analyzer.Analyzer
	reconciler *ops.Reconciler
	log        *slog.Logger
	version    string
}

type userKey struct{}

// requireUser rejects requests without a UserHeader and stores the id in
// the request context.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(UserHeader))
		if id == "" {
			renderError(w, nil, errors.NewValidation(UserHeader+" header is required"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, id)))
	})
}

func callerID(r *http.Request) string {
	id, _ := r.Context().Value(userKey{}).(string)
	return id
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap renders errors returned by h.
func (h *Handlers) wrap(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			renderError(w, h.log, err)
		}
	}
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		renderJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": h.version})
}

// HandleCreateUser handles POST /api/v1/users.
func (h *Handlers) HandleCreateUser(w http.ResponseWriter, r *http.Request) error {
	var body struct {
		Username string `json:"username"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		return err
	}
	u, err := ops.CreateUser(r.Context(), h.db, ops.CreateUserInput{Username: body.Username})
	if err != nil {
		return err
	}
	renderJSON(w, http.StatusCreated, u)
	return nil
}

// HandleCreateUpload handles POST /api/v1/uploads.
func (h *Handlers) HandleCreateUpload(w http.ResponseWriter, r *http.Request) error {
	var body struct {
		Title    string  `json:"title"`
		Content  string  `json:"content"`
		Filename *string `json:"filename"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		return err
	}
	u, err := ops.CreateUpload(r.Context(), h.db, ops.CreateUploadInput{
		OwnerID:  callerID(r),
		Title:    body.Title,
		Content:  body.Content,
		Filename: body.Filename,
	})
	if err != nil {
		return err
	}
	renderJSON(w, http.StatusCreated, u)
	return nil
}

// HandleListUploads handles GET /api/v1/uploads.
func (h *Handlers) HandleListUploads(w http.ResponseWriter, r *http.Request) error {
	out, err := ops.ListUploads(r.Context(), h.db, ops.ListUploadsInput{
		OwnerID: callerID(r),
		Limit:   parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:  parseIntParam(r, "offset", 0),
	})
	if err != nil {
		return err
	}
	renderJSON(w, http.StatusOK, out)
	return nil
}

// HandleDeleteUpload handles DELETE /api/v1/uploads/{uploadID}.
func (h *Handlers) HandleDeleteUpload(w http.ResponseWriter, r *http.Request) error {
	out, err := ops.DeleteUpload(r.Context(), h.db, ops.DeleteUploadInput{
		OwnerID:  callerID(r),
		UploadID: chi.URLParam(r, "uploadID"),
	})
	if err != nil {
		return err
	}
	renderJSON(w, http.StatusOK, out)
	return nil
}

// HandleAnalyze handles POST /api/v1/uploads/{uploadID}/analyze.
func (h *Handlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) error {
	out, err := ops.Analyze(r.Context(), h.db, h.analyzer, ops.AnalyzeInput{
		OwnerID:  callerID(r),
		UploadID: chi.URLParam(r, "uploadID"),
	})
	if err != nil {
		return err
	}
	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}
	renderJSON(w, status, out)
	return nil
}

// HandleListAnalyses handles GET /api/v1/analyses.
func (h *Handlers) HandleListAnalyses(w http.ResponseWriter, r *http.Request) error {
	out, err := ops.ListAnalyses(r.Context(), h.db, ops.ListAnalysesInput{
		OwnerID: callerID(r),
		Limit:   parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:  parseIntParam(r, "offset", 0),
	})
	if err != nil {
		return err
	}
	renderJSON(w, http.StatusOK, out)
	return nil
}

// HandleFetch handles GET /api/v1/analyses/{address}.
func (h *Handlers) HandleFetch(w http.ResponseWriter, r *http.Request) error {
	out, err := ops.Fetch(r.Context(), h.db, ops.FetchInput{
		CallerID: callerID(r),
		Address:  chi.URLParam(r, "address"),
	})
	if err != nil {
		return err
	}
	renderJSON(w, http.StatusOK, out)
	return nil
}

// HandleShare handles POST /api/v1/shares.
func (h *Handlers) HandleShare(w http.ResponseWriter, r *http.Request) error {
	var body struct {
		AnalysisIDs  []string `json:"analysis_ids"`
		RecipientIDs []string `json:"recipient_ids"`
		Permission   string   `json:"permission"`
		Message      *string  `json:"message"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		return err
	}
	out, err := ops.ShareMany(r.Context(), h.db, h.cfg, ops.ShareManyInput{
		AnalysisIDs:  body.AnalysisIDs,
		SharerID:     callerID(r),
		RecipientIDs: body.RecipientIDs,
		Permission:   body.Permission,
		Message:      body.Message,
	})
	if err != nil {
		return err
	}
	renderJSON(w, http.StatusOK, out)
	return nil
}

// HandleListShared handles GET /api/v1/shares.
func (h *Handlers) HandleListShared(w http.ResponseWriter, r *http.Request) error {
	out, err := ops.ListShared(r.Context(), h.db, ops.ListSharedInput{
		RecipientID: callerID(r),
		Limit:       parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:      parseIntParam(r, "offset", 0),
	})
	if err != nil {
		return err
	}
	renderJSON(w, http.StatusOK, out)
	return nil
}

// HandleSave handles POST /api/v1/shares/{sharedID}/save.
func (h *Handlers) HandleSave(w http.ResponseWriter, r *http.Request) error {
	u, err := ops.SaveToCollection(r.Context(), h.db, ops.SaveInput{
		CallerID: callerID(r),
		SharedID: chi.URLParam(r, "sharedID"),
	})
	if err != nil {
		return err
	}
	renderJSON(w, http.StatusCreated, u)
	return nil
}

// HandleAddConnection handles POST /api/v1/connections.
func (h *Handlers) HandleAddConnection(w http.ResponseWriter, r *http.Request) error {
	var body struct {
		OtherID string `json:"other_id"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		return err
	}
	c, err := ops.AddConnection(r.Context(), h.db, ops.ConnectionInput{UserID: callerID(r), OtherID: body.OtherID})
	if err != nil {
		return err
	}
	renderJSON(w, http.StatusCreated, c)
	return nil
}

// HandleRemoveConnection handles DELETE /api/v1/connections/{otherID}.
func (h *Handlers) HandleRemoveConnection(w http.ResponseWriter, r *http.Request) error {
	out, err := ops.RemoveConnection(r.Context(), h.db, ops.ConnectionInput{
		UserID:  callerID(r),
		OtherID: chi.URLParam(r, "otherID"),
	})
	if err != nil {
		return err
	}
	renderJSON(w, http.StatusOK, out)
	return nil
}

// HandleRecipients handles GET /api/v1/recipients?q=fragment.
func (h *Handlers) HandleRecipients(w http.ResponseWriter, r *http.Request) error {
	users, err := ops.SearchRecipients(r.Context(), h.db, callerID(r), r.URL.Query().Get("q"))
	if err != nil {
		return err
	}
	renderJSON(w, http.StatusOK, map[string]any{"items": users, "count": len(users)})
	return nil
}

// HandleReconcile handles POST /api/v1/reconcile.
func (h *Handlers) HandleReconcile(w http.ResponseWriter, r *http.Request) error {
	out, err := h.reconciler.Run(r.Context())
	if err != nil {
		return err
	}
	renderJSON(w, http.StatusOK, out)
	return nil
}

// HandleView handles GET /analyses/{address}/view, an HTML rendering of
// whatever Fetch resolves for the caller.
func (h *Handlers) HandleView(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Fetch(r.Context(), h.db, ops.FetchInput{
		CallerID: callerID(r),
		Address:  chi.URLParam(r, "address"),
	})
	if err != nil {
		renderError(w, h.log, err)
		return
	}
	renderView(w, h.log, newViewData(out, h.version))
}

// decodeBody decodes a JSON request body into v, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.NewValidation("invalid request body: " + err.Error())
	}
	return nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
