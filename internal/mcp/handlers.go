package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/lexis/internal/analyzer"
	"github.com/hpungsan/lexis/internal/config"
	"github.com/hpungsan/lexis/internal/errors"
	"github.com/hpungsan/lexis/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db         *sql.DB
	cfg        *config.Config
	analyzer   analyzer.Analyzer
	reconciler *ops.Reconciler
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, a analyzer.Analyzer, logger *slog.Logger) *Handlers {
	return &Handlers{
		db:         db,
		cfg:        cfg,
		analyzer:   a,
		reconciler: ops.NewReconciler(db, logger),
	}
}

// Request types for each tool

// UserCreateRequest represents the arguments for user_create.
type UserCreateRequest struct {
	Username string `json:"username"`
}

// UploadCreateRequest represents the arguments for upload_create.
type UploadCreateRequest struct {
	UserID   string  `json:"user_id"`
	Content  string  `json:"content"`
	Title    string  `json:"title,omitempty"`
	Filename *string `json:"filename,omitempty"`
}

// UploadRequest addresses one upload.
type UploadRequest struct {
	UserID   string `json:"user_id"`
	UploadID string `json:"upload_id"`
}

// PageRequest represents the arguments for the list tools.
type PageRequest struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// FetchRequest represents the arguments for analysis_fetch.
type FetchRequest struct {
	UserID  string `json:"user_id"`
	Address string `json:"address"`
}

// ShareCreateRequest represents the arguments for share_create.
type ShareCreateRequest struct {
	UserID       string   `json:"user_id"`
	AnalysisIDs  []string `json:"analysis_ids"`
	RecipientIDs []string `json:"recipient_ids"`
	Permission   string   `json:"permission,omitempty"`
	Message      *string  `json:"message,omitempty"`
}

// ShareSaveRequest represents the arguments for share_save.
type ShareSaveRequest struct {
	UserID   string `json:"user_id"`
	SharedID string `json:"shared_id"`
}

// ConnectionRequest represents the arguments for connection_add and connection_remove.
type ConnectionRequest struct {
	UserID  string `json:"user_id"`
	OtherID string `json:"other_id"`
}

// ConnectionSearchRequest represents the arguments for connection_search.
type ConnectionSearchRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query,omitempty"`
}

// Handler implementations

// HandleUserCreate handles the user_create tool call.
func (h *Handlers) HandleUserCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UserCreateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	return respond(ops.CreateUser(ctx, h.db, ops.CreateUserInput{Username: input.Username}))
}

// HandleUploadCreate handles the upload_create tool call.
func (h *Handlers) HandleUploadCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UploadCreateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	return respond(ops.CreateUpload(ctx, h.db, ops.CreateUploadInput{
		OwnerID:  input.UserID,
		Title:    input.Title,
		Content:  input.Content,
		Filename: input.Filename,
	}))
}

// HandleUploadList handles the upload_list tool call.
func (h *Handlers) HandleUploadList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PageRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	return respond(ops.ListUploads(ctx, h.db, ops.ListUploadsInput{
		OwnerID: input.UserID,
		Limit:   input.Limit,
		Offset:  input.Offset,
	}))
}

// HandleUploadDelete handles the upload_delete tool call.
func (h *Handlers) HandleUploadDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UploadRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	return respond(ops.DeleteUpload(ctx, h.db, ops.DeleteUploadInput{
		OwnerID:  input.UserID,
		UploadID: input.UploadID,
	}))
}

// HandleAnalysisRun handles the analysis_run tool call.
func (h *Handlers) HandleAnalysisRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UploadRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	return respond(ops.Analyze(ctx, h.db, h.analyzer, ops.AnalyzeInput{
		OwnerID:  input.UserID,
		UploadID: input.UploadID,
	}))
}

// HandleAnalysisFetch handles the analysis_fetch tool call.
func (h *Handlers) HandleAnalysisFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	return respond(ops.Fetch(ctx, h.db, ops.FetchInput{
		CallerID: input.UserID,
		Address:  input.Address,
	}))
}

// HandleAnalysisList handles the analysis_list tool call.
func (h *Handlers) HandleAnalysisList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PageRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	return respond(ops.ListAnalyses(ctx, h.db, ops.ListAnalysesInput{
		OwnerID: input.UserID,
		Limit:   input.Limit,
		Offset:  input.Offset,
	}))
}

// HandleShareCreate handles the share_create tool call.
func (h *Handlers) HandleShareCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ShareCreateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	return respond(ops.ShareMany(ctx, h.db, h.cfg, ops.ShareManyInput{
		AnalysisIDs:  input.AnalysisIDs,
		SharerID:     input.UserID,
		RecipientIDs: input.RecipientIDs,
		Permission:   input.Permission,
		Message:      input.Message,
	}))
}

// HandleShareList handles the share_list tool call.
func (h *Handlers) HandleShareList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PageRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	return respond(ops.ListShared(ctx, h.db, ops.ListSharedInput{
		RecipientID: input.UserID,
		Limit:       input.Limit,
		Offset:      input.Offset,
	}))
}

// HandleShareSave handles the share_save tool call.
func (h *Handlers) HandleShareSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ShareSaveRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	return respond(ops.SaveToCollection(ctx, h.db, ops.SaveInput{
		CallerID: input.UserID,
		SharedID: input.SharedID,
	}))
}

// HandleConnectionAdd handles the connection_add tool call.
func (h *Handlers) HandleConnectionAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ConnectionRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	return respond(ops.AddConnection(ctx, h.db, ops.ConnectionInput{UserID: input.UserID, OtherID: input.OtherID}))
}

// HandleConnectionRemove handles the connection_remove tool call.
func (h *Handlers) HandleConnectionRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ConnectionRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	return respond(ops.RemoveConnection(ctx, h.db, ops.ConnectionInput{UserID: input.UserID, OtherID: input.OtherID}))
}

// HandleConnectionSearch handles the connection_search tool call.
func (h *Handlers) HandleConnectionSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ConnectionSearchRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	users, err := ops.SearchRecipients(ctx, h.db, input.UserID, input.Query)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"items": users, "count": len(users)})
}

// HandleReconcileRun handles the reconcile_run tool call.
func (h *Handlers) HandleReconcileRun(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return respond(h.reconciler.Run(ctx))
}

// Result helpers

// respond turns an ops (result, error) pair into a tool result.
func respond[T any](result T, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// INTERNAL messages and details are replaced so SQL errors and file paths
// never reach the client.
func errorResult(err error) *mcp.CallToolResult {
	errorObj := map[string]any{
		"code":    string(errors.ErrInternal),
		"message": "an internal error occurred",
		"status":  500,
	}

	if lErr, ok := errors.As(err); ok && lErr.Code != errors.ErrInternal {
		msg := lErr.Message
		if err != error(lErr) {
			// Keep wrapper context such as "items[2]: ..."
			msg = err.Error()
		}
		errorObj["code"] = string(lErr.Code)
		errorObj["message"] = msg
		errorObj["status"] = lErr.Status
		if lErr.Details != nil {
			errorObj["details"] = lErr.Details
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
