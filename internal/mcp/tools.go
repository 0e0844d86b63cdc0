package mcp

import "github.com/mark3labs/mcp-go/mcp"

func userIDParam() mcp.ToolOption {
	return mcp.WithString("user_id", mcp.Required(), mcp.Description("Acting user's id"))
}

func stringList(name, desc string) mcp.ToolOption {
	return mcp.WithArray(name, mcp.Required(), mcp.Description(desc), mcp.Items(map[string]any{"type": "string"}))
}

func pageParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
		mcp.WithNumber("offset", mcp.Description("Items to skip")),
	}
}

func newTool(name string, opts ...mcp.ToolOption) mcp.Tool {
	return mcp.NewTool(name, opts...)
}

var userCreateToolDef = newTool("user_create",
	mcp.WithDescription("Register a user. Usernames are unique ignoring case."),
	mcp.WithString("username", mcp.Required(), mcp.Description("Letters, digits, '_', '.', '-'; at most 64 characters")),
)

var uploadCreateToolDef = newTool("upload_create",
	mcp.WithDescription("Store raw text as an upload owned by the user."),
	userIDParam(),
	mcp.WithString("content", mcp.Required(), mcp.Description("Text to analyze later")),
	mcp.WithString("title", mcp.Description("Upload title (default: filename, then \"Untitled\")")),
	mcp.WithString("filename", mcp.Description("Original file name, if any")),
)

var uploadListToolDef = newTool("upload_list",
	append([]mcp.ToolOption{
		mcp.WithDescription("List the user's uploads, newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		userIDParam(),
	}, pageParams()...)...,
)

var uploadDeleteToolDef = newTool("upload_delete",
	mcp.WithDescription("Delete an upload and its analyses. Snapshots already shared from it are kept."),
	mcp.WithDestructiveHintAnnotation(true),
	userIDParam(),
	mcp.WithString("upload_id", mcp.Required(), mcp.Description("Upload to delete")),
)

var analysisRunToolDef = newTool("analysis_run",
	mcp.WithDescription("Analyze an upload (sentiment, n-grams, named entities, word frequencies) and store the result. Re-running refreshes the existing analysis and keeps its address."),
	userIDParam(),
	mcp.WithString("upload_id", mcp.Required(), mcp.Description("Upload to analyze")),
)

var analysisFetchToolDef = newTool("analysis_fetch",
	mcp.WithDescription("Resolve an analysis address. Owners get the live analysis, recipients their snapshot."),
	mcp.WithReadOnlyHintAnnotation(true),
	userIDParam(),
	mcp.WithString("address", mcp.Required(), mcp.Description("Public analysis address")),
)

var analysisListToolDef = newTool("analysis_list",
	append([]mcp.ToolOption{
		mcp.WithDescription("List the user's analyses, newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		userIDParam(),
	}, pageParams()...)...,
)

var shareCreateToolDef = newTool("share_create",
	mcp.WithDescription("Share a snapshot of one or more analyses with recipients. The whole batch fails if any item is invalid."),
	userIDParam(),
	stringList("analysis_ids", "Analyses to share"),
	stringList("recipient_ids", "Recipient user ids"),
	mcp.WithString("permission", mcp.Enum("view-only", "allow-reshare"), mcp.Description("Default view-only")),
	mcp.WithString("message", mcp.Description("Optional note for the recipients")),
)

var shareListToolDef = newTool("share_list",
	append([]mcp.ToolOption{
		mcp.WithDescription("List snapshots shared with the user, most recent first."),
		mcp.WithReadOnlyHintAnnotation(true),
		userIDParam(),
	}, pageParams()...)...,
)

var shareSaveToolDef = newTool("share_save",
	mcp.WithDescription("Copy an allow-reshare snapshot into a new upload owned by the user."),
	userIDParam(),
	mcp.WithString("shared_id", mcp.Required(), mcp.Description("Received snapshot id")),
)

var connectionAddToolDef = newTool("connection_add",
	mcp.WithDescription("Add a directed connection so other_id appears among the user's share recipients."),
	userIDParam(),
	mcp.WithString("other_id", mcp.Required(), mcp.Description("User to connect to")),
)

var connectionRemoveToolDef = newTool("connection_remove",
	mcp.WithDescription("Remove a directed connection."),
	mcp.WithDestructiveHintAnnotation(true),
	userIDParam(),
	mcp.WithString("other_id", mcp.Required(), mcp.Description("Connected user to remove")),
)

var connectionSearchToolDef = newTool("connection_search",
	mcp.WithDescription("List the user's connections by username, optionally filtered by a case-insensitive fragment."),
	mcp.WithReadOnlyHintAnnotation(true),
	userIDParam(),
	mcp.WithString("query", mcp.Description("Username fragment; empty lists all")),
)

var reconcileRunToolDef = newTool("reconcile_run",
	mcp.WithDescription("Normalize titles, delete orphaned analyses and collapse duplicates. Safe to repeat."),
	mcp.WithDestructiveHintAnnotation(true),
)
