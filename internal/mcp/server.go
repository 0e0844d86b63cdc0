package mcp

import (
	"database/sql"
	"log/slog"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/lexis/internal/analyzer"
	"github.com/hpungsan/lexis/internal/config"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"user_create": {
		def:     userCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUserCreate },
	},
	"upload_create": {
		def:     uploadCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUploadCreate },
	},
	"upload_list": {
		def:     uploadListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUploadList },
	},
	"upload_delete": {
		def:     uploadDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUploadDelete },
	},
	"analysis_run": {
		def:     analysisRunToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAnalysisRun },
	},
	"analysis_fetch": {
		def:     analysisFetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAnalysisFetch },
	},
	"analysis_list": {
		def:     analysisListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAnalysisList },
	},
	"share_create": {
		def:     shareCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleShareCreate },
	},
	"share_list": {
		def:     shareListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleShareList },
	},
	"share_save": {
		def:     shareSaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleShareSave },
	},
	"connection_add": {
		def:     connectionAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleConnectionAdd },
	},
	"connection_remove": {
		def:     connectionRemoveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleConnectionRemove },
	},
	"connection_search": {
		def:     connectionSearchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleConnectionSearch },
	},
	"reconcile_run": {
		def:     reconcileRunToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReconcileRun },
	},
}

// AllToolNames returns all valid tool names, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with the Lexis tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, a analyzer.Analyzer, logger *slog.Logger, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"lexis",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	h := NewHandlers(db, cfg, a, logger)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, a analyzer.Analyzer, logger *slog.Logger, version string) error {
	for _, name := range ValidateDisabledTools(cfg.DisabledTools) {
		logger.Warn("unknown tool in disabled_tools", "tool", name)
	}
	return server.ServeStdio(NewServer(db, cfg, a, logger, version))
}
