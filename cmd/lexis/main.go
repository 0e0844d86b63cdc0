package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/lexis/internal/analyzer"
	"github.com/hpungsan/lexis/internal/config"
	"github.com/hpungsan/lexis/internal/db"
	"github.com/hpungsan/lexis/internal/logging"
	"github.com/hpungsan/lexis/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands()[arg] {
		return true
	}
	// Global flags (--user, --help, --version) also mean CLI
	return len(arg) > 0 && arg[0] == '-'
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _               _
  | |    _____  __(_)___
  | |   / _ \ \/ /| / __|
  | |__|  __/>  < | \__ \
  |_____\___/_/\_\|_|___/

  Text analysis store with snapshot sharing

  Usage: lexis <command> [options]
         lexis --help

  MCP server mode requires piped input.`)
}

// baseDir returns $LEXIS_HOME, or ~/.lexis.
func baseDir() (string, error) {
	if dir := os.Getenv("LEXIS_HOME"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".lexis"), nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		if err := newCLIApp(nil, nil, nil, logging.Discard()).Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	dir, err := baseDir()
	if err != nil {
		fatal("%v", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	logger := logging.New(cfg.Log)

	database, err := db.Init(dir)
	if err != nil {
		fatal("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	a, err := analyzer.New(cfg.Analyzer)
	if err != nil {
		fatal("%v", err)
	}

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(database, cfg, a, logger)
		if err := app.Run(os.Args); err != nil {
			database.Close()
			fatal("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		database.Close()
		fatal("unknown command %q\nRun 'lexis --help' for usage.", os.Args[1])
	}

	// MCP server mode (default)
	if err := mcp.Run(database, cfg, a, logger, Version); err != nil {
		database.Close()
		fatal("%v", err)
	}
}
