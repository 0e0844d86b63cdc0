package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/analyzer"
	"github.com/hpungsan/lexis/internal/config"
	"github.com/hpungsan/lexis/internal/errors"
	"github.com/hpungsan/lexis/internal/ops"
	"github.com/hpungsan/lexis/internal/web"
)

// cliCommands returns the names of all CLI subcommands.
func cliCommands() map[string]bool {
	names := map[string]bool{"help": true}
	for _, cmd := range newCLIApp(nil, nil, nil, nil).Commands {
		names[cmd.Name] = true
	}
	return names
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, a analyzer.Analyzer, logger *slog.Logger) *cli.App {
	app := &cli.App{
		Name:    "lexis",
		Usage:   "Text analysis store with snapshot sharing",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, EnvVars: []string{"LEXIS_USER"}, Usage: "Acting user (id or username)"},
		},
		Commands: []*cli.Command{
			userCmd(db),
			uploadCmd(db),
			uploadsCmd(db),
			unuploadCmd(db),
			analyzeCmd(db, a),
			showCmd(db),
			analysesCmd(db),
			shareCmd(db, cfg),
			sharedCmd(db),
			saveCmd(db),
			connectCmd(db),
			disconnectCmd(db),
			recipientsCmd(db),
			reconcileCmd(db, logger),
			serveCmd(db, cfg, a, logger),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// userCmd creates the user command group.
func userCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage users",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Register a user",
				ArgsUsage: "<username>",
				Action: func(c *cli.Context) error {
					u, err := ops.CreateUser(c.Context, db, ops.CreateUserInput{Username: c.Args().First()})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, u)
				},
			},
			{
				Name:      "show",
				Usage:     "Show a user by id or username",
				ArgsUsage: "<user>",
				Action: func(c *cli.Context) error {
					u, err := ops.ResolveUser(c.Context, db, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, u)
				},
			},
		},
	}
}

// uploadCmd creates the upload command.
func uploadCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "upload",
		Usage: "Store text as a new upload (reads --file or stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Upload title (defaults to the file name)"},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Read text from this file"},
		},
		Action: func(c *cli.Context) error {
			owner, err := actingUser(c, db)
			if err != nil {
				return outputError(err)
			}

			input := ops.CreateUploadInput{OwnerID: owner, Title: c.String("title")}
			if path := c.String("file"); path != "" {
				data, err := os.ReadFile(path)
				if err != nil {
					return outputError(errors.NewValidation(fmt.Sprintf("cannot read %s: %v", path, err)))
				}
				name := filepath.Base(path)
				input.Content = string(data)
				input.Filename = &name
			} else {
				if !inputHasData(c) {
					return outputError(errors.NewValidation("text must be piped via stdin or given with --file"))
				}
				text, err := readInput(c)
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				input.Content = text
			}

			u, err := ops.CreateUpload(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, u)
		},
	}
}

// uploadsCmd creates the uploads command.
func uploadsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "uploads",
		Usage: "List your uploads",
		Flags: pageFlags(),
		Action: func(c *cli.Context) error {
			owner, err := actingUser(c, db)
			if err != nil {
				return outputError(err)
			}
			out, err := ops.ListUploads(c.Context, db, ops.ListUploadsInput{
				OwnerID: owner,
				Limit:   c.Int("limit"),
				Offset:  c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

// unuploadCmd creates the unupload command.
func unuploadCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "unupload",
		Usage:     "Delete an upload and its analyses",
		ArgsUsage: "<upload-id>",
		Action: func(c *cli.Context) error {
			owner, err := actingUser(c, db)
			if err != nil {
				return outputError(err)
			}
			out, err := ops.DeleteUpload(c.Context, db, ops.DeleteUploadInput{OwnerID: owner, UploadID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

// analyzeCmd creates the analyze command.
func analyzeCmd(db *sql.DB, a analyzer.Analyzer) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Analyze an upload and store the result",
		ArgsUsage: "<upload-id>",
		Action: func(c *cli.Context) error {
			owner, err := actingUser(c, db)
			if err != nil {
				return outputError(err)
			}
			out, err := ops.Analyze(c.Context, db, a, ops.AnalyzeInput{OwnerID: owner, UploadID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

// showCmd creates the show command.
func showCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show an analysis or a snapshot shared with you by address",
		ArgsUsage: "<address>",
		Action: func(c *cli.Context) error {
			caller, err := actingUser(c, db)
			if err != nil {
				return outputError(err)
			}
			out, err := ops.Fetch(c.Context, db, ops.FetchInput{CallerID: caller, Address: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

// analysesCmd creates the analyses command.
func analysesCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "analyses",
		Usage: "List your analyses",
		Flags: pageFlags(),
		Action: func(c *cli.Context) error {
			owner, err := actingUser(c, db)
			if err != nil {
				return outputError(err)
			}
			out, err := ops.ListAnalyses(c.Context, db, ops.ListAnalysesInput{
				OwnerID: owner,
				Limit:   c.Int("limit"),
				Offset:  c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

// shareCmd creates the share command.
func shareCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "share",
		Usage:     "Share snapshots of analyses with other users",
		ArgsUsage: "<analysis-id>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Required: true, Usage: "Comma-separated recipients (ids or usernames)"},
			&cli.BoolFlag{Name: "allow-reshare", Usage: "Let recipients reshare and save the snapshot"},
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "Note for the recipients"},
		},
		Action: func(c *cli.Context) error {
			sharer, err := actingUser(c, db)
			if err != nil {
				return outputError(err)
			}

			var recipients []string
			for _, ref := range splitList(c.String("to")) {
				u, err := ops.ResolveUser(c.Context, db, ref)
				if err != nil {
					return outputError(err)
				}
				recipients = append(recipients, u.ID)
			}

			input := ops.ShareManyInput{
				AnalysisIDs:  c.Args().Slice(),
				SharerID:     sharer,
				RecipientIDs: recipients,
			}
			if c.Bool("allow-reshare") {
				input.Permission = string(analysis.PermissionAllowReshare)
			}
			if c.IsSet("message") {
				msg := c.String("message")
				input.Message = &msg
			}

			out, err := ops.ShareMany(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

// sharedCmd creates the shared command.
func sharedCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "shared",
		Usage: "List snapshots shared with you",
		Flags: pageFlags(),
		Action: func(c *cli.Context) error {
			caller, err := actingUser(c, db)
			if err != nil {
				return outputError(err)
			}
			out, err := ops.ListShared(c.Context, db, ops.ListSharedInput{
				RecipientID: caller,
				Limit:       c.Int("limit"),
				Offset:      c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

// saveCmd creates the save command.
func saveCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Copy an allow-reshare snapshot into your uploads",
		ArgsUsage: "<shared-id>",
		Action: func(c *cli.Context) error {
			caller, err := actingUser(c, db)
			if err != nil {
				return outputError(err)
			}
			u, err := ops.SaveToCollection(c.Context, db, ops.SaveInput{CallerID: caller, SharedID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, u)
		},
	}
}

// connectCmd creates the connect command.
func connectCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "connect",
		Usage:     "Add a user to your share recipients",
		ArgsUsage: "<user>",
		Action: func(c *cli.Context) error {
			input, err := connectionInput(c, db)
			if err != nil {
				return outputError(err)
			}
			out, err := ops.AddConnection(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

// disconnectCmd creates the disconnect command.
func disconnectCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "disconnect",
		Usage:     "Remove a user from your share recipients",
		ArgsUsage: "<user>",
		Action: func(c *cli.Context) error {
			input, err := connectionInput(c, db)
			if err != nil {
				return outputError(err)
			}
			out, err := ops.RemoveConnection(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

// recipientsCmd creates the recipients command.
func recipientsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "recipients",
		Usage:     "List your connections, optionally filtered by username",
		ArgsUsage: "[query]",
		Action: func(c *cli.Context) error {
			caller, err := actingUser(c, db)
			if err != nil {
				return outputError(err)
			}
			users, err := ops.SearchRecipients(c.Context, db, caller, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, map[string]any{"items": users, "count": len(users)})
		},
	}
}

// reconcileCmd creates the reconcile command.
func reconcileCmd(db *sql.DB, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Normalize titles, delete orphaned analyses and collapse duplicates",
		Action: func(c *cli.Context) error {
			out, err := ops.NewReconciler(db, logger).Run(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config, a analyzer.Analyzer, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and the periodic reconciler",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "Bind address (overrides server.host)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port (overrides server.port)"},
		},
		Action: func(c *cli.Context) error {
			if c.IsSet("host") {
				cfg.Server.Host = c.String("host")
			}
			if c.IsSet("port") {
				cfg.Server.Port = c.Int("port")
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := web.NewServer(db, cfg, a, logger, Version)
			reconciler := ops.NewReconciler(db, logger)

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return web.Run(ctx, srv, cfg.Server.ShutdownTimeout, logger)
			})
			g.Go(func() error {
				return reconciler.RunEvery(ctx, cfg.Reconcile.Interval)
			})
			if err := g.Wait(); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// Helper functions

func pageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
		&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
	}
}

// actingUser resolves the global --user flag to a user id.
func actingUser(c *cli.Context, db *sql.DB) (string, error) {
	ref := c.String("user")
	if strings.TrimSpace(ref) == "" {
		return "", errors.NewValidation("--user (or LEXIS_USER) is required")
	}
	u, err := ops.ResolveUser(c.Context, db, ref)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

func connectionInput(c *cli.Context, db *sql.DB) (ops.ConnectionInput, error) {
	caller, err := actingUser(c, db)
	if err != nil {
		return ops.ConnectionInput{}, err
	}
	other, err := ops.ResolveUser(c.Context, db, c.Args().First())
	if err != nil {
		return ops.ConnectionInput{}, err
	}
	return ops.ConnectionInput{UserID: caller, OtherID: other.ID}, nil
}

// outputJSON writes v to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if lErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", lErr.Code, lErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// inputHasData returns true if the app's reader has piped data. Readers
// other than a terminal stdin always count as piped.
func inputHasData(c *cli.Context) bool {
	f, ok := c.App.Reader.(*os.File)
	if !ok {
		return true
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readInput reads all content from the app's reader.
func readInput(c *cli.Context) (string, error) {
	data, err := io.ReadAll(c.App.Reader)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// splitList splits a comma-separated string, dropping empty entries.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
