package service

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"blogapi/app/apperrors"
	"blogapi/app/config"
	"blogapi/app/logger"
	"blogapi/app/repositories"
	"blogapi/app/services"

	"go.uber.org/zap"
)

// Version is reported by the API info endpoint; main sets it.
var Version = "dev"

// HandleCommand runs a subcommand against the process's stdin and stdout and
// returns an exit code.
func HandleCommand(args []string) int {
	return NewRunner(os.Stdin, os.Stdout).Run(args)
}

// Runner executes subcommands. In answers confirmation prompts.
type Runner struct {
	in  *bufio.Reader
	out io.Writer
}

func NewRunner(in io.Reader, out io.Writer) *Runner {
	return &Runner{in: bufio.NewReader(in), out: out}
}

// Run dispatches args[0] and returns an exit code.
func (r *Runner) Run(args []string) int {
	if len(args) < 1 {
		r.printHelp()
		return 1
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "serve":
		return r.serve(rest)
	case "init":
		return r.initDb(rest)
	case "clean":
		return r.clean(rest)
	case "backup":
		return r.backup(rest)
	case "restore":
		return r.restore(rest)
	case "reconcile":
		return r.reconcile(rest)
	case "help":
		r.printHelp()
		return 0
	default:
		fmt.Fprintf(r.out, "Unknown command: %s\n\n", cmd)
		r.printHelp()
		return 1
	}
}

func (r *Runner) printHelp() {
	helpText := `Usage: blogapi <command> [options]

Commands:
  serve     [--config file] [--env file]          Run the blog API server
  init      [--config file] [--env file]          Initialize a new empty database
  clean     [--config file] [--env file]          Remove the database
  backup    [--config file] [--env file] [file]   Write a backup of the database
  restore   [--config file] [--env file] <file>   Restore the database from a backup
  reconcile [--config file] [--env file]          Check every post's score against its votes
  help                                            Display this help message
`
	fmt.Fprintln(r.out, helpText)
}

// loadConfig parses the flags shared by every subcommand and returns the
// remaining positional arguments.
func (r *Runner) loadConfig(name string, args []string) (*config.Config, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(r.out)
	configPath := fs.String("config", "", "path to a YAML config file")
	envFile := fs.String("env", ".env", "path to a .env file")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, fs.Args(), nil
}

// storageConfig loads config for commands that work on the database files.
func (r *Runner) storageConfig(name string, args []string) (*config.Config, []string, bool) {
	cfg, rest, err := r.loadConfig(name, args)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return nil, nil, false
	}
	if cfg.Storage.InMemory {
		fmt.Fprintf(r.out, "Error: %s needs an on-disk database; storage.in_memory is set\n", name)
		return nil, nil, false
	}
	return cfg, rest, true
}

func (r *Runner) confirm(prompt string) bool {
	fmt.Fprintf(r.out, "%s [y/N] ", prompt)
	line, err := r.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	answer := strings.TrimSpace(line)
	return answer == "y" || answer == "Y"
}

func databaseExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (r *Runner) serve(args []string) int {
	cfg, _, err := r.loadConfig("serve", args)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return 1
	}
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return 1
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, log, Version)
	if err != nil {
		log.Error("failed to start", zap.Error(err))
		return 1
	}
	defer app.Close()

	if err := app.ListenAndServe(ctx); err != nil {
		log.Error("server stopped", zap.Error(err))
		return 1
	}
	log.Info("server stopped")
	return 0
}

func (r *Runner) initDb(args []string) int {
	cfg, _, ok := r.storageConfig("init", args)
	if !ok {
		return 1
	}
	path := cfg.Storage.Path
	if databaseExists(path) {
		fmt.Fprintln(r.out, "Database already exists. Use 'clean' first if you want to reinitialize.")
		return 1
	}

	store, err := repositories.Open(repositories.Options{Path: path})
	if err != nil {
		fmt.Fprintf(r.out, "Failed to initialize database: %v\n", err)
		return 1
	}
	if err := store.Close(); err != nil {
		fmt.Fprintf(r.out, "Failed to initialize database: %v\n", err)
		return 1
	}
	fmt.Fprintf(r.out, "Database initialized at %s\n", path)
	return 0
}

func (r *Runner) clean(args []string) int {
	cfg, _, ok := r.storageConfig("clean", args)
	if !ok {
		return 1
	}
	path := cfg.Storage.Path
	if !databaseExists(path) {
		fmt.Fprintln(r.out, "Database is already clean (does not exist)")
		return 0
	}

	if !r.confirm("Are you sure you want to clean the database? This cannot be undone.") {
		fmt.Fprintln(r.out, "Operation cancelled")
		return 1
	}
	if err := os.RemoveAll(path); err != nil {
		fmt.Fprintf(r.out, "Failed to clean database: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.out, "Database cleaned successfully")
	return 0
}

func (r *Runner) backup(args []string) int {
	cfg, rest, ok := r.storageConfig("backup", args)
	if !ok {
		return 1
	}
	path := cfg.Storage.Path
	if !databaseExists(path) {
		fmt.Fprintln(r.out, "No database exists to backup")
		return 1
	}

	backupFile := filepath.Join(filepath.Dir(path), "backups", fmt.Sprintf("backup_%d.db", time.Now().Unix()))
	if len(rest) > 0 {
		backupFile = rest[0]
	}
	if err := os.MkdirAll(filepath.Dir(backupFile), 0o755); err != nil {
		fmt.Fprintf(r.out, "Failed to create backup directory: %v\n", err)
		return 1
	}

	store, err := repositories.Open(repositories.Options{Path: path})
	if err != nil {
		fmt.Fprintf(r.out, "Failed to open database: %v\n", err)
		return 1
	}
	defer store.Close()

	f, err := os.Create(backupFile)
	if err != nil {
		fmt.Fprintf(r.out, "Failed to create backup file: %v\n", err)
		return 1
	}
	if _, err := store.Backup(f); err != nil {
		f.Close()
		fmt.Fprintf(r.out, "Failed to backup database: %v\n", err)
		return 1
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(r.out, "Failed to write backup file: %v\n", err)
		return 1
	}

	fmt.Fprintf(r.out, "Database backed up successfully to %s\n", backupFile)
	return 0
}

func (r *Runner) restore(args []string) int {
	cfg, rest, ok := r.storageConfig("restore", args)
	if !ok {
		return 1
	}
	if len(rest) < 1 {
		fmt.Fprintln(r.out, "Error: backup file path required for restore")
		return 1
	}
	backupFile, path := rest[0], cfg.Storage.Path

	fi, err := os.Stat(backupFile)
	if err != nil {
		fmt.Fprintf(r.out, "Backup file does not exist: %s\n", backupFile)
		return 1
	}
	if fi.Size() == 0 {
		fmt.Fprintf(r.out, "Backup file is empty: %s\n", backupFile)
		return 1
	}

	if databaseExists(path) {
		if !r.confirm("Existing database found. Do you want to replace it?") {
			fmt.Fprintln(r.out, "Operation cancelled")
			return 1
		}
		if err := os.RemoveAll(path); err != nil {
			fmt.Fprintf(r.out, "Failed to remove existing database: %v\n", err)
			return 1
		}
	}

	f, err := os.Open(backupFile)
	if err != nil {
		fmt.Fprintf(r.out, "Failed to open backup file: %v\n", err)
		return 1
	}
	defer f.Close()

	store, err := repositories.Open(repositories.Options{Path: path})
	if err != nil {
		fmt.Fprintf(r.out, "Failed to open database: %v\n", err)
		return 1
	}
	defer store.Close()

	if err := loadBackup(store, f); err != nil {
		fmt.Fprintf(r.out, "Failed to restore database: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.out, "Database restored successfully")
	return 0
}

// loadBackup turns a panic from a corrupt backup stream into an error.
func loadBackup(store *repositories.Store, f io.Reader) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic occurred during restore: %v", rec)
		}
	}()
	return store.Restore(f)
}

// reconcile reports every post whose cached score disagrees with its votes.
// Nothing is rewritten; the exit code is 1 when drift is found.
func (r *Runner) reconcile(args []string) int {
	cfg, _, ok := r.storageConfig("reconcile", args)
	if !ok {
		return 1
	}
	if !databaseExists(cfg.Storage.Path) {
		fmt.Fprintln(r.out, "No database exists to reconcile")
		return 1
	}

	store, err := repositories.Open(repositories.Options{Path: cfg.Storage.Path})
	if err != nil {
		fmt.Fprintf(r.out, "Failed to open database: %v\n", err)
		return 1
	}
	defer store.Close()

	posts, err := store.Posts().List()
	if err != nil {
		fmt.Fprintf(r.out, "Failed to list posts: %v\n", err)
		return 1
	}

	votes := services.NewVoteService(store.Votes(), nil, services.VoteServiceOptions{})
	ctx := context.Background()
	drifted := 0
	for _, post := range posts {
		report, err := votes.Reconcile(ctx, post.ID)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrInvariant):
			drifted++
			fmt.Fprintf(r.out, "post %d: score %d, votes say %d (%d up, %d down)\n",
				post.ID, report.Cached, report.Net(), report.Tally.Upvotes, report.Tally.Downvotes)
		case errors.Is(err, apperrors.ErrNotFound):
			// deleted since List
		default:
			fmt.Fprintf(r.out, "Failed to reconcile post %d: %v\n", post.ID, err)
			return 1
		}
	}

	fmt.Fprintf(r.out, "Checked %d posts, %d with score drift\n", len(posts), drifted)
	if drifted > 0 {
		return 1
	}
	return 0
}
