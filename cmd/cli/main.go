package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kurihiro0119/issue-burndown/internal/burndown"
	"github.com/kurihiro0119/issue-burndown/internal/collector"
	"github.com/kurihiro0119/issue-burndown/internal/config"
	apperrors "github.com/kurihiro0119/issue-burndown/internal/errors"
	"github.com/kurihiro0119/issue-burndown/internal/logging"
	"github.com/kurihiro0119/issue-burndown/internal/merger"
	"github.com/kurihiro0119/issue-burndown/internal/render"
	"github.com/kurihiro0119/issue-burndown/internal/smoothing"
	"github.com/kurihiro0119/issue-burndown/internal/storage"
	"github.com/kurihiro0119/issue-burndown/internal/storage/file"
	"github.com/kurihiro0119/issue-burndown/internal/storage/postgres"
	"github.com/kurihiro0119/issue-burndown/internal/storage/sqlite"
)

// Exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// options holds the command-line flags
type options struct {
	envFile   string
	tracker   string
	storage   string
	cachePath string
	samples   int
	lookahead int
	raw       bool
	json      bool
	logLevel  string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code
func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	switch {
	case err == nil:
		return exitOK
	case apperrors.IsUsage(err):
		fmt.Fprintf(stderr, "Error: %v\n\n%s", err, cmd.UsageString())
		return exitUsage
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "burndown <endpoint> <credential> <project> [since] [output]",
		Short: "Issue burndown chart per milestone",
		Long: `Fetch the issues of a project, merge them into the local cache and draw
the number of open issues per milestone over time.

endpoint is the tracker URL (https://gitlab.com, or a GitHub Enterprise API URL;
empty for github.com), credential an access token and project a GitLab path or id,
or owner/repo on GitHub. since (RFC 3339 or YYYY-MM-DD) hides earlier history.
output picks the format from its extension: .json writes JSON and anything else
an HTML chart. Without output a summary table is printed.`,
		Args:          validateArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBurndown(cmd, opts, args, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperrors.NewUsageError(err.Error())
	})

	flags := cmd.Flags()
	flags.StringVar(&opts.envFile, "env-file", ".env", "environment file to load")
	flags.StringVar(&opts.tracker, "tracker", "", "tracker kind (gitlab, github)")
	flags.StringVar(&opts.storage, "storage", "", "cache backend (file, sqlite, postgres)")
	flags.StringVar(&opts.cachePath, "cache", "", "cache file, or SQLite database with --storage sqlite")
	flags.IntVar(&opts.samples, "samples", 0, "points on the smoothed time grid")
	flags.IntVar(&opts.lookahead, "lookahead", -1, "pages scanned past the first cached issue")
	flags.BoolVar(&opts.raw, "raw", false, "draw exact step values without smoothing")
	flags.BoolVar(&opts.json, "json", false, "write JSON instead of a table or chart")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	return cmd
}

func validateArgs(cmd *cobra.Command, args []string) error {
	if len(args) < 3 || len(args) > 5 {
		return apperrors.NewUsageError(fmt.Sprintf("expected 3 to 5 arguments, got %d", len(args)))
	}
	if args[2] == "" {
		return apperrors.NewUsageError("project must not be empty")
	}
	return nil
}

func runBurndown(cmd *cobra.Command, opts *options, args []string, stdout, stderr io.Writer) error {
	endpoint, credential, project := args[0], args[1], args[2]
	var sinceArg, output string
	if len(args) > 3 {
		sinceArg = args[3]
	}
	if len(args) > 4 {
		output = args[4]
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	since, err := burndown.ParseSince(sinceArg)
	if err != nil {
		return apperrors.NewUsageError(err.Error())
	}

	logger := logging.NewWithWriter(stderr, cfg.LogLevel, cfg.LogPretty)

	coll, err := collector.New(cfg.Tracker, endpoint, credential, collector.NewRateLimiter(collector.DefaultMinDelay, logger))
	if err != nil {
		return err
	}

	store, err := getStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	m := merger.NewMerger(store, coll, logger, nil)
	m.BoundaryLookahead = cfg.Lookahead

	smoothingOpts := smoothing.DefaultOptions()
	smoothingOpts.Samples = cfg.Samples
	smoothingOpts.Disabled = opts.raw

	svc := burndown.NewService(store, m, logger)
	result, err := svc.Run(context.Background(), burndown.Request{
		Project:   project,
		Since:     since,
		Smoothing: smoothingOpts,
	})
	if err != nil {
		return err
	}

	return writeOutput(result, output, opts.json, stdout, logger)
}

// loadConfig reads the environment and applies explicitly set flags on top
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("tracker") {
		cfg.Tracker = opts.tracker
	}
	if flags.Changed("storage") {
		cfg.Storage = opts.storage
	}
	if flags.Changed("cache") {
		if cfg.Storage == config.StorageSQLite {
			cfg.SQLitePath = opts.cachePath
		} else {
			cfg.CachePath = opts.cachePath
		}
	}
	if flags.Changed("samples") {
		cfg.Samples = opts.samples
	}
	if flags.Changed("lookahead") {
		cfg.Lookahead = opts.lookahead
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewUsageError(err.Error())
	}
	return cfg, nil
}

func writeOutput(result *burndown.Result, output string, asJSON bool, stdout io.Writer, logger zerolog.Logger) error {
	if output == "" {
		var r render.Renderer = render.NewTableRenderer()
		if asJSON {
			r = render.NewJSONRenderer()
		}
		return r.Render(stdout, result.Chart)
	}

	r := render.ForPath(output)
	if asJSON {
		r = render.NewJSONRenderer()
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := r.Render(f, result.Chart); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	logger.Info().Str("output", output).Int("series", len(result.Chart.Series)).Msg("chart written")
	return nil
}

func getStorage(cfg *config.Config) (storage.SnapshotStore, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		return postgres.NewPostgresStorage(cfg.PostgresURL)
	case config.StorageSQLite:
		return sqlite.NewSQLiteStorage(cfg.SQLitePath)
	default:
		return file.NewFileStorage(cfg.CachePath), nil
	}
}
