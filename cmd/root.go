package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/kyleking/rockset-org-metadata/internal/config"
	"github.com/kyleking/rockset-org-metadata/internal/logging"
	"github.com/kyleking/rockset-org-metadata/internal/progress"
	"github.com/kyleking/rockset-org-metadata/internal/rockset"
)

const appName = "rockset-org-metadata"

// Set by the release build
var (
	version = "dev"
	commit  = "none"
)

type configKey struct{}

// App holds the dependencies the commands are built from
type App struct {
	NewClient   func(opts rockset.ClientOptions) (rockset.Client, error)
	NewProgress func() progress.Reporter
	Fs          afero.Fs
	Stdout      io.Writer
	Stderr      io.Writer
}

// NewApp returns an App wired to the real API, filesystem and terminal
func NewApp() *App {
	return &App{
		NewClient:   rockset.NewClient,
		NewProgress: func() progress.Reporter { return progress.New(os.Stderr) },
		Fs:          afero.NewOsFs(),
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
}

// Command builds the root command. Running it without a subcommand exports.
func (a *App) Command() *cli.Command {
	return &cli.Command{
		Name:  appName,
		Usage: "Export Rockset organization metadata to JSON files",
		Description: `Fetches users, collections, integrations, lambdas, aliases, views and
workspaces from the Rockset API and writes one JSON file per endpoint. Every
collection is enriched with the field list returned by DESCRIBE.`,
		Version:   version + " (commit: " + commit + ")",
		Writer:    a.Stdout,
		ErrWriter: a.Stderr,
		Flags:     globalFlags(),
		Before:    loadConfigBefore,
		Action:    a.runExport,
		Commands: []*cli.Command{
			ConfigCommand(a),
			StatsCommand(a),
		},
	}
}

// Execute runs the CLI with os.Args; Ctrl-C cancels between requests
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp()

	err := app.Command().Run(ctx, os.Args)
	if err != nil {
		printError(app.Stderr, err)
	}

	_ = logging.GetLogger().Close()

	return err
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "apiKey", Usage: "Rockset API key (or " + config.EnvPrefix + "API_KEY)"},
		&cli.BoolFlag{Name: "debug", Usage: "Enable debug mode for troubleshooting"},
		&cli.BoolFlag{Name: "verbose", Usage: "Enable verbose mode for displaying exceptions"},
		&cli.IntFlag{Name: "limit", Usage: "Limit the number of collections processed (implies --debug)"},
		&cli.StringFlag{Name: "output-dir", Usage: "Directory receiving the JSON files", Value: config.DefaultOutputDir},
		&cli.StringFlag{Name: "api-server", Usage: "Rockset API host", Value: config.DefaultAPIServer},
		&cli.StringFlag{Name: "catalog", Usage: "Also record the export in this DuckDB file"},
		&cli.StringFlag{Name: "log-level", Usage: "Log level (debug, info, warn, error)"},
		&cli.StringFlag{Name: "log-format", Usage: "Log format (text, json)"},
		&cli.BoolFlag{Name: "trace-api", Usage: "Include HTTP headers and bodies in the debug trace"},
	}
}

// flagOverrides collects the flags the user actually set, keyed the way
// config.LoadConfigWithOverrides expects
func flagOverrides(cmd *cli.Command) map[string]interface{} {
	overrides := make(map[string]interface{})

	stringFlags := map[string]string{
		"apiKey":     "api-key",
		"output-dir": "output-dir",
		"api-server": "api-server",
		"catalog":    "catalog",
		"log-level":  "log-level",
		"log-format": "log-format",
	}
	for flag, key := range stringFlags {
		if cmd.IsSet(flag) {
			overrides[key] = cmd.String(flag)
		}
	}

	for _, flag := range []string{"debug", "verbose", "trace-api"} {
		if cmd.IsSet(flag) {
			overrides[flag] = cmd.Bool(flag)
		}
	}

	if cmd.IsSet("limit") {
		overrides["limit"] = int(cmd.Int("limit"))
	}

	return overrides
}

// loadConfigBefore loads the configuration, initializes logging and stores
// the config in the context for the actions
func loadConfigBefore(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.LoadConfigWithOverrides(flagOverrides(cmd))
	if err != nil {
		return ctx, err
	}

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		logging.SetupFallbackLogger()
		logging.WithError(err).Warn("Failed to initialize configured logger, using stderr")
	}

	logging.WithFields(map[string]interface{}{
		"api_server": cfg.API.Server,
		"output_dir": cfg.Export.OutputDir,
		"catalog":    cfg.Catalog.Path,
		"debug":      cfg.Debug.Enabled,
	}).Debug("Configuration loaded")

	return context.WithValue(ctx, configKey{}, cfg), nil
}

// getConfigFromContext returns the config stored by loadConfigBefore, or nil
func getConfigFromContext(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(configKey{}).(*config.Config)
	return cfg
}
