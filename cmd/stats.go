package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/rockset-org-metadata/internal/config"
	apperrors "github.com/kyleking/rockset-org-metadata/internal/errors"
	"github.com/kyleking/rockset-org-metadata/internal/formatter"
	"github.com/kyleking/rockset-org-metadata/internal/storage"
)

func StatsCommand(a *App) *cli.Command {
	return &cli.Command{
		Name:        "stats",
		Usage:       "Display a recorded export run from the catalog",
		Description: `Show what an export run stored in the --catalog DuckDB file. Defaults to the most recent run.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "run", Usage: "Run id to show (default: latest)"},
			&cli.StringFlag{Name: "format", Usage: "Output format (long, short, json)", Value: string(formatter.FormatLong)},
		},
		Before: loadConfigBefore,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format, err := formatter.ParseFormat(cmd.String("format"))
			if err != nil {
				return apperrors.Wrap(err, apperrors.ErrTypeValidation, "invalid --format")
			}

			return runStatsWithConfig(ctx, a.Stdout, getConfigFromContext(ctx), cmd.String("run"), format)
		},
	}
}

func runStatsWithConfig(ctx context.Context, w io.Writer, cfg *config.Config, runID string, format formatter.OutputFormat) error {
	if cfg == nil {
		return apperrors.NewConfigError("failed to load configuration", "")
	}

	if !cfg.Catalog.Enabled() {
		return apperrors.NewConfigError("no catalog configured", "Config.Catalog.Path").
			WithSuggestion("Pass --catalog <path> or set " + config.EnvPrefix + "CATALOG_PATH")
	}

	catalog, err := storage.NewDuckDBCatalogFromConfig(cfg.Catalog)
	if err != nil {
		return err
	}
	defer catalog.Close()

	if err := catalog.Initialize(ctx); err != nil {
		return err
	}

	stats, err := catalog.Stats(ctx, runID)
	if err != nil {
		return err
	}

	text, err := formatter.NewFormatter().FormatRunStats(stats, format)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(w, text)

	return nil
}
