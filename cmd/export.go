package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/rockset-org-metadata/internal/config"
	apperrors "github.com/kyleking/rockset-org-metadata/internal/errors"
	"github.com/kyleking/rockset-org-metadata/internal/export"
	"github.com/kyleking/rockset-org-metadata/internal/formatter"
	"github.com/kyleking/rockset-org-metadata/internal/logging"
	"github.com/kyleking/rockset-org-metadata/internal/output"
	"github.com/kyleking/rockset-org-metadata/internal/rockset"
	"github.com/kyleking/rockset-org-metadata/internal/storage"
)

func (a *App) runExport(ctx context.Context, _ *cli.Command) error {
	cfg := getConfigFromContext(ctx)
	if cfg == nil {
		return apperrors.NewConfigError("failed to load configuration", "")
	}

	return a.RunExportWithConfig(ctx, cfg)
}

// RunExportWithConfig runs a full export with an already loaded config
func (a *App) RunExportWithConfig(ctx context.Context, cfg *config.Config) error {
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	reporter := a.NewProgress()

	clientOpts := rockset.ClientOptions{
		APIKey:  cfg.API.Key,
		Server:  cfg.API.Server,
		Verbose: cfg.Debug.Verbose,
		Notice:  reporter.Printf,
	}

	if cfg.Debug.Enabled || cfg.Debug.TraceAPI {
		clientOpts.Log = logging.GetLogger().Writer()
		clientOpts.LogVerboseHTTP = cfg.Debug.TraceAPI
	}

	client, err := a.NewClient(clientOpts)
	if err != nil {
		return err
	}

	opts := export.Options{
		Client:    client,
		Writer:    output.NewWriter(a.Fs, cfg.Export.OutputDir),
		Limit:     cfg.Export.Limit,
		APIServer: cfg.API.Server,
		Progress:  reporter,
		Logger:    logging.GetLogger(),
		Stdout:    a.Stdout,
	}

	if cfg.Catalog.Enabled() {
		catalog, err := storage.NewDuckDBCatalogFromConfig(cfg.Catalog)
		if err != nil {
			return err
		}
		defer catalog.Close()

		opts.Catalog = catalog
	}

	var summary *export.Summary

	err = logging.LoggerMiddleware("export", func() error {
		var runErr error
		summary, runErr = export.New(opts).Run(ctx)

		return runErr
	})
	if err != nil {
		return err
	}

	logging.WithFields(map[string]interface{}{
		"endpoints":      summary.Endpoints,
		"collections":    summary.Collections,
		"without_fields": summary.NoFields,
		"run_id":         summary.RunID,
		"duration":       summary.Duration.String(),
	}).Info("Export finished")

	if cfg.Debug.Verbose {
		text, err := formatter.NewFormatter().FormatSummary(summary, formatter.FormatLong)
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(a.Stderr, text)
	}

	return nil
}
