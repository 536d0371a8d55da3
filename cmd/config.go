package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/rockset-org-metadata/internal/config"
	"github.com/kyleking/rockset-org-metadata/internal/errors"
	"github.com/kyleking/rockset-org-metadata/internal/formatter"
)

func ConfigCommand(a *App) *cli.Command {
	return &cli.Command{
		Name:        "config",
		Usage:       "Display the active configuration",
		Description: `Show the configuration merged from the config file, environment variables and command-line flags. The API key is masked.

With --save the merged configuration is written back to the config file, without the API key.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "save", Usage: "Write the merged configuration to the config file"},
		},
		Before: loadConfigBefore,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := getConfigFromContext(ctx)
			if err := RunConfigWithConfig(a.Stdout, cfg); err != nil {
				return err
			}

			if !cmd.Bool("save") {
				return nil
			}

			path, err := config.SaveConfig(cfg)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(a.Stdout, "\nConfiguration saved to %s (API key not stored)\n", path)

			return nil
		},
	}
}

// RunConfigWithConfig prints cfg to w
func RunConfigWithConfig(w io.Writer, cfg *config.Config) error {
	if cfg == nil {
		return errors.NewConfigError("failed to load configuration", "")
	}

	_, _ = fmt.Fprintln(w, formatter.NewFormatter().FormatConfig(cfg))

	// Show raw JSON if debug is enabled
	if cfg.Debug.Enabled {
		masked := *cfg
		masked.API.Key = cfg.MaskedAPIKey()

		jsonData, err := json.MarshalIndent(&masked, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}

		_, _ = fmt.Fprintln(w, "\nRaw Configuration (JSON):")
		_, _ = fmt.Fprintln(w, string(jsonData))
	}

	return nil
}
