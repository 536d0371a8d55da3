package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kyleking/rockset-org-metadata/internal/config"
)

func TestRunConfig(t *testing.T) {
	limit := 2

	tests := []struct {
		name        string
		cfg         *config.Config
		wantErr     bool
		contains    []string
		notContains []string
	}{
		{
			name: "basic configuration display",
			cfg: &config.Config{
				API:    config.APIConfig{Key: "abcdefgh", Server: config.DefaultAPIServer},
				Export: config.ExportConfig{OutputDir: "rockset_org"},
				Logging: config.LoggingConfig{
					Level:  "info",
					Format: "text",
					Output: "stderr",
				},
			},
			contains: []string{
				"Active Configuration:",
				"Key: ****efgh",
				"Server: api.usw2a1.rockset.com",
				"Output Directory: rockset_org",
				"Collection Limit: none",
				"Path: -",
				"Level: info",
				"Enabled: false",
			},
			notContains: []string{"abcdefgh", "Raw Configuration (JSON):"},
		},
		{
			name: "configuration with debug enabled",
			cfg: &config.Config{
				API:     config.APIConfig{Key: "abcdefgh", Server: "localhost:8080"},
				Export:  config.ExportConfig{OutputDir: "/tmp/out", Limit: &limit},
				Catalog: config.CatalogConfig{Path: "/tmp/catalog.duckdb"},
				Logging: config.LoggingConfig{
					Level:  "debug",
					Format: "json",
					Output: "file",
					File:   "/tmp/test.log",
				},
				Debug: config.DebugConfig{Enabled: true, Verbose: true, TraceAPI: true},
			},
			contains: []string{
				"Collection Limit: 2",
				"Path: /tmp/catalog.duckdb",
				"File: /tmp/test.log",
				"Trace API: true",
				"Raw Configuration (JSON):",
				`"key": "****efgh"`,
			},
			notContains: []string{"abcdefgh"},
		},
		{
			name:    "nil configuration error",
			cfg:     nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			err := RunConfigWithConfig(&buf, tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RunConfigWithConfig() error = %v, wantErr %v", err, tt.wantErr)
			}

			output := buf.String()

			for _, expected := range tt.contains {
				if !strings.Contains(output, expected) {
					t.Errorf("Expected output to contain %q, got:\n%s", expected, output)
				}
			}

			for _, unexpected := range tt.notContains {
				if strings.Contains(output, unexpected) {
					t.Errorf("Expected output not to contain %q", unexpected)
				}
			}
		})
	}
}
