package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/kyleking/rockset-org-metadata/internal/errors"
)

const (
	// EnvPrefix is prepended to every environment variable read by the tool
	EnvPrefix = "ROCKSET_EXPORT_"

	// DefaultAPIServer is the regional Rockset API host used by the original export script
	DefaultAPIServer = "api.usw2a1.rockset.com"

	// DefaultOutputDir is relative to the working directory
	DefaultOutputDir = "rockset_org"

	appName = "rockset-org-metadata"
)

// Config represents the application configuration
type Config struct {
	API     APIConfig     `json:"api"`
	Export  ExportConfig  `json:"export"`
	Catalog CatalogConfig `json:"catalog"`
	Logging LoggingConfig `json:"logging"`
	Debug   DebugConfig   `json:"debug"`
}

// APIConfig holds the Rockset connection settings
type APIConfig struct {
	Key    string `json:"key"    env:"API_KEY"`
	Server string `json:"server" env:"API_SERVER" validate:"required,hostname|hostname_port"`
}

// ExportConfig controls what is exported and where it is written
type ExportConfig struct {
	OutputDir string `json:"output_dir"      env:"OUTPUT_DIR" validate:"required"`
	Limit     *int   `json:"limit,omitempty" env:"LIMIT"      validate:"omitempty,min=0"` // nil means every collection
}

// CatalogConfig controls the optional DuckDB mirror of an export
type CatalogConfig struct {
	Path string `json:"path" env:"CATALOG_PATH"`
}

// Enabled reports whether a catalog path was configured
func (c CatalogConfig) Enabled() bool {
	return c.Path != ""
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"  validate:"oneof=debug info warn error"` // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT" validate:"oneof=text json"`             // text, json
	Output string `json:"output" env:"LOG_OUTPUT" validate:"oneof=stdout stderr file"`    // stdout, stderr, file
	File   string `json:"file"   env:"LOG_FILE"   validate:"required_if=Output file"`     // log file path when output is file
}

// DebugConfig represents debug configuration
type DebugConfig struct {
	Enabled  bool `json:"enabled"   env:"DEBUG"`
	Verbose  bool `json:"verbose"   env:"VERBOSE"`
	TraceAPI bool `json:"trace_api" env:"DEBUG_TRACE_API"`
}

// DefaultConfig returns the configuration used when nothing else is set
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Server: DefaultAPIServer,
		},
		Export: ExportConfig{
			OutputDir: DefaultOutputDir,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
			File:   filepath.Join(GetConfigDir(), "logs", "export.log"),
		},
	}
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides.
// Precedence is flags, then environment, then the config file, then defaults.
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	config := DefaultConfig()

	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// No envDefault tags: absent variables leave the file and default values alone
	if err := env.ParseWithOptions(config, env.Options{
		Prefix: EnvPrefix,
	}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if flagOverrides != nil {
		if err := applyFlagOverrides(config, flagOverrides); err != nil {
			return nil, fmt.Errorf("failed to apply flag overrides: %w", err)
		}
	}

	config.normalize()

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration.
// Callers only pass flags the user actually set.
func applyFlagOverrides(config *Config, overrides map[string]interface{}) error {
	for key, value := range overrides {
		switch key {
		case "api-key":
			if str, ok := value.(string); ok && str != "" {
				config.API.Key = str
			}
		case "api-server":
			if str, ok := value.(string); ok && str != "" {
				config.API.Server = str
			}
		case "output-dir":
			if str, ok := value.(string); ok && str != "" {
				config.Export.OutputDir = str
			}
		case "limit":
			n, ok := value.(int)
			if !ok {
				return fmt.Errorf("limit must be an integer, got %T", value)
			}

			config.Export.Limit = &n
		case "catalog":
			if str, ok := value.(string); ok {
				config.Catalog.Path = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "log-format":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Format = str
			}
		case "verbose":
			if b, ok := value.(bool); ok {
				config.Debug.Verbose = b
			}
		case "debug":
			if b, ok := value.(bool); ok {
				config.Debug.Enabled = b
			}
		case "trace-api":
			if b, ok := value.(bool); ok {
				config.Debug.TraceAPI = b
			}
		default:
			return fmt.Errorf("unknown flag override: %s", key)
		}
	}

	return nil
}

// normalize applies the derived settings. A collection limit turns debug mode on,
// and debug mode always logs at debug level.
func (c *Config) normalize() {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Format = strings.ToLower(c.Logging.Format)
	c.Logging.Output = strings.ToLower(c.Logging.Output)

	if c.Export.Limit != nil {
		c.Debug.Enabled = true
	}

	if c.Debug.Enabled {
		c.Logging.Level = "debug"
	}

	c.ExpandAllPaths()
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := 0; i < s.NumField(); i++ {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if s.Kind() == reflect.Bool {
			t.Set(s)
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration struct tags and converts the first
// failure into a config error naming the offending field
func validateConfig(config *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	err := validate.Struct(config)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return apperrors.Wrap(err, apperrors.ErrTypeConfig, "invalid configuration")
	}

	fieldErr := validationErrs[0]

	return apperrors.NewConfigError(describeValidationError(fieldErr), fieldErr.Namespace())
}

func describeValidationError(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "value is required"
	case "required_if":
		return "value is required when logging to a file"
	case "oneof":
		return fmt.Sprintf("invalid value %q (must be one of: %s)", fieldErr.Value(), fieldErr.Param())
	case "min":
		return fmt.Sprintf("value must be at least %s", fieldErr.Param())
	default:
		return fmt.Sprintf("invalid value %v (%s)", fieldErr.Value(), fieldErr.Tag())
	}
}

// RequireAPIKey reports a config error when no API key was supplied. Only the
// export itself needs one; inspecting config or a catalog does not.
func (c *Config) RequireAPIKey() error {
	if err := validator.New().Var(c.API.Key, "required"); err != nil {
		return apperrors.NewConfigError(
			"an API key is required (--apiKey or "+EnvPrefix+"API_KEY)", "Config.API.Key").
			WithSuggestion("Create an API key in the Rockset console under API Keys")
	}

	return nil
}

// SaveConfig writes the configuration to the config file and returns its path.
// The API key is never persisted.
func SaveConfig(config *Config) (string, error) {
	configPath := getConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrTypeFileSystem, "failed to create config directory")
	}

	toSave := *config
	toSave.API.Key = ""

	data, err := json.MarshalIndent(&toSave, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return "", apperrors.Wrapf(err, apperrors.ErrTypeFileSystem, "failed to write config file %s", configPath)
	}

	return configPath, nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv(EnvPrefix + "CONFIG"); configPath != "" {
		return ExpandPath(configPath)
	}

	return filepath.Join(GetConfigDir(), "config.json")
}

// ExpandPath expands ~ to home directory in file paths
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Export.OutputDir = ExpandPath(c.Export.OutputDir)
	c.Catalog.Path = ExpandPath(c.Catalog.Path)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// MaskedAPIKey returns the key with everything but the last four characters hidden
func (c *Config) MaskedAPIKey() string {
	const visible = 4

	key := c.API.Key
	if key == "" {
		return "(not set)"
	}

	if len(key) <= visible {
		return strings.Repeat("*", len(key))
	}

	return strings.Repeat("*", len(key)-visible) + key[len(key)-visible:]
}

// GetConfigDir returns the configuration directory
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", appName)
	}

	return filepath.Join(homeDir, ".config", appName)
}
