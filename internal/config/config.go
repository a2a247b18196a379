package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete pipeline configuration
type Config struct {
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// PathsConfig contains the input and output file locations
type PathsConfig struct {
	InputFile    string `yaml:"input_file" envconfig:"INPUT_FILE" validate:"required"`
	DatabaseFile string `yaml:"database_file" envconfig:"DATABASE_FILE" validate:"required"`
	ExportFile   string `yaml:"export_file" envconfig:"EXPORT_FILE" validate:"required,nefield=InputFile"`
	ChartFile    string `yaml:"chart_file" envconfig:"CHART_FILE" validate:"required"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// TelemetryConfig controls the metrics textfile and the span log
type TelemetryConfig struct {
	EnableMetrics bool   `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	EnableTracing bool   `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	MetricsFile   string `yaml:"metrics_file" envconfig:"METRICS_FILE" validate:"required_if=EnableMetrics true"`
	TraceFile     string `yaml:"trace_file" envconfig:"TRACE_FILE" validate:"required_if=EnableTracing true"`
}

// Load builds the configuration from defaults, an optional pipeline.yaml,
// and SALES_* environment variables, in increasing order of precedence.
// Variables from a .env file in the working directory count as environment
// variables unless already set. With neither file nor environment present
// the fixed defaults are used.
func Load() (*Config, error) {
	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", DotEnvFile, err)
	}
	return LoadFile(getConfigFilePath())
}

// loadDotEnv exports the variables of a dotenv file that are not already set.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// LoadFile is like Load but reads the YAML overrides from filePath.
// An empty filePath skips the file layer.
func LoadFile(filePath string) (*Config, error) {
	cfg := Default()

	if filePath != "" {
		if err := loadFromFile(filePath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Fields without a matching variable keep their current value
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration and fills derived defaults
func (c *Config) validate() error {
	if c.Logging.Format != DefaultLogFormat {
		// Log records are always JSON
		c.Logging.Format = DefaultLogFormat
	}
	c.DerivePaths()

	return validator.New().Struct(c)
}

// DerivePaths places the log, metrics and trace files under LogsDir unless
// they were set explicitly.
func (c *Config) DerivePaths() {
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(c.Paths.LogsDir, LogFileName)
	}
	if c.Telemetry.MetricsFile == "" {
		c.Telemetry.MetricsFile = filepath.Join(c.Paths.LogsDir, MetricsFileName)
	}
	if c.Telemetry.TraceFile == "" {
		c.Telemetry.TraceFile = filepath.Join(c.Paths.LogsDir, TraceFileName)
	}
}

// EnsureDirectories creates the directories the pipeline writes into
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.LogsDir,
		filepath.Dir(c.Paths.DatabaseFile),
		filepath.Dir(c.Paths.ExportFile),
		filepath.Dir(c.Paths.ChartFile),
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"pipeline.yaml",
		"configs/pipeline.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use defaults and env vars only
}

// Default returns the fixed pipeline configuration before derived paths are filled
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			InputFile:    DefaultInputFile,
			DatabaseFile: DefaultDatabaseFile,
			ExportFile:   DefaultExportFile,
			ChartFile:    DefaultChartFile,
			LogsDir:      DefaultLogsDir,
		},
		// Log, metrics and trace files are placed under LogsDir by DerivePaths
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
			Output: DefaultLogOutput,
		},
		Telemetry: TelemetryConfig{
			EnableMetrics: true,
			EnableTracing: true,
		},
	}
}
