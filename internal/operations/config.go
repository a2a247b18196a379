package operations

import (
	"salespipeline/internal/config"
)

// Config contains the settings the pipeline steps run with
type Config struct {
	InputFile    string
	DatabaseFile string
	ExportFile   string
	ChartFile    string

	// TableName is the relational table the records replace
	TableName string

	// Export layout
	SheetName  string
	DateFormat string

	// Report sizes
	PreviewRows        int
	VerificationSample int
}

// NewConfig creates a step configuration for the given paths with the
// fixed table name, sheet layout and report sizes.
func NewConfig(paths config.PathsConfig) *Config {
	return &Config{
		InputFile:          paths.InputFile,
		DatabaseFile:       paths.DatabaseFile,
		ExportFile:         paths.ExportFile,
		ChartFile:          paths.ChartFile,
		TableName:          config.SalesTableName,
		SheetName:          config.ExportSheetName,
		DateFormat:         config.ExportDateFormat,
		PreviewRows:        config.PreviewRows,
		VerificationSample: config.VerificationSample,
	}
}

// ConfigBuilder provides a fluent interface for building configurations
type ConfigBuilder struct {
	config *Config
}

// NewConfigBuilder creates a new configuration builder
func NewConfigBuilder(paths config.PathsConfig) *ConfigBuilder {
	return &ConfigBuilder{
		config: NewConfig(paths),
	}
}

// WithTableName sets the relational table name
func (b *ConfigBuilder) WithTableName(name string) *ConfigBuilder {
	b.config.TableName = name
	return b
}

// WithSheetName sets the exported sheet name
func (b *ConfigBuilder) WithSheetName(name string) *ConfigBuilder {
	b.config.SheetName = name
	return b
}

// WithDateFormat sets the number format of exported dates
func (b *ConfigBuilder) WithDateFormat(format string) *ConfigBuilder {
	b.config.DateFormat = format
	return b
}

// WithPreviewRows sets how many raw rows the report previews
func (b *ConfigBuilder) WithPreviewRows(n int) *ConfigBuilder {
	b.config.PreviewRows = n
	return b
}

// WithVerificationSample sets how many stored rows verification reads back
func (b *ConfigBuilder) WithVerificationSample(n int) *ConfigBuilder {
	b.config.VerificationSample = n
	return b
}

// Build returns the built configuration
func (b *ConfigBuilder) Build() *Config {
	return b.config
}
