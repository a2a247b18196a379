package config

// Application constants - fixed names used by the sales pipeline
const (
	// Application Info
	AppName    = "Sales Data Pipeline"
	AppVersion = "1.0.0"

	// Environment variable prefix (SALES_LOGGING_LEVEL, SALES_PATHS_INPUT_FILE, ...)
	EnvPrefix = "SALES"

	// Optional dotenv file read by Load
	DotEnvFile = ".env"

	// Input and output files, relative to the working directory
	DefaultInputFile    = "Sales_Data_Pipeline.xlsx"
	DefaultDatabaseFile = "sales_data.db"
	DefaultExportFile   = "Cleaned_Sales_Data.xlsx"
	DefaultChartFile    = "revenue_boxplot.png"
	DefaultLogsDir      = "logs"

	// Relational store
	SalesTableName = "sales"

	// Export
	ExportSheetName  = "Sheet1"
	ExportDateFormat = "yyyy-mm-dd hh:mm:ss"

	// Report
	PreviewRows        = 5
	VerificationSample = 3

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogOutput = "file"

	// File names under the logs directory, used when no explicit path is set
	LogFileName     = "pipeline.log"
	MetricsFileName = "pipeline.prom"
	TraceFileName   = "trace.json"
)
