// Package config provides the configuration of the sales pipeline.
//
// Every input and output location is a fixed, working-directory relative
// constant (see constants.go); those constants are the defaults of Config and
// the pipeline needs nothing else to run.
//
// # Overrides
//
// Values are resolved in order of increasing precedence:
//
//  1. Default() - the fixed constants
//  2. pipeline.yaml or configs/pipeline.yaml, when present
//  3. SALES_* environment variables
//
// For example:
//
//	SALES_LOGGING_LEVEL=debug
//	SALES_LOGGING_OUTPUT=both
//	SALES_TELEMETRY_ENABLE_TRACING=false
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Tests use config.Default() or LoadFile with a temporary YAML file.
package config
