// Package operations orchestrates a pipeline run as an ordered list of steps.
//
// Core Components:
//
// Manager: runs the registered steps once, in order, and prints the phase
// banners and the final summary. A failing Step before the sink phase halts
// the run. A failing sink Step is recorded and only skips the steps that
// depend on it.
//
// Step: a single unit of work with an ID, a phase and dependencies.
// The pipeline registers load, transform, storage, verify, chart and export.
//
// Registry: keeps steps in registration order and rejects registrations
// whose dependencies are unknown.
//
// State: the OperationState carries the loaded and cleaned tables between
// steps along with the status of each Step and the collected sink failures.
//
// Every run and every Step gets an OpenTelemetry span; Step durations and
// failures are recorded as metrics.
package operations
