// Package observability builds the structured zap logger shared by the
// HTTP server, the valuation orchestrator and the CLI.
package observability
