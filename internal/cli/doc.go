// Package cli is responsible for parsing command-line arguments and handling
// process-level concerns like exit codes. It translates CLI flags into the
// application's configuration.
package cli
