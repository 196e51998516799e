// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates commands and flags into the application's configuration and
// derivation requests.
package cli
