// Package obslog provides opt-in file-based structured logging with
// rotation for the provenance engine. When enabled, JSON logs are written
// to ~/.ocrprov/logs/ for debugging and troubleshooting.
//
// By default logging is minimal and goes to stderr only.
package obslog
