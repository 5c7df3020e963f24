// Package preflight provides readiness checks for the decoder binary and the
// filesystem paths rawwatch depends on.
//
// The CLI "rawwatch check" command prints every result and exits non-zero on
// any failure. "rawwatch watch" runs the same checks at startup and logs
// failures as warnings; only the watch loop's own startup errors are fatal.
package preflight
