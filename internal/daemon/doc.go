// Package daemon coordinates the long-running rawwatch process.
//
// It wires configuration, the decoder, the conversion ledger, and the watch
// loop into a single lifecycle with flock-based locking to prevent two
// processes from converting into the same state directory. Keep conversion
// logic in the convert and scan packages; the daemon only owns startup,
// shutdown, and status reporting.
package daemon
