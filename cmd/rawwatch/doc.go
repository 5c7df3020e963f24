// Package main hosts the rawwatch CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the watch daemon in the foreground,
// performs one-shot scans and single-file conversions, prints the conversion
// history, checks readiness, and scaffolds configuration. It centralizes
// configuration resolution and logger setup so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality to the internal packages
// first, then surface it through dedicated commands or flags here.
package main
