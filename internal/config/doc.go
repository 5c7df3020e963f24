// Package config loads, normalizes, and validates rawwatch configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the RAWWATCH_INPUT_DIR and
// RAWWATCH_OUTPUT_DIR environment overrides. Always obtain settings through
// this package so downstream code receives absolute paths and clear
// validation errors.
package config
