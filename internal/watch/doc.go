// Package watch keeps an input tree converted.
//
// Loop runs one full scan at startup and another whenever a RAW file is
// created, written, or renamed anywhere under the input directory. Triggers
// that arrive while a scan is running collapse into a single follow-up scan,
// and scans never overlap.
package watch
