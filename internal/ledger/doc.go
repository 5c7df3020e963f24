// Package ledger keeps a SQLite history of conversion outcomes.
//
// The ledger is informational. Whether a RAW file still needs converting is
// decided solely by the presence of its JPEG target, so deleting the ledger
// database never causes files to be converted twice.
package ledger
