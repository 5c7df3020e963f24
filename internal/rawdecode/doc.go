// Package rawdecode turns camera RAW files into 16-bit RGB pixel buffers.
//
// Decoding is delegated to a dcraw-compatible executable that writes a TIFF
// to stdout; the TIFF is parsed with golang.org/x/image/tiff. The decode
// parameters are fixed by a versioned Profile so tuning them never touches
// the conversion control flow.
package rawdecode
