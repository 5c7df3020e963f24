// Package rawfile classifies camera RAW files and maps them to their JPEG
// output location.
//
// The mapping is flat: a RAW file anywhere under the input tree lands at
// <output>/<basename>.jpeg. Two sources sharing a basename (different
// extension or different subdirectory) therefore share one target; whichever
// is converted first wins and later ones are skipped.
package rawfile

import (
	"path/filepath"
	"strings"
)

// OutputExt is the extension given to every converted file.
const OutputExt = ".jpeg"

var rawExtensions = []string{".arw", ".dng", ".gpr"}

// Extensions returns the supported RAW extensions in lower case.
func Extensions() []string {
	out := make([]string, len(rawExtensions))
	copy(out, rawExtensions)
	return out
}

// IsRaw reports whether name ends in a supported RAW extension, ignoring case.
func IsRaw(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range rawExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// BaseName returns the file name of path without its extension.
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// OutputTarget returns the JPEG path for rawPath inside outputDir.
func OutputTarget(outputDir, rawPath string) string {
	return filepath.Join(outputDir, BaseName(rawPath)+OutputExt)
}
