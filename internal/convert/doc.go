// Package convert turns one RAW file into one JPEG file.
//
// The existence of the output target is the only conversion state: a target
// that is already present at the start of an attempt means the file is done,
// whatever its content. Every failure is scoped to the file being converted
// and reported through Outcome; nothing escapes Convert.
package convert
