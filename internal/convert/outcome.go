package convert

import (
	"errors"
	"time"
)

// Status is the result class of a conversion attempt.
type Status int

const (
	StatusSkipped Status = iota
	StatusConverted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusConverted:
		return "converted"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome describes a single conversion attempt.
type Outcome struct {
	Status         Status
	RawPath        string
	OutputPath     string
	RawSize        int64
	RawModTime     time.Time
	ProfileVersion string
	Duration       time.Duration
	Err            error
}

// ErrorKind classifies Err for storage and display.
func (o Outcome) ErrorKind() string {
	if o.Err == nil {
		return ""
	}
	var decodeErr *DecodeError
	if errors.As(o.Err, &decodeErr) {
		return "decode"
	}
	var encodeErr *EncodeError
	if errors.As(o.Err, &encodeErr) {
		return "encode"
	}
	return "other"
}
