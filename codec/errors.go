package codec

import (
	"errors"
	"fmt"
)

// ErrCorrupt matches every decoding failure caused by the stream itself.
var ErrCorrupt = errors.New("codec: corrupt stream")

// CorruptReferenceError reports a token that does not resolve to a usable
// registry entry.
type CorruptReferenceError struct {
	Offset int    // byte offset of the token
	Index  uint64 // referenced registry index
	Count  int    // registry size
	Reason string
}

func (err *CorruptReferenceError) Error() string {
	return fmt.Sprintf("codec: offset %d: reference %d (registry of %d): %s",
		err.Offset, err.Index, err.Count, err.Reason)
}

func (err *CorruptReferenceError) Is(target error) bool { return target == ErrCorrupt }

// FormatError reports a truncated or malformed stream.
type FormatError struct {
	Offset int
	Err    error
}

func (err *FormatError) Error() string {
	return fmt.Sprintf("codec: offset %d: %v", err.Offset, err.Err)
}

func (err *FormatError) Unwrap() error { return err.Err }

func (err *FormatError) Is(target error) bool { return target == ErrCorrupt }

const (
	reasonOutOfRange = "index out of range"
	reasonForward    = "forward reference"
	reasonIneligible = "entry is not cacheable"
)
