package rebuf

import (
	"errors"
	"fmt"
)

// Errors reported by the capture and replay paths. All are terminal to
// the traversal in progress: the first error aborts, nothing is
// retried, and a capture that failed leaves no usable buffer behind.
// Errors returned by an external producer or consumer are propagated
// verbatim, never wrapped or reinterpreted.
var (
	// ErrDepthExceeded is returned by the capture path when nesting
	// exceeds the configured maximum.
	ErrDepthExceeded = errors.New("rebuf: nesting depth exceeded")

	// ErrEndMismatch is returned on an end call with no matching
	// begin, or a begin/end pair of different container kinds. This is
	// a programming error in the producer adapter, not a recoverable
	// condition.
	ErrEndMismatch = errors.New("rebuf: end without matching begin")

	// ErrTruncated is returned by a replay that runs out of tokens
	// inside an open container. It cannot occur for a buffer built by
	// a completed capture.
	ErrTruncated = errors.New("rebuf: token sequence truncated")
)

// ShapeMismatchError is returned by hinted replay when the consumer's
// expected shape disagrees with the recorded token. The replay path
// never coerces: an int64 token replayed into a consumer expecting a
// string fails with this error, naming both shapes.
type ShapeMismatchError struct {
	Expected Kind
	Found    Kind
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("rebuf: shape mismatch: expected %s, found %s", e.Expected, e.Found)
}

// UnknownVariantError is returned by enum replay when the recorded
// variant matches the consumer's variant set neither by index nor by
// name.
type UnknownVariantError struct {
	Enum    string
	Index   uint32
	Variant string
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("rebuf: unknown variant %q (index %d) of enum %q", e.Variant, e.Index, e.Enum)
}

// shapeMismatch builds the error for a hint/token disagreement.
func shapeMismatch(expected, found Kind) error {
	return &ShapeMismatchError{Expected: expected, Found: found}
}
