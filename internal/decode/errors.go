package decode

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated reports a sequence that ended before a container's
	// declared count was satisfied.
	ErrTruncated = errors.New("node sequence truncated")

	// ErrMalformedKey reports a map key slot holding a non-string node.
	ErrMalformedKey = errors.New("map key is not a string")

	// ErrNestingTooDeep reports containers nested beyond MaxNestingDepth.
	ErrNestingTooDeep = errors.New("container nesting too deep")
)

// UnsupportedKindError reports a node tag the decoder does not recognize.
type UnsupportedKindError struct {
	Kind Kind
}

func (e UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported node kind %s", e.Kind)
}
