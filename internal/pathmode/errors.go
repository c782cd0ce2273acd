package pathmode

import "errors"

var (
	// ErrRequestOutstanding is returned when a new path request would
	// overlap one still pending for the same entity.
	ErrRequestOutstanding = errors.New("pathmode: path request already outstanding")

	// ErrBadTransition is returned when an operation is invoked on an
	// entity whose current mode does not allow it.
	ErrBadTransition = errors.New("pathmode: transition not allowed in current mode")
)
