package repository

import "errors"

// ErrDuplicate indicates a conditional insert lost to an existing row with the same unique key.
var ErrDuplicate = errors.New("duplicate record")

// ErrStaleVersion indicates a compare-and-swap update matched no row at the expected version.
var ErrStaleVersion = errors.New("stale version")

// ErrSubmissionClosed indicates the submission is no longer in the submitted state.
var ErrSubmissionClosed = errors.New("submission closed")
