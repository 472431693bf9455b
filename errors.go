package fspt

import (
	"errors"
	"fmt"

	"github.com/zhongdai/go-fspt/executor"
)

// Sentinel errors returned by the fitting, prediction and persistence paths.
var (
	// ErrBadArguments indicates malformed caller input: a non-positive
	// feature count, a degenerate box, an importance vector of the wrong
	// length, or a matrix whose dimensions don't match d.
	ErrBadArguments = errors.New("fspt: bad arguments")

	// ErrIOShortRead indicates Save/Load read fewer bytes than the format
	// requires at some point in the stream.
	ErrIOShortRead = errors.New("fspt: short read")

	// ErrIOShortWrite indicates Save wrote fewer bytes than intended.
	ErrIOShortWrite = errors.New("fspt: short write")

	// ErrVersionMismatch indicates a trailing config block (criterion-args
	// or score-args) was written by an incompatible format version. This is
	// recoverable, and Load does not return it: Load skips the block and
	// continues.
	ErrVersionMismatch = errors.New("fspt: version mismatch")

	// ErrCapacityExhausted re-exports executor.ErrCapacityExhausted for
	// callers that only import the fspt package.
	ErrCapacityExhausted = executor.ErrCapacityExhausted
)

// ArgumentError wraps ErrBadArguments with a descriptive message.
type ArgumentError struct {
	Detail string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%v: %s", ErrBadArguments, e.Detail)
}

func (e *ArgumentError) Unwrap() error {
	return ErrBadArguments
}

// PersistError wraps an I/O sentinel with the operation and a detail
// message, mirroring the teacher's ModelError convention.
type PersistError struct {
	Op     string
	Detail string
	Err    error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("fspt: %s: %v: %s", e.Op, e.Err, e.Detail)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
