package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoBatch        = errors.New("no batch loaded")
	ErrRecordNotFound = errors.New("ticket not found")
	ErrAmbiguousCode  = errors.New("ticket code matches more than one row")
)

// MissingColumnsError reports every required field that could not be
// resolved from the header or a positional fallback.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// UnparseableTimestampError is raised per row; the batch is rejected.
type UnparseableTimestampError struct {
	Row   int
	Value string
}

func (e *UnparseableTimestampError) Error() string {
	return fmt.Sprintf("row %d: unparseable start time %q", e.Row, e.Value)
}

// TimestampErrors unpacks the per-row errors of a rejected batch.
func TimestampErrors(err error) []*UnparseableTimestampError {
	var out []*UnparseableTimestampError
	for err != nil {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				var te *UnparseableTimestampError
				if errors.As(e, &te) {
					out = append(out, te)
				}
			}
			return out
		}
		if te, ok := err.(*UnparseableTimestampError); ok {
			return append(out, te)
		}
		err = errors.Unwrap(err)
	}
	return out
}
