package scoring

import (
	"errors"
	"fmt"
)

// Kind classifies a scoring failure so callers can branch on the failure
// class without parsing message text.
type Kind string

const (
	// KindInvalidInput marks client-caused failures: a non-numeric field,
	// an unknown field under strict mode, or a malformed batch item.
	KindInvalidInput Kind = "invalid_input"

	// KindClassifierUnavailable marks collaborator failures: the model
	// could not be invoked or raised during inference.
	KindClassifierUnavailable Kind = "classifier_unavailable"

	// KindContractViolation marks classifier results outside the contract:
	// a probability outside [0,1] or a non-binary label.
	KindContractViolation Kind = "classifier_contract_violation"
)

// Error is a classified scoring failure. Field is set for input failures
// tied to a named field; Index is the zero-based position of the offending
// item in a batch, or -1 for single scoring.
type Error struct {
	Kind  Kind
	Field string
	Index int
	Err   error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Index >= 0 && e.Field != "":
		return fmt.Sprintf("item %d, field %s: %s", e.Index, e.Field, msg)
	case e.Index >= 0:
		return fmt.Sprintf("item %d: %s", e.Index, msg)
	case e.Field != "":
		return fmt.Sprintf("field %s: %s", e.Field, msg)
	default:
		return msg
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from err, or an empty Kind when err is
// not a scoring error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
