package trace

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedTrace is matched by every structural load failure.
	ErrMalformedTrace = errors.New("malformed trace")
	// ErrInvalidRegister is returned for register names outside a,f,b,c,d,e,h,l.
	ErrInvalidRegister = errors.New("invalid register")
)

// MalformedError names the offending part of a trace. Entry is -1 for
// trace-level problems.
type MalformedError struct {
	Entry  int
	Field  string
	Reason string
}

func (e *MalformedError) Error() string {
	where := "trace"
	if e.Entry >= 0 {
		where = fmt.Sprintf("entry %d", e.Entry)
	}
	reason := e.Reason
	if reason == "" {
		reason = "missing field"
	}
	return fmt.Sprintf("%s: %s %s %s", ErrMalformedTrace, where, reason, e.Field)
}

func (e *MalformedError) Is(target error) bool { return target == ErrMalformedTrace }

func missingField(entry int, field string) error {
	return &MalformedError{Entry: entry, Field: field}
}

func badField(entry int, field, reason string) error {
	return &MalformedError{Entry: entry, Field: field, Reason: reason}
}
