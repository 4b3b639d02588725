package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure so the lifecycle controller can tell the
// customer-correctable cases apart from our own infrastructure faults.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindPermission Kind = "permission"
	KindTransient  Kind = "transient"
	KindInfra      Kind = "infrastructure"
)

// StepError is a fatal pipeline failure. Its Error string is persisted
// verbatim on the configuration record, so it carries the step name, the
// underlying provider message, and a remediation hint when one exists.
type StepError struct {
	Step string
	Kind Kind
	Hint string
	Err  error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Step, e.Err)
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

func (e *StepError) Unwrap() error { return e.Err }

func stepErr(step string, kind Kind, err error) *StepError {
	return &StepError{Step: step, Kind: kind, Err: err}
}

func stepErrHint(step string, kind Kind, hint string, err error) *StepError {
	return &StepError{Step: step, Kind: kind, Hint: hint, Err: err}
}

// KindOf extracts the failure kind, defaulting to infrastructure for errors
// that did not come out of a classified step.
func KindOf(err error) Kind {
	var se *StepError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInfra
}
