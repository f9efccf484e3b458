package mixplan

import (
	"errors"
	"fmt"
)

// ErrMixPlan matches every planning failure.
var ErrMixPlan = errors.New("mix plan error")

// MixPlanError reports an inconsistent plan input, usually a clip that the
// pipeline never produced.
type MixPlanError struct {
	Ref    string
	Reason string
	Err    error
}

func (e *MixPlanError) Error() string {
	msg := "mixplan: "
	if e.Ref != "" {
		msg += e.Ref + ": "
	}
	msg += e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MixPlanError) Unwrap() error { return e.Err }

func (e *MixPlanError) Is(target error) bool { return target == ErrMixPlan }

func (e *MixPlanError) ErrorKind() string { return "mixplan" }

func planErrorf(ref string, format string, args ...any) error {
	return &MixPlanError{Ref: ref, Reason: fmt.Sprintf(format, args...)}
}
