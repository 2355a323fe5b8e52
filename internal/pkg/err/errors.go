package err

import (
	"fmt"
)

// Code classifies a service error for the wire and for job records
type Code string

const (
	// DefaultCode is a default service error code
	DefaultCode Code = "SERVICE_ERROR"
	// ValidationCode - bad input, no retry
	ValidationCode Code = "VALIDATION"
	// NotFoundCode - missing job/segment/file
	NotFoundCode Code = "NOT_FOUND"
	// ConflictCode - operation invalid for current job state
	ConflictCode Code = "CONFLICT"
	// PreconditionCode - result requested before the job completed
	PreconditionCode Code = "PRECONDITION_FAILED"
	// StageFailureCode - a required pipeline stage raised
	StageFailureCode Code = "STAGE_FAILURE"
	// TimeoutCode - pipeline exceeded the wall-clock deadline
	TimeoutCode Code = "TIMEOUT"
	// MaterializationCode - audio extraction/concat failure
	MaterializationCode Code = "MATERIALIZATION"
)

// E is a coded service error
type E struct {
	Code  Code
	Msg   string
	Cause error
}

func (e *E) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

// Unwrap returns the cause
func (e *E) Unwrap() error {
	return e.Cause
}

// New creates a coded error
func New(code Code, format string, args ...interface{}) *E {
	return &E{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error keeping the cause
func Wrap(cause error, code Code, format string, args ...interface{}) *E {
	return &E{Code: code, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// Validation creates a bad input error
func Validation(format string, args ...interface{}) *E {
	return New(ValidationCode, format, args...)
}

// NotFound creates a missing record error
func NotFound(format string, args ...interface{}) *E {
	return New(NotFoundCode, format, args...)
}

// Conflict creates a wrong job state error
func Conflict(format string, args ...interface{}) *E {
	return New(ConflictCode, format, args...)
}

// Precondition creates an error for a result requested too early
func Precondition(format string, args ...interface{}) *E {
	return New(PreconditionCode, format, args...)
}

// StageFailure wraps a raised stage error with the failed stage name
func StageFailure(stage string, cause error) *E {
	return Wrap(cause, StageFailureCode, "stage '%s' failed", stage)
}

// Timeout creates a deadline error
func Timeout(format string, args ...interface{}) *E {
	return New(TimeoutCode, format, args...)
}

// Materialization wraps an audio materialization failure
func Materialization(cause error, format string, args ...interface{}) *E {
	return Wrap(cause, MaterializationCode, format, args...)
}

// CodeOf extracts the code from an error, DefaultCode if not coded
func CodeOf(e error) Code {
	for e != nil {
		if ce, ok := e.(*E); ok {
			return ce.Code
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return DefaultCode
}

// Is tests whether an error carries the code
func Is(e error, code Code) bool {
	return e != nil && CodeOf(e) == code
}
