package domain

import "errors"

// ErrValidation classifies every rejected input. Use errors.Is to test for it.
var ErrValidation = errors.New("validation failed")

var (
	ErrNameRequired         = errors.New("name is required")
	ErrDuplicateID          = errors.New("a department with this id already exists")
	ErrDuplicateName        = errors.New("a department with this name already exists")
	ErrDuplicateCode        = errors.New("a department with this code already exists")
	ErrConfirmationRequired = errors.New("operation requires confirmation")
	ErrCourseCodeRequired   = errors.New("course code is required")
	ErrDuplicateCourse      = errors.New("a course with this code already exists in the department")
	ErrUnknownMemberKind    = errors.New("unknown member kind")
	ErrInvalidStatus        = errors.New("status must be Active or Inactive")
)

var (
	ErrDepartmentNotFound = errors.New("department not found")
	ErrCourseNotFound     = errors.New("course not found")
	ErrMemberNotFound     = errors.New("member not found")
)

// ValidationError reports which field was rejected and why.
type ValidationError struct {
	Field string
	Err   error
}

func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() []error {
	return []error{e.Err, ErrValidation}
}
