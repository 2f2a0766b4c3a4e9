package apperrors

import "errors"

// Error taxonomy of the grading store. Every error returned by a repository or service wraps
// exactly one of these.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")

	// ErrUniquenessViolation is returned when a write would duplicate a constrained value
	ErrUniquenessViolation = errors.New("uniqueness violation")
	// ErrReferentialIntegrity is returned when a write references a missing owner
	ErrReferentialIntegrity = errors.New("referential integrity violation")
	// ErrInvalidStateTransition is returned when a write would mutate an immutable entity
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrTokenSpaceExhausted is returned when the exam token generator runs out of attempts
	ErrTokenSpaceExhausted = errors.New("exam token space exhausted")
	// ErrConcurrentUpdate is returned when the unit of work lost a serialization race
	ErrConcurrentUpdate = errors.New("concurrent update")
)

// Entity specific errors
var (
	ErrStudentNotFound        = NewCustomError(ErrNotFound, "student not found").WithCode("STUDENT_NOT_FOUND")
	ErrStudentAlreadyExists   = NewCustomError(ErrUniquenessViolation, "student ID already exists").WithCode("STUDENT_EXISTS")
	ErrEmailAlreadyExists     = NewCustomError(ErrUniquenessViolation, "email already in use").WithCode("EMAIL_EXISTS")
	ErrGraderNotFound         = NewCustomError(ErrNotFound, "grader not found").WithCode("GRADER_NOT_FOUND")
	ErrExamNotFound           = NewCustomError(ErrNotFound, "exam not found").WithCode("EXAM_NOT_FOUND")
	ErrExamTokenTaken         = NewCustomError(ErrUniquenessViolation, "exam token already in use").WithCode("EXAM_TOKEN_TAKEN")
	ErrSubmissionNotFound     = NewCustomError(ErrNotFound, "submission not found").WithCode("SUBMISSION_NOT_FOUND")
	ErrCopyNumberTaken        = NewCustomError(ErrUniquenessViolation, "copy number already used in this exam").WithCode("COPY_NUMBER_TAKEN")
	ErrPageNotFound           = NewCustomError(ErrNotFound, "page not found").WithCode("PAGE_NOT_FOUND")
	ErrProblemNotFound        = NewCustomError(ErrNotFound, "problem not found").WithCode("PROBLEM_NOT_FOUND")
	ErrFeedbackOptionNotFound = NewCustomError(ErrNotFound, "feedback option not found").WithCode("FEEDBACK_OPTION_NOT_FOUND")
	ErrSolutionNotFound       = NewCustomError(ErrNotFound, "solution not found").WithCode("SOLUTION_NOT_FOUND")
	ErrSolutionAlreadyExists  = NewCustomError(ErrUniquenessViolation, "solution already exists for this submission and problem").WithCode("SOLUTION_EXISTS")
	ErrScanNotFound           = NewCustomError(ErrNotFound, "scan not found").WithCode("SCAN_NOT_FOUND")
	ErrWidgetNotFound         = NewCustomError(ErrNotFound, "widget not found").WithCode("WIDGET_NOT_FOUND")
	ErrWidgetAlreadyLinked    = NewCustomError(ErrUniquenessViolation, "problem already has a widget").WithCode("WIDGET_LINKED")
)

// Is returns whether err matches target or any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is matches another CustomError carrying the same code, so copies made by WithDetails
// still match their package level sentinel
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails returns a copy of the error carrying context details. Package level errors are
// shared, so they are never mutated in place.
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithCode returns a copy of the error carrying a machine readable code
func (e *CustomError) WithCode(code string) *CustomError {
	cp := *e
	cp.Code = code
	return &cp
}

// NewValidationError wraps ErrValidationFailed with a message
func NewValidationError(message string) error {
	return NewCustomError(ErrValidationFailed, message)
}

// NewInvalidStateTransitionError wraps ErrInvalidStateTransition with a message
func NewInvalidStateTransitionError(message string) error {
	return NewCustomError(ErrInvalidStateTransition, message)
}

// NewReferentialIntegrityError wraps ErrReferentialIntegrity with a message
func NewReferentialIntegrityError(message string) error {
	return NewCustomError(ErrReferentialIntegrity, message)
}
