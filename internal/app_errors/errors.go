package app_errors

import (
	"errors"
	"strings"
)

// Kinds. Every error returned by a service wraps exactly one of these.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
)

var kinds = []error{ErrValidation, ErrUnauthorized, ErrForbidden, ErrNotFound, ErrConflict}

type Error struct {
	kind error
	msg  string
}

func New(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.kind
}

// Kind reports which kind err belongs to. Errors without a kind are internal.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func Invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// auth
var (
	ErrUserNotFound       = New(ErrNotFound, "user not found")
	ErrEmailTaken         = New(ErrConflict, "user with this email already exists")
	ErrInvalidCredentials = New(ErrUnauthorized, "invalid email or password")
	ErrEmailNotVerified   = New(ErrForbidden, "email is not verified")
	ErrUserBanned         = New(ErrForbidden, "user is banned")
	ErrTokenNotFound      = New(ErrUnauthorized, "token not found")
	ErrTokenExpired       = New(ErrUnauthorized, "token expired")
	ErrInvalidToken       = New(ErrUnauthorized, "invalid token")
	ErrSessionRequired    = New(ErrUnauthorized, "Unauthorized")
	ErrAdminRequired      = New(ErrForbidden, "Forbidden - Admin access required")
	ErrOTPInvalid         = New(ErrValidation, "verification code is invalid or expired")
	ErrOTPAttempts        = New(ErrValidation, "too many verification attempts, request a new code")
	ErrOTPNotFound        = New(ErrNotFound, "verification code not found")
	ErrOAuthState         = New(ErrUnauthorized, "oauth state is invalid or expired")
	ErrOAuthExchange      = New(ErrUnauthorized, "github authorization failed")
	ErrOAuthEmail         = New(ErrValidation, "github account has no verified email")
)

// courses
var (
	ErrCourseNotFound     = New(ErrNotFound, "course not found")
	ErrSlugTaken          = New(ErrConflict, "course with this slug already exists")
	ErrCourseStatusHidden = New(ErrForbidden, "only published courses are listed publicly")
	ErrCourseNotPublished = New(ErrValidation, "course is not published")
	ErrTestNotFound       = New(ErrNotFound, "test not found")
)

// enrollments
var (
	ErrEnrollmentNotFound = New(ErrNotFound, "enrollment not found")
	ErrAlreadyEnrolled    = New(ErrConflict, "user is already enrolled in this course")
	ErrNotEnrollmentOwner = New(ErrForbidden, "enrollment belongs to another user")
	ErrEnrollmentInactive = New(ErrValidation, "enrollment is not active")
	ErrNoFinalProject     = New(ErrValidation, "course has no final project")
	ErrSubmissionPending  = New(ErrConflict, "final project is already under review")
	ErrSubmissionPassed   = New(ErrConflict, "final project has already passed")
	ErrNoSubmission       = New(ErrConflict, "no final project submission awaiting review")
)

// files
var (
	ErrObjectNotFound = New(ErrNotFound, "file not found")
	ErrNotImage       = New(ErrValidation, "file is not an image")
	ErrFileSize       = New(ErrValidation, "file size exceeds the limit")
	ErrEmptyFile      = New(ErrValidation, "file is empty")
	ErrNotFileOwner   = New(ErrForbidden, "file belongs to another user")
)
