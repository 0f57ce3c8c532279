package serrors

import (
	"errors"
	"fmt"
)

// Error codes shared across the contract integrity core.
const (
	CodeValidation      = "VALIDATION"
	CodePersistence     = "PERSISTENCE"
	CodeProvider        = "PROVIDER"
	CodeIntegrity       = "INTEGRITY"
	CodeStateTransition = "STATE_TRANSITION"
)

type BaseError struct {
	Code         string
	Message      string
	LocaleKey    string
	TemplateData map[string]string
	cause        error
}

func NewError(code, message, localeKey string) *BaseError {
	return &BaseError{
		Code:      code,
		Message:   message,
		LocaleKey: localeKey,
	}
}

func (e *BaseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BaseError) Unwrap() error { return e.cause }

func (e *BaseError) WithTemplateData(data map[string]string) *BaseError {
	e.TemplateData = data
	return e
}

func (e *BaseError) Wrap(cause error) *BaseError {
	e.cause = cause
	return e
}

// IsCode reports whether err is (or wraps) a BaseError with the given code.
func IsCode(err error, code string) bool {
	var be *BaseError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

func NewValidationError(message string) *BaseError {
	return NewError(CodeValidation, message, "Errors.Validation")
}

func NewPersistenceError(message string, cause error) *BaseError {
	return NewError(CodePersistence, message, "Errors.Persistence").Wrap(cause)
}

func NewProviderError(provider, message string, cause error) *BaseError {
	return NewError(CodeProvider, message, "Errors.Provider").
		WithTemplateData(map[string]string{"provider": provider}).
		Wrap(cause)
}

func NewIntegrityError(message string) *BaseError {
	return NewError(CodeIntegrity, message, "Errors.Integrity")
}

func NewStateTransitionError(from, to string) *BaseError {
	return NewError(
		CodeStateTransition,
		fmt.Sprintf("illegal transition from %q to %q", from, to),
		"Errors.StateTransition",
	).WithTemplateData(map[string]string{"from": from, "to": to})
}
