package app

import "fmt"

// ErrClass partitions pipeline failures for the audit trail. Every class is
// fatal for the message being processed; none are retried by the consumer.
type ErrClass string

const (
	// ErrClassValidation covers gateway detection failures, unsupported or
	// malformed provider payloads, and canonical envelope schema violations.
	ErrClassValidation ErrClass = "validation"

	// ErrClassNotFound covers a webhook addressed to a merchant that does not
	// exist.
	ErrClassNotFound ErrClass = "not_found"

	// ErrClassPersistence covers any database write failure; the surrounding
	// transaction is rolled back and nothing is partially visible.
	ErrClassPersistence ErrClass = "persistence"
)

// ProcessingError is the single structured error every internal failure is
// normalized to before crossing the pipeline boundary.
type ProcessingError struct {
	Class   ErrClass
	Message string
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

func validationErrorf(format string, args ...interface{}) *ProcessingError {
	return &ProcessingError{Class: ErrClassValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundErrorf(format string, args ...interface{}) *ProcessingError {
	return &ProcessingError{Class: ErrClassNotFound, Message: fmt.Sprintf(format, args...)}
}

func persistenceErrorf(format string, args ...interface{}) *ProcessingError {
	return &ProcessingError{Class: ErrClassPersistence, Message: fmt.Sprintf(format, args...)}
}
