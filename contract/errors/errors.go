package errors

import "fmt"

// Error codes for the bus contracts. Keep stable; used across adapters and bus.
const (
	ErrCodeInvalidPriority     = "eventbus.invalid_priority"
	ErrCodeInvalidHandler      = "eventbus.invalid_handler"
	ErrCodeInvalidSubscription = "eventbus.invalid_subscription"
	ErrCodeBusNotFound         = "eventbus.bus_not_found"
	ErrCodeBusExists           = "eventbus.bus_exists"
	ErrCodeHandlerPanic        = "eventbus.handler_panic"
	ErrCodeForwardFailed       = "eventbus.forward_failed"
	ErrCodeSerializationFailed = "eventbus.serialization_failed"
)

// Validation reasons reported by ValidationError.
const (
	ReasonPriorityNotNumber  = "priority must be a number"
	ReasonPriorityNotInteger = "priority must be an integer"
	ReasonHandlerNotFunction = "handler must be a function"
)

// Code returns an error value that carries only a code string.
// It implements error by returning the code string in Error().
func Code(code string) error { return codedError(code) }

type codedError string

func (e codedError) Error() string { return string(e) }

var (
	ErrInvalidPriority     = Code(ErrCodeInvalidPriority)
	ErrInvalidHandler      = Code(ErrCodeInvalidHandler)
	ErrInvalidSubscription = Code(ErrCodeInvalidSubscription)
	ErrBusNotFound         = Code(ErrCodeBusNotFound)
	ErrBusExists           = Code(ErrCodeBusExists)
	ErrHandlerPanic        = Code(ErrCodeHandlerPanic)
	ErrForwardFailed       = Code(ErrCodeForwardFailed)
	ErrSerializationFailed = Code(ErrCodeSerializationFailed)
)

// ValidationError reports an entry rejected at registration.
// Index is the position of the entry inside the registration call.
type ValidationError struct {
	Code   string
	Event  string
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("register %q entry %d: %s", e.Event, e.Index, e.Reason)
}

// Is matches the coded sentinel carrying the same code.
func (e *ValidationError) Is(target error) bool {
	return target == Code(e.Code)
}

// PanicError wraps a value recovered from a panicking handler.
type PanicError struct {
	Event    string
	Priority int
	Value    any
	Stack    string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic on %q (priority %d): %v", e.Event, e.Priority, e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
