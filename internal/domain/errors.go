package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a broker or backend transport error.
// Timeouts and connection failures are retriable; the execution loop
// reports them, sleeps and goes on to the next cycle.
type NetworkError struct {
	Op        string // Operation that failed (e.g., "order_book", "post_order")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// ValidationError marks malformed caller input or an invariant violation.
// It aborts the operation before any order is placed and is never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Msg
}

func (e *ValidationError) IsRetriable() bool {
	return false
}

// NewValidationError creates a non-retriable validation error
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Msg: msg}
}

var (
	// ErrOrderRejected is returned when the broker does not accept an order.
	// The loop treats it as "order not placed" and tries again next cycle.
	ErrOrderRejected = errors.New("order rejected")

	// ErrAlreadyFilled is returned by a cancel request that raced a full
	// fill. Callers treat it as a benign no-op.
	ErrAlreadyFilled = errors.New("order already filled")

	// ErrOrderNotFound is returned when an order id is unknown to the broker
	ErrOrderNotFound = errors.New("order not found")

	// ErrSumTooSmall is returned when a stop budget cannot buy a single lot
	ErrSumTooSmall = errors.New("sum is too small")

	// ErrBackendDown gates program start when the backend health check fails
	ErrBackendDown = errors.New("backend is down")
)
