package domain

import "errors"

// Domain errors communicate specific failure conditions across layers.
// NotFound and InvalidInput are terminal for the request that raised them;
// RuntimeUnavailable and Timeout are transient and retryable.
var (
	ErrContainerNotFound   = errors.New("container not found")
	ErrStackNotFound       = errors.New("stack not found")
	ErrContainerNotRunning = errors.New("container is not running")

	ErrRuntimeUnavailable = errors.New("container runtime unavailable")
	ErrTimeout            = errors.New("runtime call timed out")

	ErrInvalidInput = errors.New("invalid input")
)

// Retryable reports whether an error is transient from the caller's point of
// view: trying again later may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrRuntimeUnavailable) || errors.Is(err, ErrTimeout)
}
