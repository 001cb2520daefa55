package gateway

import "fmt"

// TransientError marks a failure worth retrying: rate limits, timeouts,
// transport faults.
type TransientError struct {
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("model call failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// FatalError marks a failure retrying cannot fix: bad credentials,
// rejected requests.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("model call failed permanently: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
