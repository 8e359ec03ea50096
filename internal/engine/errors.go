package engine

import "fmt"

// InputError means a caller-supplied input could not be loaded or
// parsed before any API call was made. It maps to the configuration
// exit code rather than a rollout failure.
type InputError struct {
	Err error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %v", e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}
