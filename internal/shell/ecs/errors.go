package ecs

import "fmt"

// RegistrationError wraps a rejected RegisterTaskDefinition call.
// Registration is the first possible failure point of a rollout, so
// callers surface it distinctly: both this contextualized message and
// the raw cause are reported.
type RegistrationError struct {
	Err error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("Failed to register task definition in ECS: %v", e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}
