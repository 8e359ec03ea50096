package rollout

import (
	"fmt"
	"time"
)

// ServiceStateError means the target service cannot be deployed to:
// it is missing, not active, or uses a deployment controller this tool
// does not drive. The message is the complete operator-facing report.
type ServiceStateError struct {
	Message string
}

func (e *ServiceStateError) Error() string {
	return e.Message
}

// TimeoutError means the stability wait exhausted its budget. The
// update or deployment itself was submitted successfully; only the
// confirmation step failed.
type TimeoutError struct {
	Target  string
	MaxWait time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for %s to reach a stable state after %s", e.Target, e.MaxWait)
}
