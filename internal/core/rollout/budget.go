package rollout

import (
	"strconv"
	"time"
)

const (
	// PollInterval is the fixed delay between stability checks.
	PollInterval = 15 * time.Second

	// MaxWaitCeiling is the hard ceiling on any stability wait.
	MaxWaitCeiling = 6 * time.Hour

	// DefaultWaitMinutes applies when the caller supplies no parsable
	// wait duration.
	DefaultWaitMinutes = 30
)

// WaitBudget bounds one stability wait: a fixed poll interval and the
// maximum total time to keep polling. Immutable once computed.
type WaitBudget struct {
	Interval time.Duration
	MaxWait  time.Duration
}

// ParseWaitMinutes interprets the caller-supplied wait-for-minutes
// value, falling back to the default when it is absent or unparsable.
func ParseWaitMinutes(raw string) int {
	minutes, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultWaitMinutes
	}
	return minutes
}

// ServiceWaitBudget computes the budget for waiting on a rolling
// update: caller minutes, capped at the ceiling.
func ServiceWaitBudget(waitMinutes string) WaitBudget {
	return newBudget(ParseWaitMinutes(waitMinutes))
}

// DeploymentWaitBudget computes the budget for waiting on a staged
// deployment: caller minutes plus the deployment group's blue/green
// ready-wait and terminate-wait minutes, capped at the ceiling.
func DeploymentWaitBudget(waitMinutes string, readyWaitMinutes, terminateWaitMinutes int32) WaitBudget {
	total := ParseWaitMinutes(waitMinutes) + int(readyWaitMinutes) + int(terminateWaitMinutes)
	return newBudget(total)
}

func newBudget(minutes int) WaitBudget {
	maxWait := time.Duration(minutes) * time.Minute
	if maxWait > MaxWaitCeiling {
		maxWait = MaxWaitCeiling
	}
	return WaitBudget{Interval: PollInterval, MaxWait: maxWait}
}
