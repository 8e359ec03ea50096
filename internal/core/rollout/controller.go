// Package rollout holds the deployment-mechanism decision logic shared by
// the ECS and CodeDeploy adapters: classifying a service's deployment
// controller, computing stability-wait budgets, and building the console
// deep-links printed for operators.
package rollout

import "fmt"

// Mechanism is the rollout mechanism selected for a service. It is
// produced exactly once per invocation, by Classify, and gates every
// downstream update/deployment call.
type Mechanism int

const (
	// RollingUpdate replaces tasks in place through UpdateService.
	RollingUpdate Mechanism = iota
	// StagedDeployment hands the rollout to CodeDeploy (blue/green).
	StagedDeployment
)

func (m Mechanism) String() string {
	switch m {
	case RollingUpdate:
		return "rolling-update"
	case StagedDeployment:
		return "staged-deployment"
	default:
		return fmt.Sprintf("mechanism(%d)", int(m))
	}
}

// ServiceDescriptor is the snapshot of service state needed to pick a
// rollout mechanism: its status and, when set, its deployment
// controller type.
type ServiceDescriptor struct {
	Status         string
	ControllerType string
}

// Classify validates that the described service can be deployed to and
// selects the rollout mechanism. An absent controller and the ECS
// controller both mean a rolling update; CODE_DEPLOY means a staged
// deployment; anything else is unsupported.
func Classify(desc ServiceDescriptor) (Mechanism, error) {
	if desc.Status != "ACTIVE" {
		return 0, &ServiceStateError{Message: fmt.Sprintf("Service is %s", desc.Status)}
	}
	switch desc.ControllerType {
	case "", "ECS":
		return RollingUpdate, nil
	case "CODE_DEPLOY":
		return StagedDeployment, nil
	default:
		return 0, &ServiceStateError{
			Message: fmt.Sprintf("Unsupported deployment controller: %s", desc.ControllerType),
		}
	}
}
