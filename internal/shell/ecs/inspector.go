package ecs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"

	"github.com/artpar/ecsdeploy/internal/core/rollout"
)

// DescribeService fetches the current state of service in cluster and
// returns the snapshot used to classify its rollout mechanism. Lookup
// failures reported by the API (missing service and the like) become
// ServiceStateErrors carrying the failure reason.
func (d *Deployer) DescribeService(ctx context.Context, cluster, service string) (rollout.ServiceDescriptor, error) {
	out, err := d.api.DescribeServices(ctx, &awsecs.DescribeServicesInput{
		Cluster:  aws.String(cluster),
		Services: []string{service},
	})
	if err != nil {
		return rollout.ServiceDescriptor{}, fmt.Errorf("failed to describe service %s: %w", service, err)
	}

	if len(out.Failures) > 0 {
		f := out.Failures[0]
		return rollout.ServiceDescriptor{}, &rollout.ServiceStateError{
			Message: fmt.Sprintf("%s is %s", aws.ToString(f.Arn), aws.ToString(f.Reason)),
		}
	}
	if len(out.Services) == 0 {
		return rollout.ServiceDescriptor{}, &rollout.ServiceStateError{
			Message: fmt.Sprintf("service %s not found in cluster %s", service, cluster),
		}
	}

	svc := out.Services[0]
	desc := rollout.ServiceDescriptor{Status: aws.ToString(svc.Status)}
	if svc.DeploymentController != nil {
		desc.ControllerType = string(svc.DeploymentController.Type)
	}

	d.logger.Debug("described service",
		"cluster", cluster,
		"service", service,
		"status", desc.Status,
		"deployment_controller", desc.ControllerType,
	)
	return desc, nil
}
