package ecs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"

	"github.com/artpar/ecsdeploy/internal/core/rollout"
)

// UpdateService points the service at taskDefArn through the ECS
// rolling-update mechanism. desiredCount is optional: when nil the
// request carries no scaling change at all. After submission the ECS
// console deep-link is printed for the operator.
func (d *Deployer) UpdateService(ctx context.Context, cluster, service, taskDefArn string, desiredCount *int32, forceNewDeployment bool) error {
	input := &awsecs.UpdateServiceInput{
		Cluster:            aws.String(cluster),
		Service:            aws.String(service),
		TaskDefinition:     aws.String(taskDefArn),
		ForceNewDeployment: forceNewDeployment,
	}
	if desiredCount != nil {
		input.DesiredCount = desiredCount
	}

	if _, err := d.api.UpdateService(ctx, input); err != nil {
		return fmt.Errorf("failed to update service %s: %w", service, err)
	}

	d.logger.Info("service update submitted",
		"cluster", cluster,
		"service", service,
		"task_definition_arn", taskDefArn,
		"force_new_deployment", forceNewDeployment,
	)
	fmt.Fprintln(d.out, rollout.ServiceConsoleMessage(d.region, cluster, service))
	return nil
}
