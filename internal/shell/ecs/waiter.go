package ecs

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"

	"github.com/artpar/ecsdeploy/internal/core/rollout"
)

// WaitForStable polls the service until it is stable or the budget is
// exhausted. Stable means an ACTIVE service with exactly one deployment
// and runningCount equal to desiredCount. Each iteration re-checks the
// elapsed time, issues one status query and sleeps the fixed interval.
func (d *Deployer) WaitForStable(ctx context.Context, cluster, service string, budget rollout.WaitBudget) error {
	d.logger.Info("waiting for service stability",
		"cluster", cluster,
		"service", service,
		"max_wait", budget.MaxWait,
	)

	start := time.Now()
	ticker := time.NewTicker(budget.Interval)
	defer ticker.Stop()

	for {
		if time.Since(start) > budget.MaxWait {
			return &rollout.TimeoutError{Target: "service " + service, MaxWait: budget.MaxWait}
		}

		stable, err := d.serviceStable(ctx, cluster, service)
		if err != nil {
			return err
		}
		if stable {
			d.logger.Info("service is stable", "cluster", cluster, "service", service)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *Deployer) serviceStable(ctx context.Context, cluster, service string) (bool, error) {
	out, err := d.api.DescribeServices(ctx, &awsecs.DescribeServicesInput{
		Cluster:  aws.String(cluster),
		Services: []string{service},
	})
	if err != nil {
		return false, fmt.Errorf("failed to describe service %s: %w", service, err)
	}
	if len(out.Services) == 0 {
		return false, &rollout.ServiceStateError{
			Message: fmt.Sprintf("service %s not found in cluster %s", service, cluster),
		}
	}

	svc := out.Services[0]
	stable := aws.ToString(svc.Status) == "ACTIVE" &&
		len(svc.Deployments) == 1 &&
		svc.RunningCount == svc.DesiredCount

	if !stable {
		d.logger.Debug("service not yet stable",
			"service", service,
			"deployments", len(svc.Deployments),
			"running_count", svc.RunningCount,
			"desired_count", svc.DesiredCount,
		)
	}
	return stable, nil
}
