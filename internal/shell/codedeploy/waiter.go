package codedeploy

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscodedeploy "github.com/aws/aws-sdk-go-v2/service/codedeploy"
	cdtypes "github.com/aws/aws-sdk-go-v2/service/codedeploy/types"

	"github.com/artpar/ecsdeploy/internal/core/rollout"
)

// WaitForDeployment polls the deployment until it reaches a terminal
// state or the budget is exhausted. Succeeded ends the wait; Failed and
// Stopped are terminal too and fail it immediately with the
// deployment's error information.
func (d *Deployer) WaitForDeployment(ctx context.Context, deploymentID string, budget rollout.WaitBudget) error {
	d.logger.Info("waiting for deployment to succeed",
		"deployment_id", deploymentID,
		"max_wait", budget.MaxWait,
	)

	start := time.Now()
	ticker := time.NewTicker(budget.Interval)
	defer ticker.Stop()

	for {
		if time.Since(start) > budget.MaxWait {
			return &rollout.TimeoutError{Target: "deployment " + deploymentID, MaxWait: budget.MaxWait}
		}

		done, err := d.deploymentSucceeded(ctx, deploymentID)
		if err != nil {
			return err
		}
		if done {
			d.logger.Info("deployment succeeded", "deployment_id", deploymentID)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *Deployer) deploymentSucceeded(ctx context.Context, deploymentID string) (bool, error) {
	out, err := d.api.GetDeployment(ctx, &awscodedeploy.GetDeploymentInput{
		DeploymentId: aws.String(deploymentID),
	})
	if err != nil {
		return false, fmt.Errorf("failed to get deployment %s: %w", deploymentID, err)
	}
	if out.DeploymentInfo == nil {
		return false, nil
	}

	status := out.DeploymentInfo.Status
	switch status {
	case cdtypes.DeploymentStatusSucceeded:
		return true, nil
	case cdtypes.DeploymentStatusFailed, cdtypes.DeploymentStatusStopped:
		msg := fmt.Sprintf("deployment %s ended with status %s", deploymentID, status)
		if info := out.DeploymentInfo.ErrorInformation; info != nil {
			msg = fmt.Sprintf("%s: %s: %s", msg, info.Code, aws.ToString(info.Message))
		}
		return false, fmt.Errorf("%s", msg)
	default:
		d.logger.Debug("deployment not yet terminal",
			"deployment_id", deploymentID,
			"status", status,
		)
		return false, nil
	}
}
