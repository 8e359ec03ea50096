package codedeploy

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscodedeploy "github.com/aws/aws-sdk-go-v2/service/codedeploy"
)

// BlueGreenWaits returns the deployment group's configured ready-wait
// and terminate-blue-instances wait, in minutes. Groups without a
// blue/green configuration report zero for both. The values feed the
// stability-wait budget, which is this call's only consumer.
func (d *Deployer) BlueGreenWaits(ctx context.Context, application, deploymentGroup string) (ready, terminate int32, err error) {
	out, err := d.api.GetDeploymentGroup(ctx, &awscodedeploy.GetDeploymentGroupInput{
		ApplicationName:     aws.String(application),
		DeploymentGroupName: aws.String(deploymentGroup),
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get deployment group %s: %w", deploymentGroup, err)
	}

	info := out.DeploymentGroupInfo
	if info == nil || info.BlueGreenDeploymentConfiguration == nil {
		return 0, 0, nil
	}
	bg := info.BlueGreenDeploymentConfiguration
	if bg.DeploymentReadyOption != nil {
		ready = bg.DeploymentReadyOption.WaitTimeInMinutes
	}
	if bg.TerminateBlueInstancesOnDeploymentSuccess != nil {
		terminate = bg.TerminateBlueInstancesOnDeploymentSuccess.TerminationWaitTimeInMinutes
	}
	return ready, terminate, nil
}
