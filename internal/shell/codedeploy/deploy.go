package codedeploy

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscodedeploy "github.com/aws/aws-sdk-go-v2/service/codedeploy"
	cdtypes "github.com/aws/aws-sdk-go-v2/service/codedeploy/types"

	"github.com/artpar/ecsdeploy/internal/core/appspec"
	"github.com/artpar/ecsdeploy/internal/core/rollout"
)

// DeploymentParams describes one staged deployment to create.
// Description and ConfigName are optional and omitted from the request
// when empty.
type DeploymentParams struct {
	Application     string
	DeploymentGroup string
	Manifest        *appspec.Manifest
	Description     string
	ConfigName      string
}

// CreateDeployment submits a staged deployment carrying the AppSpec
// manifest and returns the new deployment's id. After submission the
// CodeDeploy console deep-link is printed for the operator.
func (d *Deployer) CreateDeployment(ctx context.Context, params DeploymentParams) (string, error) {
	input := &awscodedeploy.CreateDeploymentInput{
		ApplicationName:     aws.String(params.Application),
		DeploymentGroupName: aws.String(params.DeploymentGroup),
		Revision: &cdtypes.RevisionLocation{
			RevisionType: cdtypes.RevisionLocationTypeAppSpecContent,
			AppSpecContent: &cdtypes.AppSpecContent{
				Content: aws.String(params.Manifest.Content),
				Sha256:  aws.String(params.Manifest.SHA256),
			},
		},
	}
	if params.Description != "" {
		input.Description = aws.String(params.Description)
	}
	if params.ConfigName != "" {
		input.DeploymentConfigName = aws.String(params.ConfigName)
	}

	out, err := d.api.CreateDeployment(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to create CodeDeploy deployment: %w", err)
	}
	deploymentID := aws.ToString(out.DeploymentId)

	d.logger.Info("staged deployment submitted",
		"application", params.Application,
		"deployment_group", params.DeploymentGroup,
		"deployment_id", deploymentID,
	)
	fmt.Fprintln(d.out, rollout.DeploymentConsoleMessage(d.region, deploymentID))
	return deploymentID, nil
}
