// Package codedeploy adapts the AWS CodeDeploy API for staged
// (blue/green) ECS rollouts: reading deployment-group timing
// configuration, creating deployments from an AppSpec manifest and
// waiting for them to finish.
package codedeploy

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscodedeploy "github.com/aws/aws-sdk-go-v2/service/codedeploy"
)

// appPrefix and groupPrefix build the conventional CodeDeploy resource
// names for an ECS service when none are configured explicitly.
const (
	appPrefix   = "AppECS"
	groupPrefix = "DgpECS"
)

// API is the subset of the CodeDeploy client this package drives.
type API interface {
	CreateDeployment(ctx context.Context, params *awscodedeploy.CreateDeploymentInput, optFns ...func(*awscodedeploy.Options)) (*awscodedeploy.CreateDeploymentOutput, error)
	GetDeployment(ctx context.Context, params *awscodedeploy.GetDeploymentInput, optFns ...func(*awscodedeploy.Options)) (*awscodedeploy.GetDeploymentOutput, error)
	GetDeploymentGroup(ctx context.Context, params *awscodedeploy.GetDeploymentGroupInput, optFns ...func(*awscodedeploy.Options)) (*awscodedeploy.GetDeploymentGroupOutput, error)
}

// Deployer drives CodeDeploy-side rollout operations.
type Deployer struct {
	api    API
	region string
	out    io.Writer
	logger *slog.Logger
}

// NewDeployer builds a Deployer on the resolved AWS configuration.
func NewDeployer(cfg aws.Config, out io.Writer, logger *slog.Logger) *Deployer {
	return newDeployer(awscodedeploy.NewFromConfig(cfg), cfg.Region, out, logger)
}

func newDeployer(api API, region string, out io.Writer, logger *slog.Logger) *Deployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deployer{
		api:    api,
		region: region,
		out:    out,
		logger: logger.With("adapter", "codedeploy"),
	}
}

// DefaultApplicationName is the conventional CodeDeploy application
// name for an ECS service.
func DefaultApplicationName(cluster, service string) string {
	return fmt.Sprintf("%s-%s-%s", appPrefix, cluster, service)
}

// DefaultDeploymentGroupName is the conventional deployment-group name
// for an ECS service.
func DefaultDeploymentGroupName(cluster, service string) string {
	return fmt.Sprintf("%s-%s-%s", groupPrefix, cluster, service)
}
