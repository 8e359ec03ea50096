// Package ecs adapts the Amazon ECS API for task-definition rollouts:
// registering revisions, inspecting services, issuing rolling updates
// and waiting for service stability.
package ecs

import (
	"context"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
)

// API is the subset of the ECS client this package drives. The concrete
// *ecs.Client satisfies it; tests substitute fakes.
type API interface {
	RegisterTaskDefinition(ctx context.Context, params *awsecs.RegisterTaskDefinitionInput, optFns ...func(*awsecs.Options)) (*awsecs.RegisterTaskDefinitionOutput, error)
	DescribeServices(ctx context.Context, params *awsecs.DescribeServicesInput, optFns ...func(*awsecs.Options)) (*awsecs.DescribeServicesOutput, error)
	UpdateService(ctx context.Context, params *awsecs.UpdateServiceInput, optFns ...func(*awsecs.Options)) (*awsecs.UpdateServiceOutput, error)
}

// Deployer drives ECS-side rollout operations. Operator-facing lines
// (console deep-links) go to out; diagnostics go to the logger.
type Deployer struct {
	api    API
	region string
	out    io.Writer
	logger *slog.Logger
}

// NewDeployer builds a Deployer on the resolved AWS configuration. The
// console deep-link domain is derived from cfg.Region at call time, so
// the region carried here must be the live resolved one.
func NewDeployer(cfg aws.Config, out io.Writer, logger *slog.Logger) *Deployer {
	return newDeployer(awsecs.NewFromConfig(cfg), cfg.Region, out, logger)
}

func newDeployer(api API, region string, out io.Writer, logger *slog.Logger) *Deployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deployer{
		api:    api,
		region: region,
		out:    out,
		logger: logger.With("adapter", "ecs"),
	}
}
