// Package engine wires one rollout invocation end to end: register the
// task-definition revision, inspect and classify the target service,
// dispatch the rollout through the matching adapter and optionally wait
// for it to stabilize. Each run is independent and stateless.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/artpar/ecsdeploy/internal/core/appspec"
	"github.com/artpar/ecsdeploy/internal/core/rollout"
	"github.com/artpar/ecsdeploy/internal/core/taskdef"
	"github.com/artpar/ecsdeploy/internal/shell/codedeploy"
)

// ECSDeployer is the ECS adapter surface the runner drives.
type ECSDeployer interface {
	RegisterTaskDefinition(ctx context.Context, doc map[string]any) (string, error)
	DescribeService(ctx context.Context, cluster, service string) (rollout.ServiceDescriptor, error)
	UpdateService(ctx context.Context, cluster, service, taskDefArn string, desiredCount *int32, forceNewDeployment bool) error
	WaitForStable(ctx context.Context, cluster, service string, budget rollout.WaitBudget) error
}

// CodeDeployDeployer is the CodeDeploy adapter surface the runner drives.
type CodeDeployDeployer interface {
	BlueGreenWaits(ctx context.Context, application, deploymentGroup string) (ready, terminate int32, err error)
	CreateDeployment(ctx context.Context, params codedeploy.DeploymentParams) (string, error)
	WaitForDeployment(ctx context.Context, deploymentID string, budget rollout.WaitBudget) error
}

// Params are the inputs of one rollout invocation.
type Params struct {
	TaskDefinitionPath string
	WorkspaceRoot      string

	// Service selects the update phase; when empty the run stops after
	// registration.
	Service string
	Cluster string

	WaitForStability   bool
	WaitForMinutes     string
	ForceNewDeployment bool
	DesiredCount       *int32

	// Staged-deployment knobs, each independently optional.
	AppSpecPath      string
	Application      string
	DeploymentGroup  string
	Description      string
	DeploymentConfig string
}

// Result reports what one run produced.
type Result struct {
	TaskDefinitionArn string
	ServicePhaseRan   bool
	Mechanism         rollout.Mechanism
	DeploymentID      string
}

// Runner executes rollout invocations. Out receives the operator-facing
// lines (the registered revision ARN); adapters print their own console
// deep-links.
type Runner struct {
	ECS        ECSDeployer
	CodeDeploy CodeDeployDeployer
	Out        io.Writer
	Logger     *slog.Logger
}

// Run drives one rollout invocation to completion.
func (r *Runner) Run(ctx context.Context, p Params) (*Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", uuid.NewString())

	doc, err := taskdef.Load(p.TaskDefinitionPath, p.WorkspaceRoot)
	if err != nil {
		return nil, &InputError{Err: err}
	}
	sanitized := taskdef.Sanitize(doc)

	arn, err := r.ECS.RegisterTaskDefinition(ctx, sanitized)
	if err != nil {
		return nil, err
	}
	// The revision identifier is emitted as soon as registration
	// succeeds, before any later stage can fail.
	fmt.Fprintln(r.Out, arn)

	result := &Result{TaskDefinitionArn: arn}
	if p.Service == "" {
		logger.Info("no service configured, skipping update phase")
		return result, nil
	}
	result.ServicePhaseRan = true

	desc, err := r.ECS.DescribeService(ctx, p.Cluster, p.Service)
	if err != nil {
		return result, err
	}
	mechanism, err := rollout.Classify(desc)
	if err != nil {
		return result, err
	}
	result.Mechanism = mechanism
	logger.Info("classified deployment mechanism",
		"cluster", p.Cluster,
		"service", p.Service,
		"mechanism", mechanism.String(),
	)

	switch mechanism {
	case rollout.RollingUpdate:
		return result, r.runRollingUpdate(ctx, p, arn)
	case rollout.StagedDeployment:
		return result, r.runStagedDeployment(ctx, p, arn, result)
	default:
		return result, fmt.Errorf("unhandled rollout mechanism %s", mechanism)
	}
}

func (r *Runner) runRollingUpdate(ctx context.Context, p Params, arn string) error {
	if err := r.ECS.UpdateService(ctx, p.Cluster, p.Service, arn, p.DesiredCount, p.ForceNewDeployment); err != nil {
		return err
	}
	if !p.WaitForStability {
		return nil
	}
	budget := rollout.ServiceWaitBudget(p.WaitForMinutes)
	return r.ECS.WaitForStable(ctx, p.Cluster, p.Service, budget)
}

func (r *Runner) runStagedDeployment(ctx context.Context, p Params, arn string, result *Result) error {
	application := p.Application
	if application == "" {
		application = codedeploy.DefaultApplicationName(p.Cluster, p.Service)
	}
	deploymentGroup := p.DeploymentGroup
	if deploymentGroup == "" {
		deploymentGroup = codedeploy.DefaultDeploymentGroupName(p.Cluster, p.Service)
	}

	manifest, err := appspec.Build(p.AppSpecPath, p.WorkspaceRoot, arn)
	if err != nil {
		return err
	}

	deploymentID, err := r.CodeDeploy.CreateDeployment(ctx, codedeploy.DeploymentParams{
		Application:     application,
		DeploymentGroup: deploymentGroup,
		Manifest:        manifest,
		Description:     p.Description,
		ConfigName:      p.DeploymentConfig,
	})
	if err != nil {
		return err
	}
	result.DeploymentID = deploymentID

	if !p.WaitForStability {
		return nil
	}
	ready, terminate, err := r.CodeDeploy.BlueGreenWaits(ctx, application, deploymentGroup)
	if err != nil {
		return err
	}
	budget := rollout.DeploymentWaitBudget(p.WaitForMinutes, ready, terminate)
	return r.CodeDeploy.WaitForDeployment(ctx, deploymentID, budget)
}
