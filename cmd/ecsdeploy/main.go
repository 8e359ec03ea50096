// Command ecsdeploy registers a task-definition revision and rolls it
// out to an ECS service, either in place through the ECS rolling-update
// mechanism or as a blue/green deployment through CodeDeploy, depending
// on the service's deployment controller.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/artpar/ecsdeploy/internal/core/rollout"
	"github.com/artpar/ecsdeploy/internal/engine"
	"github.com/artpar/ecsdeploy/internal/shell/codedeploy"
	"github.com/artpar/ecsdeploy/internal/shell/ecs"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess           = 0
	ExitConfigError       = 1
	ExitRegistrationError = 2
	ExitServiceStateError = 3
	ExitDeploymentError   = 4
	ExitWaitTimeout       = 5
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Print version and exit")

	taskDefinition := flag.String("task-definition", "", "Path to the task definition file")
	service := flag.String("service", "", "ECS service to update (registration only when empty)")
	cluster := flag.String("cluster", "", "ECS cluster name")
	wait := flag.Bool("wait", false, "Wait for the rollout to stabilize")
	waitMinutes := flag.String("wait-minutes", "", "Maximum minutes to wait for stability")
	forceNewDeployment := flag.Bool("force-new-deployment", false, "Force a new deployment of the service")
	desiredCount := flag.String("desired-count", "", "Desired task count (omitted from the update when unset)")
	appSpec := flag.String("appspec", "", "Path to the CodeDeploy AppSpec template")
	cdApplication := flag.String("codedeploy-application", "", "CodeDeploy application name")
	cdDeploymentGroup := flag.String("codedeploy-deployment-group", "", "CodeDeploy deployment group name")
	cdDescription := flag.String("codedeploy-description", "", "CodeDeploy deployment description")
	cdConfig := flag.String("codedeploy-config", "", "CodeDeploy deployment config name")
	region := flag.String("region", "", "AWS region")
	workspaceRoot := flag.String("workspace-root", "", "Base directory for relative input paths")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ecsdeploy %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}

	// Explicit flags win over config file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "task-definition":
			cfg.Deploy.TaskDefinition = *taskDefinition
		case "service":
			cfg.Deploy.Service = *service
		case "cluster":
			cfg.Deploy.Cluster = *cluster
		case "wait":
			cfg.Deploy.WaitForStability = *wait
		case "wait-minutes":
			cfg.Deploy.WaitForMinutes = *waitMinutes
		case "force-new-deployment":
			cfg.Deploy.ForceNewDeployment = *forceNewDeployment
		case "desired-count":
			cfg.Deploy.DesiredCount = *desiredCount
		case "appspec":
			cfg.CodeDeploy.AppSpec = *appSpec
		case "codedeploy-application":
			cfg.CodeDeploy.Application = *cdApplication
		case "codedeploy-deployment-group":
			cfg.CodeDeploy.DeploymentGroup = *cdDeploymentGroup
		case "codedeploy-description":
			cfg.CodeDeploy.Description = *cdDescription
		case "codedeploy-config":
			cfg.CodeDeploy.DeploymentConfig = *cdConfig
		case "region":
			cfg.AWS.Region = *region
		case "workspace-root":
			cfg.Deploy.WorkspaceRoot = *workspaceRoot
		}
	})

	logger := SetupLogger(cfg)

	if cfg.Deploy.TaskDefinition == "" {
		fmt.Fprintln(os.Stderr, "task definition path is required")
		return ExitConfigError
	}

	ctx := context.Background()
	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}

	logger.Info("starting rollout",
		"version", Version,
		"region", awsCfg.Region,
		"cluster", cfg.Deploy.Cluster,
		"service", cfg.Deploy.Service,
	)

	runner := &engine.Runner{
		ECS:        ecs.NewDeployer(awsCfg, os.Stdout, logger),
		CodeDeploy: codedeploy.NewDeployer(awsCfg, os.Stdout, logger),
		Out:        os.Stdout,
		Logger:     logger,
	}

	result, err := runner.Run(ctx, engine.Params{
		TaskDefinitionPath: cfg.Deploy.TaskDefinition,
		WorkspaceRoot:      cfg.Deploy.WorkspaceRoot,
		Service:            cfg.Deploy.Service,
		Cluster:            cfg.Deploy.Cluster,
		WaitForStability:   cfg.Deploy.WaitForStability,
		WaitForMinutes:     cfg.Deploy.WaitForMinutes,
		ForceNewDeployment: cfg.Deploy.ForceNewDeployment,
		DesiredCount:       cfg.Deploy.DesiredCountValue(),
		AppSpecPath:        cfg.CodeDeploy.AppSpec,
		Application:        cfg.CodeDeploy.Application,
		DeploymentGroup:    cfg.CodeDeploy.DeploymentGroup,
		Description:        cfg.CodeDeploy.Description,
		DeploymentConfig:   cfg.CodeDeploy.DeploymentConfig,
	})
	if err != nil {
		return reportFailure(err)
	}

	if result.DeploymentID != "" {
		logger.Info("rollout submitted", "deployment_id", result.DeploymentID)
	}
	return ExitSuccess
}

// reportFailure writes the failure to stderr and picks the exit code
// for the error kind.
func reportFailure(err error) int {
	var regErr *ecs.RegistrationError
	if errors.As(err, &regErr) {
		// Registration aborts the run entirely; both the contextualized
		// message and the raw cause are operator-relevant.
		fmt.Fprintln(os.Stderr, regErr.Error())
		if cause := regErr.Unwrap(); cause != nil {
			fmt.Fprintln(os.Stderr, cause.Error())
		}
		return ExitRegistrationError
	}

	var stateErr *rollout.ServiceStateError
	if errors.As(err, &stateErr) {
		fmt.Fprintln(os.Stderr, stateErr.Error())
		return ExitServiceStateError
	}

	var timeoutErr *rollout.TimeoutError
	if errors.As(err, &timeoutErr) {
		// The update or deployment itself was submitted successfully;
		// only the stability confirmation failed.
		fmt.Fprintln(os.Stderr, timeoutErr.Error())
		return ExitWaitTimeout
	}

	var inputErr *engine.InputError
	if errors.As(err, &inputErr) {
		fmt.Fprintln(os.Stderr, inputErr.Error())
		return ExitConfigError
	}

	fmt.Fprintln(os.Stderr, err.Error())
	return ExitDeploymentError
}

// loadAWSConfig resolves region and credentials. Configured static
// credentials take precedence over the default chain.
func loadAWSConfig(ctx context.Context, cfg *Config) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWS.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWS.Region))
	}
	if cfg.AWS.AccessKeyID != "" && cfg.AWS.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	if awsCfg.Region == "" {
		return aws.Config{}, errors.New("AWS region is not configured")
	}
	return awsCfg, nil
}
