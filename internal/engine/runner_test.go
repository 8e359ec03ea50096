package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/ecsdeploy/internal/core/rollout"
	"github.com/artpar/ecsdeploy/internal/shell/codedeploy"
)

const testArn = "arn:aws:ecs:us-east-1:123456789012:task-definition/web:9"

// =============================================================================
// Fakes
// =============================================================================

type fakeECS struct {
	registeredDoc map[string]any
	registerErr   error

	descriptor  rollout.ServiceDescriptor
	describeErr error

	updateCalled bool
	updateArn    string
	updateCount  *int32
	updateForce  bool

	waitCalled bool
	waitBudget rollout.WaitBudget
	waitErr    error
}

func (f *fakeECS) RegisterTaskDefinition(_ context.Context, doc map[string]any) (string, error) {
	f.registeredDoc = doc
	if f.registerErr != nil {
		return "", f.registerErr
	}
	return testArn, nil
}

func (f *fakeECS) DescribeService(_ context.Context, _, _ string) (rollout.ServiceDescriptor, error) {
	return f.descriptor, f.describeErr
}

func (f *fakeECS) UpdateService(_ context.Context, _, _, taskDefArn string, desiredCount *int32, force bool) error {
	f.updateCalled = true
	f.updateArn = taskDefArn
	f.updateCount = desiredCount
	f.updateForce = force
	return nil
}

func (f *fakeECS) WaitForStable(_ context.Context, _, _ string, budget rollout.WaitBudget) error {
	f.waitCalled = true
	f.waitBudget = budget
	return f.waitErr
}

type fakeCodeDeploy struct {
	ready     int32
	terminate int32
	groupErr  error

	createCalled bool
	createParams codedeploy.DeploymentParams
	createErr    error

	waitCalled bool
	waitBudget rollout.WaitBudget
	waitErr    error
}

func (f *fakeCodeDeploy) BlueGreenWaits(_ context.Context, _, _ string) (int32, int32, error) {
	return f.ready, f.terminate, f.groupErr
}

func (f *fakeCodeDeploy) CreateDeployment(_ context.Context, params codedeploy.DeploymentParams) (string, error) {
	f.createCalled = true
	f.createParams = params
	if f.createErr != nil {
		return "", f.createErr
	}
	return "d-XYZ987", nil
}

func (f *fakeCodeDeploy) WaitForDeployment(_ context.Context, _ string, budget rollout.WaitBudget) error {
	f.waitCalled = true
	f.waitBudget = budget
	return f.waitErr
}

func writeTaskDef(t *testing.T, content string) (dir, name string) {
	t.Helper()
	dir = t.TempDir()
	name = "taskdef.json"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	return dir, name
}

func testRunner(ecsFake *fakeECS, cdFake *fakeCodeDeploy) (*Runner, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &Runner{
		ECS:        ecsFake,
		CodeDeploy: cdFake,
		Out:        out,
		Logger:     slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	}, out
}

// =============================================================================
// Runner Tests
// =============================================================================

func TestRun_RegistrationOnlyWhenNoService(t *testing.T) {
	dir, name := writeTaskDef(t, `{"family":"f","revision":3,"status":"ACTIVE"}`)
	ecsFake := &fakeECS{}
	cdFake := &fakeCodeDeploy{}
	r, out := testRunner(ecsFake, cdFake)

	result, err := r.Run(context.Background(), Params{
		TaskDefinitionPath: name,
		WorkspaceRoot:      dir,
	})
	require.NoError(t, err)

	assert.Equal(t, testArn, result.TaskDefinitionArn)
	assert.False(t, result.ServicePhaseRan)
	assert.Equal(t, testArn+"\n", out.String())
	// Server-assigned fields were sanitized away before registration.
	assert.Equal(t, map[string]any{"family": "f"}, ecsFake.registeredDoc)
	assert.False(t, ecsFake.updateCalled)
	assert.False(t, cdFake.createCalled)
}

func TestRun_RollingUpdatePath(t *testing.T) {
	dir, name := writeTaskDef(t, `{"family":"f"}`)
	ecsFake := &fakeECS{descriptor: rollout.ServiceDescriptor{Status: "ACTIVE", ControllerType: "ECS"}}
	cdFake := &fakeCodeDeploy{}
	r, _ := testRunner(ecsFake, cdFake)

	count := int32(2)
	result, err := r.Run(context.Background(), Params{
		TaskDefinitionPath: name,
		WorkspaceRoot:      dir,
		Service:            "web",
		Cluster:            "prod",
		DesiredCount:       &count,
		ForceNewDeployment: true,
	})
	require.NoError(t, err)

	assert.Equal(t, rollout.RollingUpdate, result.Mechanism)
	assert.True(t, ecsFake.updateCalled)
	assert.Equal(t, testArn, ecsFake.updateArn)
	require.NotNil(t, ecsFake.updateCount)
	assert.Equal(t, int32(2), *ecsFake.updateCount)
	assert.True(t, ecsFake.updateForce)
	assert.False(t, ecsFake.waitCalled)
	assert.False(t, cdFake.createCalled)
}

func TestRun_RollingUpdateWaitBudget(t *testing.T) {
	dir, name := writeTaskDef(t, `{"family":"f"}`)
	ecsFake := &fakeECS{descriptor: rollout.ServiceDescriptor{Status: "ACTIVE"}}
	r, _ := testRunner(ecsFake, &fakeCodeDeploy{})

	_, err := r.Run(context.Background(), Params{
		TaskDefinitionPath: name,
		WorkspaceRoot:      dir,
		Service:            "web",
		Cluster:            "prod",
		WaitForStability:   true,
		WaitForMinutes:     "1000",
	})
	require.NoError(t, err)

	assert.True(t, ecsFake.waitCalled)
	assert.Equal(t, 6*time.Hour, ecsFake.waitBudget.MaxWait)
	assert.Equal(t, 15*time.Second, ecsFake.waitBudget.Interval)
}

func TestRun_StagedDeploymentPath(t *testing.T) {
	dir, name := writeTaskDef(t, `{"family":"f"}`)
	ecsFake := &fakeECS{descriptor: rollout.ServiceDescriptor{Status: "ACTIVE", ControllerType: "CODE_DEPLOY"}}
	cdFake := &fakeCodeDeploy{}
	r, _ := testRunner(ecsFake, cdFake)

	result, err := r.Run(context.Background(), Params{
		TaskDefinitionPath: name,
		WorkspaceRoot:      dir,
		Service:            "web",
		Cluster:            "prod",
	})
	require.NoError(t, err)

	assert.Equal(t, rollout.StagedDeployment, result.Mechanism)
	assert.Equal(t, "d-XYZ987", result.DeploymentID)
	assert.False(t, ecsFake.updateCalled)
	require.True(t, cdFake.createCalled)

	// Defaulted CodeDeploy names.
	assert.Equal(t, "AppECS-prod-web", cdFake.createParams.Application)
	assert.Equal(t, "DgpECS-prod-web", cdFake.createParams.DeploymentGroup)

	// The manifest references the freshly registered revision.
	require.NotNil(t, cdFake.createParams.Manifest)
	assert.Contains(t, cdFake.createParams.Manifest.Content, `"TaskDefinition":"`+testArn+`"`)
}

func TestRun_StagedDeploymentExplicitNames(t *testing.T) {
	dir, name := writeTaskDef(t, `{"family":"f"}`)
	ecsFake := &fakeECS{descriptor: rollout.ServiceDescriptor{Status: "ACTIVE", ControllerType: "CODE_DEPLOY"}}
	cdFake := &fakeCodeDeploy{}
	r, _ := testRunner(ecsFake, cdFake)

	_, err := r.Run(context.Background(), Params{
		TaskDefinitionPath: name,
		WorkspaceRoot:      dir,
		Service:            "web",
		Cluster:            "prod",
		Application:        "my-app",
		DeploymentGroup:    "my-group",
		Description:        "release",
		DeploymentConfig:   "CodeDeployDefault.ECSLinear10PercentEvery1Minutes",
	})
	require.NoError(t, err)

	assert.Equal(t, "my-app", cdFake.createParams.Application)
	assert.Equal(t, "my-group", cdFake.createParams.DeploymentGroup)
	assert.Equal(t, "release", cdFake.createParams.Description)
	assert.Equal(t, "CodeDeployDefault.ECSLinear10PercentEvery1Minutes", cdFake.createParams.ConfigName)
}

func TestRun_StagedDeploymentWaitBudgetAddsGroupWaits(t *testing.T) {
	dir, name := writeTaskDef(t, `{"family":"f"}`)
	ecsFake := &fakeECS{descriptor: rollout.ServiceDescriptor{Status: "ACTIVE", ControllerType: "CODE_DEPLOY"}}
	cdFake := &fakeCodeDeploy{ready: 60, terminate: 30}
	r, _ := testRunner(ecsFake, cdFake)

	_, err := r.Run(context.Background(), Params{
		TaskDefinitionPath: name,
		WorkspaceRoot:      dir,
		Service:            "web",
		Cluster:            "prod",
		WaitForStability:   true,
	})
	require.NoError(t, err)

	require.True(t, cdFake.waitCalled)
	assert.Equal(t, time.Duration(30+60+30)*time.Minute, cdFake.waitBudget.MaxWait)
}

func TestRun_UnsupportedController(t *testing.T) {
	dir, name := writeTaskDef(t, `{"family":"f"}`)
	ecsFake := &fakeECS{descriptor: rollout.ServiceDescriptor{Status: "ACTIVE", ControllerType: "EXTERNAL"}}
	cdFake := &fakeCodeDeploy{}
	r, _ := testRunner(ecsFake, cdFake)

	_, err := r.Run(context.Background(), Params{
		TaskDefinitionPath: name,
		WorkspaceRoot:      dir,
		Service:            "web",
		Cluster:            "prod",
	})
	require.Error(t, err)
	assert.EqualError(t, err, "Unsupported deployment controller: EXTERNAL")
	assert.False(t, ecsFake.updateCalled)
	assert.False(t, cdFake.createCalled)
}

func TestRun_RegistrationFailureShortCircuits(t *testing.T) {
	dir, name := writeTaskDef(t, `{"family":"f"}`)
	cause := errors.New("validation error")
	ecsFake := &fakeECS{
		registerErr: cause,
		descriptor:  rollout.ServiceDescriptor{Status: "ACTIVE"},
	}
	cdFake := &fakeCodeDeploy{}
	r, out := testRunner(ecsFake, cdFake)

	_, err := r.Run(context.Background(), Params{
		TaskDefinitionPath: name,
		WorkspaceRoot:      dir,
		Service:            "web",
		Cluster:            "prod",
	})
	require.ErrorIs(t, err, cause)
	assert.Empty(t, out.String())
	assert.False(t, ecsFake.updateCalled)
}

func TestRun_RevisionEmittedBeforeLaterFailure(t *testing.T) {
	dir, name := writeTaskDef(t, `{"family":"f"}`)
	ecsFake := &fakeECS{descriptor: rollout.ServiceDescriptor{Status: "DRAINING"}}
	r, out := testRunner(ecsFake, &fakeCodeDeploy{})

	_, err := r.Run(context.Background(), Params{
		TaskDefinitionPath: name,
		WorkspaceRoot:      dir,
		Service:            "web",
		Cluster:            "prod",
	})
	require.Error(t, err)
	assert.EqualError(t, err, "Service is DRAINING")
	assert.Equal(t, testArn+"\n", out.String())
}

func TestRun_MissingTaskDefinitionFile(t *testing.T) {
	r, _ := testRunner(&fakeECS{}, &fakeCodeDeploy{})

	_, err := r.Run(context.Background(), Params{
		TaskDefinitionPath: "missing.json",
		WorkspaceRoot:      t.TempDir(),
	})
	require.Error(t, err)

	var inputErr *InputError
	assert.ErrorAs(t, err, &inputErr)
}
