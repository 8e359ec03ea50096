package rollout

import (
	"fmt"
	"strings"
)

// ServiceConsoleMessage is the operator-facing line printed after a
// rolling update is submitted. The console domain is derived from the
// live resolved region at call time: China-partition regions use the
// amazonaws.cn console, everything else the public one.
func ServiceConsoleMessage(region, cluster, service string) string {
	domain := "console.aws.amazon.com"
	if strings.HasPrefix(region, "cn-") {
		domain = "console.amazonaws.cn"
	}
	return fmt.Sprintf(
		"Deployment started. Watch this deployment's progress in the Amazon ECS console: https://%s.%s/ecs/v2/clusters/%s/services/%s/events?region=%s",
		region, domain, cluster, service, region)
}

// DeploymentConsoleMessage is the operator-facing line printed after a
// staged deployment is submitted. CodeDeploy deployments are always
// linked through the generic public console URL.
func DeploymentConsoleMessage(region, deploymentID string) string {
	return fmt.Sprintf(
		"Deployment started. Watch this deployment's progress in the AWS CodeDeploy console: https://console.aws.amazon.com/codesuite/codedeploy/deployments/%s?region=%s",
		deploymentID, region)
}
