package ecs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	smithy "github.com/aws/smithy-go"
)

// RegisterTaskDefinition submits a sanitized task-definition document
// and returns the ARN of the new revision. The document uses the API's
// JSON field names; it is decoded into the typed request so only the
// fields it actually carries are sent.
func (d *Deployer) RegisterTaskDefinition(ctx context.Context, doc map[string]any) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", &RegistrationError{Err: fmt.Errorf("failed to encode task definition: %w", err)}
	}

	input := &awsecs.RegisterTaskDefinitionInput{}
	if err := json.Unmarshal(data, input); err != nil {
		return "", &RegistrationError{Err: fmt.Errorf("failed to decode task definition: %w", err)}
	}

	out, err := d.api.RegisterTaskDefinition(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			d.logger.Error("task definition registration rejected",
				"code", apiErr.ErrorCode(),
				"message", apiErr.ErrorMessage(),
			)
		}
		return "", &RegistrationError{Err: err}
	}
	if out.TaskDefinition == nil || out.TaskDefinition.TaskDefinitionArn == nil {
		return "", &RegistrationError{Err: errors.New("registration response carried no task definition ARN")}
	}

	arn := *out.TaskDefinition.TaskDefinitionArn
	d.logger.Info("registered task definition", "task_definition_arn", arn)
	return arn, nil
}
