package provision

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/openmind/openmind-infra/internal/logger"
)

// ExecutionContext identifies where a stack is deployed.
type ExecutionContext struct {
	Account   string `json:"account"`
	CallerARN string `json:"caller_arn"`
	Region    string `json:"region"`
	StackName string `json:"stack_name"`
}

func (ec *ExecutionContext) String() string {
	return fmt.Sprintf("stack %s in account %s (%s)", ec.StackName, ec.Account, ec.Region)
}

// ResolveExecutionContext asks STS who the caller is.
func ResolveExecutionContext(ctx context.Context, client STSAPI, region, stackName string) (*ExecutionContext, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve caller identity: %w", err)
	}

	ec := &ExecutionContext{
		Account:   aws.ToString(out.Account),
		CallerARN: aws.ToString(out.Arn),
		Region:    region,
		StackName: stackName,
	}
	logger.GetLoggerFromContext(ctx).Infof("Execution context: account=%s caller=%s region=%s stack=%s", ec.Account, ec.CallerARN, ec.Region, ec.StackName)
	return ec, nil
}
