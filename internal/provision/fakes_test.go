package provision

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

type fakeSTS struct {
	account string
	err     error
}

func (f *fakeSTS) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{
		Account: aws.String(f.account),
		Arn:     aws.String("arn:aws:iam::" + f.account + ":user/deployer"),
	}, nil
}

type fakeECR struct {
	registryID  string
	repository  string
	digests     map[string]string
	err         error
	lastRequest *ecr.DescribeImagesInput
}

func (f *fakeECR) DescribeImages(_ context.Context, params *ecr.DescribeImagesInput, _ ...func(*ecr.Options)) (*ecr.DescribeImagesOutput, error) {
	f.lastRequest = params
	if f.err != nil {
		return nil, f.err
	}
	if aws.ToString(params.RepositoryName) != f.repository {
		return nil, &smithy.GenericAPIError{Code: "RepositoryNotFoundException", Message: "repository does not exist"}
	}
	tag := aws.ToString(params.ImageIds[0].ImageTag)
	digest, ok := f.digests[tag]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "ImageNotFoundException", Message: "image does not exist"}
	}
	pushed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &ecr.DescribeImagesOutput{ImageDetails: []ecrtypes.ImageDetail{{
		RegistryId:     aws.String(f.registryID),
		RepositoryName: params.RepositoryName,
		ImageDigest:    aws.String(digest),
		ImageTags:      []string{tag},
		ImagePushedAt:  &pushed,
	}}}, nil
}

type fakeSecrets struct {
	arn     string
	value   *string
	exists  bool
	deleted bool
	err     error
}

func (f *fakeSecrets) DescribeSecret(_ context.Context, params *secretsmanager.DescribeSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !f.exists {
		return nil, &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "Secrets Manager can't find the specified secret."}
	}
	out := &secretsmanager.DescribeSecretOutput{ARN: aws.String(f.arn), Name: params.SecretId}
	if f.deleted {
		deleted := time.Now()
		out.DeletedDate = &deleted
	}
	return out, nil
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	return &secretsmanager.GetSecretValueOutput{ARN: aws.String(f.arn), Name: params.SecretId, SecretString: f.value}, nil
}

func secretJSON(keys ...string) *string {
	s := "{"
	for i, k := range keys {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%q:%q", k, "value-of-"+k)
	}
	s += "}"
	return &s
}

// fakeCloudFormation models a single stack and its most recent change set.
type fakeCloudFormation struct {
	exists  bool
	status  cftypes.StackStatus
	reason  string
	outputs []cftypes.Output

	changeSetStatus cftypes.ChangeSetStatus
	changeSetReason string
	changePages     [][]cftypes.Change

	// finalStatus is the stack status after a change set executes.
	finalStatus  cftypes.StackStatus
	finalReason  string
	deleteStatus cftypes.StackStatus

	created          *cloudformation.CreateChangeSetInput
	executed         bool
	deletedChangeSet bool
	deletedStack     bool
}

func (f *fakeCloudFormation) DescribeStacks(_ context.Context, params *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	if !f.exists {
		return nil, &smithy.GenericAPIError{
			Code:    "ValidationError",
			Message: fmt.Sprintf("Stack with id %s does not exist", aws.ToString(params.StackName)),
		}
	}
	return &cloudformation.DescribeStacksOutput{Stacks: []cftypes.Stack{{
		StackName:         params.StackName,
		StackStatus:       f.status,
		StackStatusReason: aws.String(f.reason),
		Outputs:           f.outputs,
	}}}, nil
}

func (f *fakeCloudFormation) CreateChangeSet(_ context.Context, params *cloudformation.CreateChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.CreateChangeSetOutput, error) {
	f.created = params
	if !f.exists {
		f.exists = true
		f.status = cftypes.StackStatusReviewInProgress
	}
	return &cloudformation.CreateChangeSetOutput{
		Id:      aws.String("arn:aws:cloudformation:us-east-1:123456789012:changeSet/" + aws.ToString(params.ChangeSetName)),
		StackId: aws.String("arn:aws:cloudformation:us-east-1:123456789012:stack/" + aws.ToString(params.StackName)),
	}, nil
}

func (f *fakeCloudFormation) DescribeChangeSet(_ context.Context, params *cloudformation.DescribeChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error) {
	page := 0
	if params.NextToken != nil {
		page, _ = strconv.Atoi(*params.NextToken)
	}
	out := &cloudformation.DescribeChangeSetOutput{
		ChangeSetName: params.ChangeSetName,
		Status:        f.changeSetStatus,
		StatusReason:  aws.String(f.changeSetReason),
	}
	if page < len(f.changePages) {
		out.Changes = f.changePages[page]
	}
	if page+1 < len(f.changePages) {
		out.NextToken = aws.String(strconv.Itoa(page + 1))
	}
	return out, nil
}

func (f *fakeCloudFormation) ExecuteChangeSet(_ context.Context, _ *cloudformation.ExecuteChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.ExecuteChangeSetOutput, error) {
	f.executed = true
	f.status = f.finalStatus
	f.reason = f.finalReason
	return &cloudformation.ExecuteChangeSetOutput{}, nil
}

func (f *fakeCloudFormation) DeleteChangeSet(_ context.Context, _ *cloudformation.DeleteChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.DeleteChangeSetOutput, error) {
	f.deletedChangeSet = true
	return &cloudformation.DeleteChangeSetOutput{}, nil
}

func (f *fakeCloudFormation) DeleteStack(_ context.Context, _ *cloudformation.DeleteStackInput, _ ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error) {
	f.deletedStack = true
	if f.deleteStatus != "" {
		f.status = f.deleteStatus
		return &cloudformation.DeleteStackOutput{}, nil
	}
	f.exists = false
	return &cloudformation.DeleteStackOutput{}, nil
}

func resourceChange(id, cfType string, action cftypes.ChangeAction, replacement cftypes.Replacement) cftypes.Change {
	return cftypes.Change{
		Type: cftypes.ChangeTypeResource,
		ResourceChange: &cftypes.ResourceChange{
			Action:            action,
			LogicalResourceId: aws.String(id),
			ResourceType:      aws.String(cfType),
			Replacement:       replacement,
		},
	}
}

type fakeS3 struct {
	put *s3.PutObjectInput
	err error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = params
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}
