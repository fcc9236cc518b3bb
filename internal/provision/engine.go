package provision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	openmind "github.com/openmind/openmind-infra"
	"github.com/openmind/openmind-infra/internal/logger"
	"github.com/openmind/openmind-infra/internal/template"
)

// MaxTemplateBodySize is the largest template CloudFormation accepts inline.
const MaxTemplateBodySize = 51200

// DefaultTimeout bounds each wait on CloudFormation.
const DefaultTimeout = 30 * time.Minute

// ChangeSetType is whether a change set creates or updates the stack.
type ChangeSetType string

const (
	ChangeSetCreate ChangeSetType = "CREATE"
	ChangeSetUpdate ChangeSetType = "UPDATE"
)

// ChangeSet is a reviewed, not yet executed, set of stack changes.
type ChangeSet struct {
	ID        string                `json:"id,omitempty"`
	Name      string                `json:"name"`
	StackName string                `json:"stack"`
	Type      ChangeSetType         `json:"type"`
	Changes   []openmind.PlanChange `json:"changes"`
	// Empty is set when CloudFormation found nothing to change. The change
	// set has already been deleted.
	Empty bool `json:"empty"`
}

// Result converts the change set to the plan output shape.
func (c *ChangeSet) Result() openmind.PlanResult {
	return openmind.PlanResult{Stack: c.StackName, Changes: append([]openmind.PlanChange{}, c.Changes...)}
}

// Engine drives one CloudFormation stack.
type Engine struct {
	client    CloudFormationAPI
	uploader  S3API
	bucket    string
	region    string
	stackName string
	timeout   time.Duration
	pollDelay time.Duration
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTemplateBucket stages templates above MaxTemplateBodySize in bucket.
func WithTemplateBucket(uploader S3API, bucket, region string) EngineOption {
	return func(e *Engine) {
		e.uploader = uploader
		e.bucket = bucket
		e.region = region
	}
}

// WithTimeout bounds each wait on CloudFormation.
func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithPollDelay sets the minimum delay between status polls.
func WithPollDelay(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.pollDelay = d
	}
}

// NewEngine creates an Engine for stackName.
func NewEngine(client CloudFormationAPI, stackName string, opts ...EngineOption) *Engine {
	e := &Engine{
		client:    client,
		stackName: stackName,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StackName returns the managed stack name.
func (e *Engine) StackName() string {
	return e.stackName
}

// Status returns the current stack status, or ErrStackNotFound.
func (e *Engine) Status(ctx context.Context) (string, error) {
	stack, err := e.describeStack(ctx)
	if err != nil {
		return "", err
	}
	return string(stack.StackStatus), nil
}

// Plan creates a change set that moves the stack to tmpl and waits until
// CloudFormation has computed it. An empty change set is deleted and returned
// with Empty set.
func (e *Engine) Plan(ctx context.Context, tmpl *openmind.Template) (*ChangeSet, error) {
	log := logger.GetLoggerFromContext(ctx)

	body, err := template.ToJSON(tmpl)
	if err != nil {
		return nil, fmt.Errorf("failed to encode template: %w", err)
	}

	csType := ChangeSetUpdate
	stack, err := e.describeStack(ctx)
	switch {
	case errors.Is(err, ErrStackNotFound):
		csType = ChangeSetCreate
	case err != nil:
		return nil, err
	case stack.StackStatus == cftypes.StackStatusReviewInProgress:
		csType = ChangeSetCreate
	case stack.StackStatus == cftypes.StackStatusRollbackComplete:
		return nil, fmt.Errorf("stack %s is in %s and must be destroyed before it can be deployed again", e.stackName, stack.StackStatus)
	}

	cs := &ChangeSet{
		Name:      "openmind-" + uuid.NewString(),
		StackName: e.stackName,
		Type:      csType,
	}
	input := &cloudformation.CreateChangeSetInput{
		StackName:     aws.String(e.stackName),
		ChangeSetName: aws.String(cs.Name),
		ChangeSetType: cftypes.ChangeSetType(csType),
		Capabilities:  []cftypes.Capability{cftypes.CapabilityCapabilityIam, cftypes.CapabilityCapabilityNamedIam},
		ClientToken:   aws.String(uuid.NewString()),
		Description:   aws.String(tmpl.Description),
	}
	if err := e.attachTemplate(ctx, input, body); err != nil {
		return nil, err
	}

	log.Infof("Creating %s change set %s for stack %s", csType, cs.Name, e.stackName)
	out, err := e.client.CreateChangeSet(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create change set: %w", err)
	}
	cs.ID = aws.ToString(out.Id)

	waiter := cloudformation.NewChangeSetCreateCompleteWaiter(e.client, func(o *cloudformation.ChangeSetCreateCompleteWaiterOptions) {
		if e.pollDelay > 0 {
			o.MinDelay = e.pollDelay
		}
	})
	waitErr := waiter.Wait(ctx, e.changeSetInput(cs.Name, nil), e.timeout)

	desc, err := e.describeChangeSet(ctx, cs)
	if err != nil {
		return nil, err
	}
	if desc.status == cftypes.ChangeSetStatusFailed {
		// failed change sets cannot be executed and are deleted either way
		if _, err := e.client.DeleteChangeSet(ctx, &cloudformation.DeleteChangeSetInput{
			ChangeSetName: aws.String(cs.Name),
			StackName:     aws.String(e.stackName),
		}); err != nil {
			log.Warnf("Failed to delete change set %s: %v", cs.Name, err)
		}
		if isEmptyChangeSet(desc.reason) {
			log.Infof("Stack %s is up to date", e.stackName)
			cs.Empty = true
			cs.Changes = nil
			return cs, nil
		}
		return nil, fmt.Errorf("change set %s failed: %s", cs.Name, desc.reason)
	}
	if waitErr != nil {
		return nil, fmt.Errorf("waiting for change set %s: %w", cs.Name, waitErr)
	}

	log.Infof("Change set %s has %d changes", cs.Name, len(cs.Changes))
	return cs, nil
}

// Discard deletes an unexecuted change set.
func (e *Engine) Discard(ctx context.Context, cs *ChangeSet) error {
	if cs == nil || cs.Empty {
		return nil
	}
	if _, err := e.client.DeleteChangeSet(ctx, &cloudformation.DeleteChangeSetInput{
		ChangeSetName: aws.String(cs.Name),
		StackName:     aws.String(e.stackName),
	}); err != nil {
		return fmt.Errorf("failed to delete change set %s: %w", cs.Name, err)
	}
	logger.GetLoggerFromContext(ctx).Debugf("Deleted change set %s", cs.Name)
	return nil
}

// Apply executes cs and waits for the stack to settle. A rollback is
// reported as a DeploymentFailedError.
func (e *Engine) Apply(ctx context.Context, cs *ChangeSet) error {
	if cs == nil || cs.Empty {
		return ErrNoChanges
	}
	log := logger.GetLoggerFromContext(ctx)

	log.Infof("Executing change set %s", cs.Name)
	if _, err := e.client.ExecuteChangeSet(ctx, &cloudformation.ExecuteChangeSetInput{
		ChangeSetName:      aws.String(cs.Name),
		StackName:          aws.String(e.stackName),
		ClientRequestToken: aws.String(uuid.NewString()),
	}); err != nil {
		return fmt.Errorf("failed to execute change set %s: %w", cs.Name, err)
	}

	input := &cloudformation.DescribeStacksInput{StackName: aws.String(e.stackName)}
	var waitErr error
	if cs.Type == ChangeSetCreate {
		waitErr = cloudformation.NewStackCreateCompleteWaiter(e.client, func(o *cloudformation.StackCreateCompleteWaiterOptions) {
			if e.pollDelay > 0 {
				o.MinDelay = e.pollDelay
			}
		}).Wait(ctx, input, e.timeout)
	} else {
		waitErr = cloudformation.NewStackUpdateCompleteWaiter(e.client, func(o *cloudformation.StackUpdateCompleteWaiterOptions) {
			if e.pollDelay > 0 {
				o.MinDelay = e.pollDelay
			}
		}).Wait(ctx, input, e.timeout)
	}
	if waitErr != nil {
		return e.failure(ctx, waitErr)
	}

	log.Infof("Stack %s deployed", e.stackName)
	return nil
}

// Destroy deletes the stack and waits for the deletion to finish.
func (e *Engine) Destroy(ctx context.Context) error {
	log := logger.GetLoggerFromContext(ctx)

	if _, err := e.describeStack(ctx); err != nil {
		return err
	}

	log.Infof("Deleting stack %s", e.stackName)
	if _, err := e.client.DeleteStack(ctx, &cloudformation.DeleteStackInput{
		StackName:          aws.String(e.stackName),
		ClientRequestToken: aws.String(uuid.NewString()),
	}); err != nil {
		return fmt.Errorf("failed to delete stack %s: %w", e.stackName, err)
	}

	waiter := cloudformation.NewStackDeleteCompleteWaiter(e.client, func(o *cloudformation.StackDeleteCompleteWaiterOptions) {
		if e.pollDelay > 0 {
			o.MinDelay = e.pollDelay
		}
	})
	if err := waiter.Wait(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(e.stackName)}, e.timeout); err != nil {
		return e.failure(ctx, err)
	}

	log.Infof("Stack %s deleted", e.stackName)
	return nil
}

// Outputs returns the stack outputs keyed by output name.
func (e *Engine) Outputs(ctx context.Context) (map[string]string, error) {
	stack, err := e.describeStack(ctx)
	if err != nil {
		return nil, err
	}
	outputs := make(map[string]string, len(stack.Outputs))
	for _, o := range stack.Outputs {
		outputs[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return outputs, nil
}

// failure turns a waiter error into a DeploymentFailedError when the stack
// reached a terminal failed state.
func (e *Engine) failure(ctx context.Context, waitErr error) error {
	stack, err := e.describeStack(ctx)
	if err == nil && isFailedStatus(stack.StackStatus) {
		return &DeploymentFailedError{
			Stack:  e.stackName,
			Status: string(stack.StackStatus),
			Reason: aws.ToString(stack.StackStatusReason),
		}
	}
	return fmt.Errorf("waiting for stack %s: %w", e.stackName, waitErr)
}

func (e *Engine) describeStack(ctx context.Context) (*cftypes.Stack, error) {
	out, err := e.client.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(e.stackName)})
	if err != nil {
		if isStackMissing(err) {
			return nil, fmt.Errorf("%w: %s", ErrStackNotFound, e.stackName)
		}
		return nil, fmt.Errorf("failed to describe stack %s: %w", e.stackName, err)
	}
	if len(out.Stacks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrStackNotFound, e.stackName)
	}
	return &out.Stacks[0], nil
}

func (e *Engine) changeSetInput(name string, token *string) *cloudformation.DescribeChangeSetInput {
	return &cloudformation.DescribeChangeSetInput{
		ChangeSetName: aws.String(name),
		StackName:     aws.String(e.stackName),
		NextToken:     token,
	}
}

type changeSetState struct {
	status cftypes.ChangeSetStatus
	reason string
}

// describeChangeSet pages through the change set and fills cs.Changes.
func (e *Engine) describeChangeSet(ctx context.Context, cs *ChangeSet) (*changeSetState, error) {
	var (
		state changeSetState
		token *string
	)
	cs.Changes = nil
	for {
		out, err := e.client.DescribeChangeSet(ctx, e.changeSetInput(cs.Name, token))
		if err != nil {
			return nil, fmt.Errorf("failed to describe change set %s: %w", cs.Name, err)
		}
		state.status = out.Status
		state.reason = aws.ToString(out.StatusReason)
		for _, change := range out.Changes {
			if change.ResourceChange != nil {
				cs.Changes = append(cs.Changes, toPlanChange(*change.ResourceChange))
			}
		}
		if out.NextToken == nil || *out.NextToken == "" {
			break
		}
		token = out.NextToken
	}
	sort.Slice(cs.Changes, func(i, j int) bool {
		return cs.Changes[i].Resource < cs.Changes[j].Resource
	})
	return &state, nil
}

func toPlanChange(rc cftypes.ResourceChange) openmind.PlanChange {
	change := openmind.PlanChange{
		Resource: aws.ToString(rc.LogicalResourceId),
		Type:     aws.ToString(rc.ResourceType),
	}
	switch rc.Action {
	case cftypes.ChangeActionAdd:
		change.Action = openmind.ActionCreate
	case cftypes.ChangeActionRemove:
		change.Action = openmind.ActionDestroy
	default:
		change.Action = openmind.ActionUpdate
		switch rc.Replacement {
		case cftypes.ReplacementTrue:
			change.Action = openmind.ActionReplace
		case cftypes.ReplacementConditional:
			change.Action = openmind.ActionReplace
			change.Reasons = append(change.Reasons, "conditional replacement")
		}
	}
	for _, detail := range rc.Details {
		if detail.Target != nil && detail.Target.Name != nil {
			change.Reasons = append(change.Reasons, aws.ToString(detail.Target.Name))
		}
	}
	return change
}

// attachTemplate sets the template inline, or through S3 when it is too large.
func (e *Engine) attachTemplate(ctx context.Context, input *cloudformation.CreateChangeSetInput, body []byte) error {
	if len(body) <= MaxTemplateBodySize {
		input.TemplateBody = aws.String(string(body))
		return nil
	}
	if e.uploader == nil || e.bucket == "" {
		return fmt.Errorf("template is %d bytes, above the %d byte inline limit; set provision.template_bucket", len(body), MaxTemplateBodySize)
	}

	key := fmt.Sprintf("%s/%s.json", e.stackName, uuid.NewString())
	logger.GetLoggerFromContext(ctx).Infof("Staging %d byte template at s3://%s/%s", len(body), e.bucket, key)
	if _, err := e.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return fmt.Errorf("failed to stage template in %s: %w", e.bucket, err)
	}
	input.TemplateURL = aws.String(fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", e.bucket, e.region, key))
	return nil
}

func isEmptyChangeSet(reason string) bool {
	return strings.Contains(reason, "didn't contain changes") ||
		strings.Contains(reason, "No updates are to be performed")
}

func isFailedStatus(status cftypes.StackStatus) bool {
	s := string(status)
	return strings.HasSuffix(s, "_FAILED") || strings.Contains(s, "ROLLBACK")
}
