package provision

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

var (
	// ErrImageNotFound is returned when the image tag or its repository is absent.
	ErrImageNotFound = errors.New("image not found")
	// ErrSecretNotFound is returned when the secret does not exist or is scheduled for deletion.
	ErrSecretNotFound = errors.New("secret not found")
	// ErrStackNotFound is returned when the stack does not exist.
	ErrStackNotFound = errors.New("stack not found")
	// ErrNoChanges is returned when applying a change set that contains no changes.
	ErrNoChanges = errors.New("no changes to apply")
)

// MissingKeysError lists the keys absent from a secret.
type MissingKeysError struct {
	Secret string
	Keys   []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("secret %s is missing keys: %s", e.Secret, strings.Join(e.Keys, ", "))
}

// DeploymentFailedError reports a stack operation that ended in a failed or
// rolled-back state.
type DeploymentFailedError struct {
	Stack  string
	Status string
	Reason string
}

func (e *DeploymentFailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("stack %s ended in %s", e.Stack, e.Status)
	}
	return fmt.Sprintf("stack %s ended in %s: %s", e.Stack, e.Status, e.Reason)
}

// apiErrorCode returns the AWS error code carried by err, or "".
func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// isStackMissing reports whether err is CloudFormation's "does not exist" validation error.
func isStackMissing(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.ErrorCode() == "ValidationError" && strings.Contains(apiErr.ErrorMessage(), "does not exist")
}
