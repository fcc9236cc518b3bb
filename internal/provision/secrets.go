package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/openmind/openmind-infra/internal/logger"
)

// SecretStore checks Secrets Manager secrets. Secret values are read only to
// enumerate their keys and are never logged or returned.
type SecretStore struct {
	client SecretsManagerAPI
}

// NewSecretStore creates a SecretStore.
func NewSecretStore(client SecretsManagerAPI) *SecretStore {
	return &SecretStore{client: client}
}

// VerifyKeys checks that the secret name holds a JSON object with every key,
// and returns the secret ARN.
func (s *SecretStore) VerifyKeys(ctx context.Context, name string, keys []string) (string, error) {
	log := logger.GetLoggerFromContext(ctx)

	desc, err := s.client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{SecretId: aws.String(name)})
	if err != nil {
		if apiErrorCode(err) == "ResourceNotFoundException" {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return "", fmt.Errorf("failed to describe secret %s: %w", name, err)
	}
	if desc.DeletedDate != nil {
		return "", fmt.Errorf("%w: %s is scheduled for deletion", ErrSecretNotFound, name)
	}

	value, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(name)})
	if err != nil {
		if apiErrorCode(err) == "ResourceNotFoundException" {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return "", fmt.Errorf("failed to read secret %s: %w", name, err)
	}
	if value.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(*value.SecretString), &fields); err != nil {
		// decoder errors can quote the value
		return "", fmt.Errorf("secret %s is not a JSON object", name)
	}

	var missing []string
	for _, key := range keys {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", &MissingKeysError{Secret: name, Keys: missing}
	}

	arn := aws.ToString(desc.ARN)
	log.Infof("Secret %s holds all %d keys", name, len(keys))
	return arn, nil
}
