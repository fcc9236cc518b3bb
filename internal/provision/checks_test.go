package provision

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmind/openmind-infra/internal/config"
	"github.com/openmind/openmind-infra/internal/logger"
)

func TestResolveExecutionContext(t *testing.T) {
	ec, err := ResolveExecutionContext(context.Background(), &fakeSTS{account: "123456789012"}, "us-east-1", "OpenMindStack")
	require.NoError(t, err)
	assert.Equal(t, &ExecutionContext{
		Account:   "123456789012",
		CallerARN: "arn:aws:iam::123456789012:user/deployer",
		Region:    "us-east-1",
		StackName: "OpenMindStack",
	}, ec)
	assert.Equal(t, "stack OpenMindStack in account 123456789012 (us-east-1)", ec.String())

	_, err = ResolveExecutionContext(context.Background(), &fakeSTS{err: errors.New("expired token")}, "us-east-1", "OpenMindStack")
	assert.ErrorContains(t, err, "expired token")
}

func TestRegistry_ResolveImagePartitionDomain(t *testing.T) {
	tests := []struct {
		region string
		uri    string
	}{
		{"eu-west-1", "123456789012.dkr.ecr.eu-west-1.amazonaws.com/openmind@sha256:abc"},
		{"cn-north-1", "123456789012.dkr.ecr.cn-north-1.amazonaws.com.cn/openmind@sha256:abc"},
		{"us-iso-east-1", "123456789012.dkr.ecr.us-iso-east-1.c2s.ic.gov/openmind@sha256:abc"},
		{"us-isob-east-1", "123456789012.dkr.ecr.us-isob-east-1.sc2s.sgov.gov/openmind@sha256:abc"},
	}
	for _, tt := range tests {
		t.Run(tt.region, func(t *testing.T) {
			client := &fakeECR{
				registryID: "123456789012",
				repository: "openmind",
				digests:    map[string]string{"v1": "sha256:abc"},
			}
			image, err := NewRegistry(client, tt.region).ResolveImage(context.Background(), "openmind", "v1")
			require.NoError(t, err)
			assert.Equal(t, tt.uri, image.URI)
		})
	}
}

func TestRegistry_ResolveImage(t *testing.T) {
	client := &fakeECR{
		registryID: "123456789012",
		repository: "openmind",
		digests:    map[string]string{"v1.2.0": "sha256:abc"},
	}
	registry := NewRegistry(client, "us-east-1")

	image, err := registry.ResolveImage(context.Background(), "openmind", "v1.2.0")
	require.NoError(t, err)
	assert.Equal(t, "sha256:abc", image.Digest)
	assert.Equal(t, "123456789012.dkr.ecr.us-east-1.amazonaws.com/openmind@sha256:abc", image.URI)
	assert.False(t, image.PushedAt.IsZero())
	assert.Equal(t, "v1.2.0", aws.ToString(client.lastRequest.ImageIds[0].ImageTag))

	tests := []struct {
		name       string
		repository string
		tag        string
	}{
		{"unknown tag", "openmind", "v9"},
		{"unknown repository", "other", "v1.2.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.ResolveImage(context.Background(), tt.repository, tt.tag)
			assert.ErrorIs(t, err, ErrImageNotFound)
		})
	}

	t.Run("other api error", func(t *testing.T) {
		failing := NewRegistry(&fakeECR{err: errors.New("throttled")}, "us-east-1")
		_, err := failing.ResolveImage(context.Background(), "openmind", "v1.2.0")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrImageNotFound)
	})
}

func TestSecretStore_VerifyKeys(t *testing.T) {
	keys := config.DefaultSecretKeys
	const arn = "arn:aws:secretsmanager:us-east-1:123456789012:secret:openmind-AbCdEf"

	t.Run("all keys present", func(t *testing.T) {
		store := NewSecretStore(&fakeSecrets{arn: arn, exists: true, value: secretJSON(keys...)})
		got, err := store.VerifyKeys(context.Background(), "openmind", keys)
		require.NoError(t, err)
		assert.Equal(t, arn, got)
	})

	t.Run("missing keys", func(t *testing.T) {
		store := NewSecretStore(&fakeSecrets{arn: arn, exists: true, value: secretJSON(keys[2:]...)})
		_, err := store.VerifyKeys(context.Background(), "openmind", keys)

		var missing *MissingKeysError
		require.ErrorAs(t, err, &missing)
		assert.ElementsMatch(t, keys[:2], missing.Keys)
		assert.Equal(t, "openmind", missing.Secret)
	})

	t.Run("not found", func(t *testing.T) {
		store := NewSecretStore(&fakeSecrets{})
		_, err := store.VerifyKeys(context.Background(), "openmind", keys)
		assert.ErrorIs(t, err, ErrSecretNotFound)
	})

	t.Run("scheduled for deletion", func(t *testing.T) {
		store := NewSecretStore(&fakeSecrets{arn: arn, exists: true, deleted: true, value: secretJSON(keys...)})
		_, err := store.VerifyKeys(context.Background(), "openmind", keys)
		assert.ErrorIs(t, err, ErrSecretNotFound)
	})

	t.Run("not a json object", func(t *testing.T) {
		plain := "hunter2"
		store := NewSecretStore(&fakeSecrets{arn: arn, exists: true, value: &plain})
		_, err := store.VerifyKeys(context.Background(), "openmind", keys)
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "hunter2")
	})

	t.Run("binary secret", func(t *testing.T) {
		store := NewSecretStore(&fakeSecrets{arn: arn, exists: true})
		_, err := store.VerifyKeys(context.Background(), "openmind", keys)
		assert.ErrorContains(t, err, "no string value")
	})
}

func TestSecretStore_NeverLogsValues(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetLevel(logrus.DebugLevel)
	ctx := logger.WithLogger(context.Background(), log)

	keys := config.DefaultSecretKeys
	store := NewSecretStore(&fakeSecrets{arn: "arn", exists: true, value: secretJSON(keys...)})
	_, err := store.VerifyKeys(ctx, "openmind", keys)
	require.NoError(t, err)

	assert.NotEmpty(t, buf.String())
	assert.NotContains(t, buf.String(), "value-of-")
}

func TestPreflight(t *testing.T) {
	cfg := config.Default()
	cfg.Registry.ImageTag = "v1.2.0"

	registry := NewRegistry(&fakeECR{
		registryID: "123456789012",
		repository: cfg.Registry.Repository,
		digests:    map[string]string{"v1.2.0": "sha256:abc"},
	}, "us-east-1")

	t.Run("passes", func(t *testing.T) {
		secrets := NewSecretStore(&fakeSecrets{arn: "arn:secret", exists: true, value: secretJSON(cfg.Secrets.Keys...)})
		result, err := Preflight(context.Background(), registry, secrets, cfg)
		require.NoError(t, err)
		assert.Equal(t, "sha256:abc", result.Image.Digest)
		assert.Equal(t, "arn:secret", result.SecretARN)
	})

	t.Run("reports every failure", func(t *testing.T) {
		broken := *cfg
		broken.Registry.ImageTag = "missing"
		secrets := NewSecretStore(&fakeSecrets{})

		_, err := Preflight(context.Background(), registry, secrets, &broken)
		assert.ErrorIs(t, err, ErrImageNotFound)
		assert.ErrorIs(t, err, ErrSecretNotFound)
	})
}
