package provision

import (
	"context"
	"errors"

	"github.com/openmind/openmind-infra/internal/config"
	"github.com/openmind/openmind-infra/internal/logger"
)

// PreflightResult is what preflight verified.
type PreflightResult struct {
	Image     *ResolvedImage `json:"image,omitempty"`
	SecretARN string         `json:"secret_arn,omitempty"`
}

// Preflight checks that the configured image tag and every secret key exist.
// Both checks always run; their failures are joined.
func Preflight(ctx context.Context, registry *Registry, secrets *SecretStore, cfg *config.Config) (*PreflightResult, error) {
	log := logger.GetLoggerFromContext(ctx)
	log.Infof("Running preflight checks for stack %s", cfg.StackName)

	result := &PreflightResult{}
	var errs []error

	image, err := registry.ResolveImage(ctx, cfg.Registry.Repository, cfg.Registry.ImageTag)
	if err != nil {
		errs = append(errs, err)
	} else {
		result.Image = image
	}

	arn, err := secrets.VerifyKeys(ctx, cfg.Secrets.Name, cfg.Secrets.Keys)
	if err != nil {
		errs = append(errs, err)
	} else {
		result.SecretARN = arn
	}

	if err := errors.Join(errs...); err != nil {
		return result, err
	}
	log.Info("Preflight checks passed")
	return result, nil
}
