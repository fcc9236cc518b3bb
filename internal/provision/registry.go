package provision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"

	"github.com/openmind/openmind-infra/internal/logger"
)

// ResolvedImage is an image tag pinned to its digest.
type ResolvedImage struct {
	Repository string    `json:"repository"`
	Tag        string    `json:"tag"`
	Digest     string    `json:"digest"`
	URI        string    `json:"uri"`
	PushedAt   time.Time `json:"pushed_at,omitempty"`
}

// Registry looks images up in ECR.
type Registry struct {
	client ECRAPI
	region string
}

// NewRegistry creates a Registry for the given region.
func NewRegistry(client ECRAPI, region string) *Registry {
	return &Registry{client: client, region: region}
}

// ResolveImage returns the digest-pinned URI of repository:tag.
// It fails with ErrImageNotFound when the repository or tag does not exist.
func (r *Registry) ResolveImage(ctx context.Context, repository, tag string) (*ResolvedImage, error) {
	log := logger.GetLoggerFromContext(ctx)
	log.Debugf("Resolving image %s:%s", repository, tag)

	out, err := r.client.DescribeImages(ctx, &ecr.DescribeImagesInput{
		RepositoryName: aws.String(repository),
		ImageIds:       []ecrtypes.ImageIdentifier{{ImageTag: aws.String(tag)}},
	})
	if err != nil {
		switch apiErrorCode(err) {
		case "ImageNotFoundException", "RepositoryNotFoundException":
			return nil, fmt.Errorf("%w: %s:%s", ErrImageNotFound, repository, tag)
		}
		return nil, fmt.Errorf("failed to describe image %s:%s: %w", repository, tag, err)
	}
	if len(out.ImageDetails) == 0 {
		return nil, fmt.Errorf("%w: %s:%s", ErrImageNotFound, repository, tag)
	}

	detail := out.ImageDetails[0]
	digest := aws.ToString(detail.ImageDigest)
	image := &ResolvedImage{
		Repository: repository,
		Tag:        tag,
		Digest:     digest,
		URI:        fmt.Sprintf("%s.dkr.ecr.%s.%s/%s@%s", aws.ToString(detail.RegistryId), r.region, dnsSuffix(r.region), repository, digest),
	}
	if detail.ImagePushedAt != nil {
		image.PushedAt = *detail.ImagePushedAt
	}

	log.Infof("Image %s:%s resolved to %s", repository, tag, digest)
	return image, nil
}

// dnsSuffix returns the endpoint domain of the partition region belongs to.
func dnsSuffix(region string) string {
	switch {
	case strings.HasPrefix(region, "cn-"):
		return "amazonaws.com.cn"
	case strings.HasPrefix(region, "us-isob-"):
		return "sc2s.sgov.gov"
	case strings.HasPrefix(region, "us-iso-"):
		return "c2s.ic.gov"
	default:
		return "amazonaws.com"
	}
}
