package descriptor

import (
	"fmt"

	"github.com/openmind/openmind-infra/intrinsics"
)

// ImageRef identifies a container image in the account's ECR registry.
type ImageRef struct {
	Repository string
	Tag        string
}

// String returns repository:tag.
func (i ImageRef) String() string {
	return i.Repository + ":" + i.Tag
}

// URI returns the image URI resolved by CloudFormation in the stack's account and region.
func (i ImageRef) URI() intrinsics.Sub {
	return intrinsics.Sub{String: fmt.Sprintf("${AWS::AccountId}.dkr.ecr.${AWS::Region}.${AWS::URLSuffix}/%s:%s", i.Repository, i.Tag)}
}

// RepositoryARN returns the ARN of the repository.
func (i ImageRef) RepositoryARN() intrinsics.Sub {
	return intrinsics.Sub{String: "arn:${AWS::Partition}:ecr:${AWS::Region}:${AWS::AccountId}:repository/" + i.Repository}
}

// SecretRef names a Secrets Manager secret and the JSON keys injected from it.
type SecretRef struct {
	Name string
	Keys []string
}

// ValueFrom returns the ECS ValueFrom of key. The partial ARN lets ECS resolve
// the secret without its random suffix.
func (s SecretRef) ValueFrom(key string) intrinsics.Sub {
	return intrinsics.Sub{String: fmt.Sprintf("arn:${AWS::Partition}:secretsmanager:${AWS::Region}:${AWS::AccountId}:secret:%s:%s::", s.Name, key)}
}

// ARNPattern matches the full ARN of the secret in IAM policies.
func (s SecretRef) ARNPattern() intrinsics.Sub {
	return intrinsics.Sub{String: fmt.Sprintf("arn:${AWS::Partition}:secretsmanager:${AWS::Region}:${AWS::AccountId}:secret:%s-??????", s.Name)}
}
