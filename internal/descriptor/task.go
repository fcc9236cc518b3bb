package descriptor

import (
	"strconv"

	"github.com/openmind/openmind-infra/internal/stack"
	"github.com/openmind/openmind-infra/intrinsics"
	"github.com/openmind/openmind-infra/resources/ecs"
	"github.com/openmind/openmind-infra/resources/iam"
	"github.com/openmind/openmind-infra/resources/logs"
)

// TaskSpec sizes the Fargate task and its single container.
type TaskSpec struct {
	Family              string
	CPU                 int
	MemoryMiB           int
	ContainerPort       int
	EphemeralStorageGiB int
	LogRetentionDays    int
	LogStreamPrefix     string
}

func addTaskDefinition(s *stack.Stack, d *Descriptor) intrinsics.Ref {
	logGroup := s.Add(LogGroupID, logs.LogGroup{
		RetentionInDays: d.Task.LogRetentionDays,
	}, stack.Retain())

	taskRole := s.Add(TaskRoleID, iam.Role{
		AssumeRolePolicyDocument: intrinsics.AssumeRolePolicy("ecs-tasks.amazonaws.com"),
	})
	executionRole := s.Add(ExecutionRoleID, iam.Role{
		AssumeRolePolicyDocument: intrinsics.AssumeRolePolicy("ecs-tasks.amazonaws.com"),
	})

	s.Add(ExecutionRolePolicyID, iam.Policy{
		PolicyName: ExecutionRolePolicyID,
		PolicyDocument: intrinsics.NewPolicyDocument(
			intrinsics.Allow(
				intrinsics.List("ecr:BatchCheckLayerAvailability", "ecr:GetDownloadUrlForLayer", "ecr:BatchGetImage"),
				d.Image.RepositoryARN(),
			),
			intrinsics.Allow(intrinsics.List("ecr:GetAuthorizationToken"), "*"),
			intrinsics.Allow(
				intrinsics.List("logs:CreateLogStream", "logs:PutLogEvents"),
				s.GetAtt(LogGroupID, "Arn"),
			),
			intrinsics.Allow(
				intrinsics.List("secretsmanager:GetSecretValue", "secretsmanager:DescribeSecret"),
				d.Secrets.ARNPattern(),
			),
		),
		Roles: intrinsics.List(executionRole),
	})

	secrets := make([]ecs.TaskDefinition_Secret, 0, len(d.Secrets.Keys))
	for _, key := range d.Secrets.Keys {
		secrets = append(secrets, ecs.TaskDefinition_Secret{
			Name:      key,
			ValueFrom: d.Secrets.ValueFrom(key),
		})
	}

	var ephemeral *ecs.TaskDefinition_EphemeralStorage
	if d.Task.EphemeralStorageGiB > 0 {
		ephemeral = &ecs.TaskDefinition_EphemeralStorage{SizeInGiB: d.Task.EphemeralStorageGiB}
	}

	return s.Add(TaskDefinitionID, ecs.TaskDefinition{
		Family:                  d.Task.Family,
		Cpu:                     strconv.Itoa(d.Task.CPU),
		Memory:                  strconv.Itoa(d.Task.MemoryMiB),
		NetworkMode:             "awsvpc",
		RequiresCompatibilities: intrinsics.List("FARGATE"),
		ExecutionRoleArn:        s.GetAtt(executionRole.LogicalName, "Arn"),
		TaskRoleArn:             s.GetAtt(taskRole.LogicalName, "Arn"),
		EphemeralStorage:        ephemeral,
		ContainerDefinitions: []ecs.TaskDefinition_ContainerDefinition{
			{
				Name:      ContainerName,
				Image:     d.Image.URI(),
				Essential: true,
				PortMappings: []ecs.TaskDefinition_PortMapping{
					{ContainerPort: d.Task.ContainerPort, Protocol: "tcp"},
				},
				Secrets: secrets,
				LogConfiguration: &ecs.TaskDefinition_LogConfiguration{
					LogDriver: "awslogs",
					Options: map[string]any{
						"awslogs-group":         logGroup,
						"awslogs-stream-prefix": d.Task.LogStreamPrefix,
						"awslogs-region":        intrinsics.AWS_REGION,
					},
				},
				HealthCheck: d.Health.ContainerHealthCheck(),
			},
		},
	})
}
