package differ

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	openmind "github.com/openmind/openmind-infra"
	"github.com/openmind/openmind-infra/internal/template"
)

func TestCompare(t *testing.T) {
	t1 := &openmind.Template{
		Resources: map[string]openmind.ResourceDef{
			"Cluster":  {Type: "AWS::ECS::Cluster", Properties: map[string]any{"ClusterName": "openmind"}},
			"LogGroup": {Type: "AWS::Logs::LogGroup", Properties: map[string]any{"RetentionInDays": float64(30)}},
		},
	}
	t2 := &openmind.Template{
		Resources: map[string]openmind.ResourceDef{
			"Cluster": {Type: "AWS::ECS::Cluster", Properties: map[string]any{"ClusterName": "openmind-v2"}},
			"VPC":     {Type: "AWS::EC2::VPC", Properties: map[string]any{"CidrBlock": "10.0.0.0/16"}},
		},
	}

	result, err := Compare(t1, t2, Options{})
	require.NoError(t, err)

	require.Len(t, result.Diff.Removed, 1)
	assert.Equal(t, "LogGroup", result.Diff.Removed[0].Resource)
	require.Len(t, result.Diff.Added, 1)
	assert.Equal(t, "VPC", result.Diff.Added[0].Resource)
	require.Len(t, result.Diff.Modified, 1)
	assert.Equal(t, "Cluster", result.Diff.Modified[0].Resource)
	assert.Equal(t, []string{"ClusterName modified"}, result.Diff.Modified[0].Changes)

	assert.Equal(t, openmind.DiffSummary{Added: 1, Removed: 1, Modified: 1, Total: 3}, result.Summary)
	assert.True(t, result.HasChanges())
}

func TestCompareIdentical(t *testing.T) {
	tmpl := sampleTemplate("latest")

	result, err := Compare(tmpl, tmpl, Options{})
	require.NoError(t, err)
	assert.Zero(t, result.Summary.Total)
	assert.False(t, result.HasChanges())
}

func TestCompareNil(t *testing.T) {
	_, err := Compare(nil, sampleTemplate("latest"), Options{})
	assert.Error(t, err)
}

func TestCompareNestedPaths(t *testing.T) {
	t1 := &openmind.Template{Resources: map[string]openmind.ResourceDef{
		"TG": {Type: "AWS::ElasticLoadBalancingV2::TargetGroup", Properties: map[string]any{
			"Matcher": map[string]any{"HttpCode": "200"},
			"VpcId":   map[string]any{"Ref": "VPC"},
		}},
	}}
	t2 := &openmind.Template{Resources: map[string]openmind.ResourceDef{
		"TG": {Type: "AWS::ElasticLoadBalancingV2::TargetGroup", Properties: map[string]any{
			"Matcher":         map[string]any{"HttpCode": "200-299"},
			"VpcId":           map[string]any{"Ref": "OtherVPC"},
			"HealthCheckPath": "/health",
		}},
	}}

	result, err := Compare(t1, t2, Options{})
	require.NoError(t, err)
	require.Len(t, result.Diff.Modified, 1)
	assert.Equal(t, []string{
		"HealthCheckPath added",
		"Matcher.HttpCode modified",
		"VpcId modified",
	}, result.Diff.Modified[0].Changes)
}

func TestCompareIgnoreOrder(t *testing.T) {
	t1 := &openmind.Template{Resources: map[string]openmind.ResourceDef{
		"LB": {Type: "AWS::ElasticLoadBalancingV2::LoadBalancer", Properties: map[string]any{
			"Subnets": []any{map[string]any{"Ref": "A"}, map[string]any{"Ref": "B"}},
		}},
	}}
	t2 := &openmind.Template{Resources: map[string]openmind.ResourceDef{
		"LB": {Type: "AWS::ElasticLoadBalancingV2::LoadBalancer", Properties: map[string]any{
			"Subnets": []any{map[string]any{"Ref": "B"}, map[string]any{"Ref": "A"}},
		}},
	}}

	ordered, err := Compare(t1, t2, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, ordered.Summary.Modified)

	unordered, err := Compare(t1, t2, Options{IgnoreOrder: true})
	require.NoError(t, err)
	assert.Zero(t, unordered.Summary.Total)
}

func TestCompareMetadata(t *testing.T) {
	t1 := &openmind.Template{Resources: map[string]openmind.ResourceDef{
		"LogGroup": {Type: "AWS::Logs::LogGroup", DependsOn: []string{"A", "B"}},
	}}
	t2 := &openmind.Template{Resources: map[string]openmind.ResourceDef{
		"LogGroup": {Type: "AWS::Logs::LogGroup", DependsOn: []string{"B", "A"}, DeletionPolicy: "Retain"},
	}}

	result, err := Compare(t1, t2, Options{})
	require.NoError(t, err)
	require.Len(t, result.Diff.Modified, 1)
	assert.Equal(t, []string{"DeletionPolicy changed"}, result.Diff.Modified[0].Changes)
}

func TestCompareFiles(t *testing.T) {
	dir := t.TempDir()

	oldData, err := template.ToJSON(sampleTemplate("v1"))
	require.NoError(t, err)
	newData, err := template.ToYAML(sampleTemplate("v2"))
	require.NoError(t, err)

	oldPath := filepath.Join(dir, "old.json")
	newPath := filepath.Join(dir, "new.yaml")
	require.NoError(t, os.WriteFile(oldPath, oldData, 0o644))
	require.NoError(t, os.WriteFile(newPath, newData, 0o644))

	result, err := CompareFiles(oldPath, newPath, Options{})
	require.NoError(t, err)
	require.Len(t, result.Diff.Modified, 1)
	assert.Equal(t, "TaskDef", result.Diff.Modified[0].Resource)

	_, err = CompareFiles(filepath.Join(dir, "missing.json"), newPath, Options{})
	assert.Error(t, err)
}
