package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	openmind "github.com/openmind/openmind-infra"
	"github.com/openmind/openmind-infra/internal/config"
	"github.com/openmind/openmind-infra/internal/provision"
	"github.com/openmind/openmind-infra/internal/template"
)

// encodeTemplate renders tmpl as json or yaml.
func encodeTemplate(tmpl *openmind.Template, format string) ([]byte, error) {
	switch format {
	case "json":
		return template.ToJSON(tmpl)
	case "yaml":
		return template.ToYAML(tmpl)
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

// writeOutput writes data to outputFile, or to w when outputFile is empty.
func writeOutput(w io.Writer, data []byte, outputFile string) error {
	if outputFile == "" {
		_, err := fmt.Fprintln(w, string(data))
		return err
	}
	return os.WriteFile(outputFile, data, 0644)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printPlan writes one line per changed resource.
func printPlan(w io.Writer, plan openmind.PlanResult) {
	changed := plan.Changed()
	if len(changed) == 0 {
		fmt.Fprintln(w, "No changes.")
		return
	}
	for _, c := range changed {
		line := fmt.Sprintf("%-8s %s (%s)", c.Action, c.Resource, c.Type)
		if len(c.Reasons) > 0 {
			line += ": " + strings.Join(c.Reasons, ", ")
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "\n%d of %d resources change.\n", len(changed), len(plan.Changes))
}

// confirm asks a yes/no question on in.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// awsSession bundles the AWS-backed collaborators of a command.
type awsSession struct {
	clients *provision.Clients
	engine  *provision.Engine
	target  *provision.ExecutionContext
}

// newAWSSession is replaced in tests that must not reach AWS.
var newAWSSession = openAWSSession

func openAWSSession(ctx context.Context, cfg *config.Config) (*awsSession, error) {
	clients, err := provision.NewClients(ctx, cfg.Provision.Profile, cfg.Region)
	if err != nil {
		return nil, err
	}
	target, err := provision.ResolveExecutionContext(ctx, clients.STS, clients.Region, cfg.StackName)
	if err != nil {
		return nil, err
	}
	opts := []provision.EngineOption{provision.WithTimeout(cfg.Provision.Timeout)}
	if cfg.Provision.TemplateBucket != "" {
		opts = append(opts, provision.WithTemplateBucket(clients.S3, cfg.Provision.TemplateBucket, clients.Region))
	}
	return &awsSession{
		clients: clients,
		engine:  provision.NewEngine(clients.CloudFormation, cfg.StackName, opts...),
		target:  target,
	}, nil
}

func (s *awsSession) preflight(ctx context.Context, cfg *config.Config) (*provision.PreflightResult, error) {
	return provision.Preflight(ctx,
		provision.NewRegistry(s.clients.ECR, s.clients.Region),
		provision.NewSecretStore(s.clients.SecretsManager),
		cfg,
	)
}
