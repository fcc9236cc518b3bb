package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	openmind "github.com/openmind/openmind-infra"
	"github.com/openmind/openmind-infra/internal/descriptor"
	"github.com/openmind/openmind-infra/internal/linter"
	"github.com/openmind/openmind-infra/internal/validation"
)

func newLintCmd(g *globals) *cobra.Command {
	var (
		outputFormat string
		rules        []string
	)

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check the synthesized template against the OpenMind policy rules",
		Long: `Lint synthesizes the template and checks it against the topology rules.
It exits with status 2 when issues are found.

Rules:
    OMI001: Exactly one VPC, cluster, task definition, service and load balancer
    OMI002: The container exposes exactly one port
    OMI003: Every configured secret key is injected, once
    OMI004: The load balancer matches the configured scheme and listener port
    OMI005: Health check timings are consistent
    OMI006: Container and target group health checks agree
    OMI007: CPU and memory form a valid Fargate size
    OMI008: The image tag is immutable
    OMI009: Deployments keep the circuit breaker and capacity headroom

Examples:
    openmind-infra lint
    openmind-infra lint --rules OMI005,OMI006 -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(cmd, g, outputFormat, rules)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringSliceVar(&rules, "rules", nil, "Comma-separated rule IDs to run (default: all)")

	return cmd
}

func runLint(cmd *cobra.Command, g *globals, format string, rules []string) error {
	_, cfg, err := g.load(cmd)
	if err != nil {
		return err
	}

	tmpl, err := descriptor.Synthesize(cfg)
	if err != nil {
		return fmt.Errorf("synth failed: %w", err)
	}

	for i, r := range rules {
		rules[i] = strings.ToUpper(strings.TrimSpace(r))
	}
	lintResult := linter.Lint(tmpl, linter.Options{
		EnabledRules: rules,
		Expect:       linter.ExpectationsFromConfig(cfg),
	})

	result := openmind.LintResult{
		Success: len(lintResult.Issues) == 0,
		Issues:  lintResult.Issues,
	}
	return outputLintResult(cmd, result, format)
}

func outputLintResult(cmd *cobra.Command, result openmind.LintResult, format string) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		if err := writeJSON(out, result); err != nil {
			return err
		}
	case "text":
		if result.Success {
			fmt.Fprintln(out, "No issues found.")
			return nil
		}
		for _, issue := range result.Issues {
			fmt.Fprintf(out, "%s: %s\n", issue.Severity, validation.FormatIssue(issue))
		}
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		return &exitError{code: 2}
	}
	return nil
}
