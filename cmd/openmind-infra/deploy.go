package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openmind/openmind-infra/internal/descriptor"
	"github.com/openmind/openmind-infra/internal/linter"
	"github.com/openmind/openmind-infra/internal/logger"
	"github.com/openmind/openmind-infra/internal/provision"
	"github.com/openmind/openmind-infra/internal/validation"
)

func newDeployCmd(g *globals) *cobra.Command {
	var (
		yes           bool
		skipPreflight bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Plan and apply the stack",
		Long: `Deploy synthesizes the template, runs the policy rules and preflight checks,
creates a change set and, once confirmed, executes it. On success the load
balancer DNS name is printed.

Examples:
    openmind-infra deploy
    openmind-infra deploy --image-tag v2 --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd, g, yes, skipPreflight)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Apply without asking for confirmation")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip the image and secret checks")

	return cmd
}

func runDeploy(cmd *cobra.Command, g *globals, yes, skipPreflight bool) error {
	ctx, cfg, err := g.load(cmd)
	if err != nil {
		return err
	}
	log := logger.GetLoggerFromContext(ctx)
	out := cmd.OutOrStdout()

	tmpl, err := descriptor.Synthesize(cfg)
	if err != nil {
		return fmt.Errorf("synth failed: %w", err)
	}

	policy := linter.Lint(tmpl, linter.Options{Expect: linter.ExpectationsFromConfig(cfg)})
	for _, issue := range policy.Issues {
		log.Warnf("%s: %s", issue.Severity, validation.FormatIssue(issue))
	}
	if !policy.Success {
		return fmt.Errorf("policy rules failed; run 'openmind-infra lint' for details")
	}

	session, err := newAWSSession(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Target: %s\n", session.target)

	if !skipPreflight {
		if _, err := session.preflight(ctx, cfg); err != nil {
			return fmt.Errorf("preflight failed: %w", err)
		}
	}

	cs, err := session.engine.Plan(ctx, tmpl)
	if err != nil {
		return err
	}
	printPlan(out, cs.Result())
	if cs.Empty {
		return printLoadBalancerDNS(ctx, cmd, session)
	}

	if !yes && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Apply %d changes to %s?", len(cs.Changes), session.target)) {
		if err := session.engine.Discard(ctx, cs); err != nil {
			log.Warn(err)
		}
		fmt.Fprintln(out, "Deploy cancelled.")
		return nil
	}

	if err := session.engine.Apply(ctx, cs); err != nil {
		var failed *provision.DeploymentFailedError
		if errors.As(err, &failed) {
			return fmt.Errorf("deploy rolled back: %w", err)
		}
		return err
	}

	return printLoadBalancerDNS(ctx, cmd, session)
}

func printLoadBalancerDNS(ctx context.Context, cmd *cobra.Command, session *awsSession) error {
	outputs, err := session.engine.Outputs(ctx)
	if err != nil {
		return err
	}
	if dns, ok := outputs[descriptor.OutputLoadBalancerDNS]; ok {
		fmt.Fprintf(cmd.OutOrStdout(), "LoadBalancerDNS: %s\n", dns)
	}
	return nil
}
