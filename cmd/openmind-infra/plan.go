package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openmind/openmind-infra/internal/descriptor"
	"github.com/openmind/openmind-infra/internal/differ"
	"github.com/openmind/openmind-infra/internal/logger"
)

func newPlanCmd(g *globals) *cobra.Command {
	var (
		against      string
		outputFormat string
		keep         bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the changes a deploy would make",
		Long: `Plan compares the synthesized template with the deployed stack.

With --against the comparison is offline, against a template file, and
replacement is predicted from the resource types. Otherwise a CloudFormation
change set is created, printed and deleted (unless --keep).

Examples:
    openmind-infra plan --against deployed.json
    openmind-infra plan --image-tag v2 -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, g, against, outputFormat, keep)
		},
	}

	cmd.Flags().StringVar(&against, "against", "", "Template file to plan against instead of the live stack")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&keep, "keep", false, "Keep the change set for review in the console")

	return cmd
}

func runPlan(cmd *cobra.Command, g *globals, against, format string, keep bool) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}

	ctx, cfg, err := g.load(cmd)
	if err != nil {
		return err
	}
	tmpl, err := descriptor.Synthesize(cfg)
	if err != nil {
		return fmt.Errorf("synth failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if against != "" {
		current, err := differ.LoadTemplate(against)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", against, err)
		}
		plan := differ.Plan(current, tmpl)
		plan.Stack = cfg.StackName
		if format == "json" {
			return writeJSON(out, plan)
		}
		printPlan(out, plan)
		return nil
	}

	session, err := newAWSSession(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Planning %s\n", session.target)
	cs, err := session.engine.Plan(ctx, tmpl)
	if err != nil {
		return err
	}
	if !keep {
		defer func() {
			if err := session.engine.Discard(ctx, cs); err != nil {
				logger.GetLoggerFromContext(ctx).Warn(err)
			}
		}()
	} else if !cs.Empty {
		fmt.Fprintf(cmd.ErrOrStderr(), "Change set %s kept for review.\n", cs.Name)
	}

	if format == "json" {
		return writeJSON(out, cs.Result())
	}
	printPlan(out, cs.Result())
	return nil
}
