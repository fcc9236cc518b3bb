package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openmind/openmind-infra/internal/provision"
)

func newDestroyCmd(g *globals) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete the stack",
		Long: `Destroy deletes the CloudFormation stack and waits for the deletion to
finish. Retained resources such as the log group are left in place.

Examples:
    openmind-infra destroy --stack-name OpenMindStaging --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDestroy(cmd, g, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking for confirmation")

	return cmd
}

func runDestroy(cmd *cobra.Command, g *globals, yes bool) error {
	ctx, cfg, err := g.load(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	session, err := newAWSSession(ctx, cfg)
	if err != nil {
		return err
	}

	if !yes && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Delete %s?", session.target)) {
		fmt.Fprintln(out, "Destroy cancelled.")
		return nil
	}
	if err := session.engine.Destroy(ctx); err != nil {
		if errors.Is(err, provision.ErrStackNotFound) {
			fmt.Fprintf(out, "Stack %s does not exist.\n", cfg.StackName)
			return nil
		}
		return err
	}
	fmt.Fprintf(out, "Stack %s deleted.\n", cfg.StackName)
	return nil
}
