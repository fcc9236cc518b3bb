package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newOutputsCmd(g *globals) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "Show stack outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutputs(cmd, g, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runOutputs(cmd *cobra.Command, g *globals, format string) error {
	ctx, cfg, err := g.load(cmd)
	if err != nil {
		return err
	}
	session, err := newAWSSession(ctx, cfg)
	if err != nil {
		return err
	}

	outputs, err := session.engine.Outputs(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		return writeJSON(out, outputs)
	}

	status, err := session.engine.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (%s)\n", session.engine.StackName(), status)

	keys := make([]string, 0, len(outputs))
	for k := range outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "%s: %s\n", k, outputs[k])
	}
	return nil
}
