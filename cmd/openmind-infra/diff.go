package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	openmind "github.com/openmind/openmind-infra"
	"github.com/openmind/openmind-infra/internal/descriptor"
	"github.com/openmind/openmind-infra/internal/differ"
)

func newDiffCmd(g *globals) *cobra.Command {
	var (
		outputFormat string
		ignoreOrder  bool
	)

	cmd := &cobra.Command{
		Use:   "diff <old> [new]",
		Short: "Compare two CloudFormation templates",
		Long: `Diff reports resources added, removed or modified between two templates.
When new is omitted the current synthesized template is used.

Examples:
    openmind-infra diff deployed.json
    openmind-infra diff old.json new.yaml --ignore-order`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, g, args, outputFormat, ignoreOrder)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false, "Ignore list element order")

	return cmd
}

func runDiff(cmd *cobra.Command, g *globals, args []string, format string, ignoreOrder bool) error {
	current, err := differ.LoadTemplate(args[0])
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], err)
	}

	desired, err := desiredTemplate(cmd, g, args[1:])
	if err != nil {
		return err
	}

	result, err := differ.Compare(current, desired, differ.Options{IgnoreOrder: ignoreOrder})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		return writeJSON(out, result)
	case "text":
		printDiff(out, result)
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// desiredTemplate loads the template at args[0], or synthesizes one.
func desiredTemplate(cmd *cobra.Command, g *globals, args []string) (*openmind.Template, error) {
	if len(args) > 0 {
		tmpl, err := differ.LoadTemplate(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", args[0], err)
		}
		return tmpl, nil
	}

	_, cfg, err := g.load(cmd)
	if err != nil {
		return nil, err
	}
	tmpl, err := descriptor.Synthesize(cfg)
	if err != nil {
		return nil, fmt.Errorf("synth failed: %w", err)
	}
	return tmpl, nil
}

func printDiff(w io.Writer, result *differ.Result) {
	if !result.HasChanges() {
		fmt.Fprintln(w, "Templates are identical.")
		return
	}
	for _, e := range result.Diff.Added {
		fmt.Fprintf(w, "+ %s (%s)\n", e.Resource, e.Type)
	}
	for _, e := range result.Diff.Removed {
		fmt.Fprintf(w, "- %s (%s)\n", e.Resource, e.Type)
	}
	for _, e := range result.Diff.Modified {
		fmt.Fprintf(w, "~ %s (%s)\n", e.Resource, e.Type)
		for _, change := range e.Changes {
			fmt.Fprintf(w, "    %s\n", change)
		}
	}
	fmt.Fprintf(w, "\n%d added, %d removed, %d modified\n",
		result.Summary.Added, result.Summary.Removed, result.Summary.Modified)
}
