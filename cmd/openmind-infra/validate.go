package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openmind/openmind-infra/internal/validation"
)

func newValidateCmd(g *globals) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and the synthesized template",
		Long: `Validate checks the configuration, synthesizes the template, checks each
resource against its schema, runs the OpenMind policy rules and then cfn-lint
against the result.

Examples:
    openmind-infra validate
    openmind-infra validate --config prod.yaml -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, g, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runValidate(cmd *cobra.Command, g *globals, format string) error {
	_, cfg, err := g.read(cmd)
	if err != nil {
		return err
	}

	report, err := validation.ValidateDescriptor(cfg)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	result := report.Result()

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		if err := writeJSON(out, result); err != nil {
			return err
		}
	case "text":
		for _, e := range result.Errors {
			fmt.Fprintf(out, "error: %s\n", e)
		}
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "warning: %s\n", w)
		}
		if result.Success {
			fmt.Fprintf(out, "Template is valid (%d resources).\n", result.Resources)
		}
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		return fmt.Errorf("validation found %d errors", len(result.Errors))
	}
	return nil
}
