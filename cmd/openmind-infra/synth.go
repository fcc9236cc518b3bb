package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openmind/openmind-infra/internal/descriptor"
)

func newSynthCmd(g *globals) *cobra.Command {
	var (
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Generate the CloudFormation template",
		Long: `Synth builds the OpenMind deployment descriptor from the configuration and
prints the CloudFormation template.

Examples:
    openmind-infra synth
    openmind-infra synth -o template.json
    openmind-infra synth --format yaml --image-tag v2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynth(cmd, g, outputFormat, outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runSynth(cmd *cobra.Command, g *globals, format, outputFile string) error {
	_, cfg, err := g.load(cmd)
	if err != nil {
		return err
	}

	tmpl, err := descriptor.Synthesize(cfg)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return fmt.Errorf("synth failed")
	}

	data, err := encodeTemplate(tmpl, format)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), data, outputFile)
}
