package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPreflightCmd(g *globals) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Verify the image tag and secret keys exist",
		Long: `Preflight checks that the configured image tag exists in ECR and that the
Secrets Manager secret holds every configured key. Secret values are never
printed.

Examples:
    openmind-infra preflight --image-tag v2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreflight(cmd, g, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runPreflight(cmd *cobra.Command, g *globals, format string) error {
	ctx, cfg, err := g.load(cmd)
	if err != nil {
		return err
	}
	session, err := newAWSSession(ctx, cfg)
	if err != nil {
		return err
	}

	result, err := session.preflight(ctx, cfg)
	if err != nil {
		return fmt.Errorf("preflight failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		return writeJSON(out, result)
	}
	fmt.Fprintf(out, "Image:  %s\n", result.Image.URI)
	fmt.Fprintf(out, "Secret: %s (%d keys)\n", result.SecretARN, len(cfg.Secrets.Keys))
	return nil
}
