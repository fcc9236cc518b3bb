package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openmind/openmind-infra/internal/descriptor"
	"github.com/openmind/openmind-infra/internal/graph"
)

func newGraphCmd(g *globals) *cobra.Command {
	var (
		outputFormat      string
		includeParameters bool
		clusterByType     bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate DOT graph of resource dependencies",
		Long: `Generate a DOT or Mermaid format graph showing resource dependencies.

The output can be rendered with Graphviz:
    openmind-infra graph | dot -Tpng -o deps.png

Or used in GitHub markdown (Mermaid format):
    openmind-infra graph -f mermaid

Examples:
    openmind-infra graph
    openmind-infra graph -c              # cluster by service
    openmind-infra graph -f mermaid      # mermaid format`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, g, outputFormat, includeParameters, clusterByType)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVarP(&includeParameters, "include-parameters", "p", false, "Include parameter nodes in the graph")
	cmd.Flags().BoolVarP(&clusterByType, "cluster", "c", false, "Cluster resources by AWS service")

	return cmd
}

func runGraph(cmd *cobra.Command, g *globals, format string, includeParams, cluster bool) error {
	graphFormat, ok := graph.ParseFormat(format)
	if !ok {
		return fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", format)
	}

	_, cfg, err := g.load(cmd)
	if err != nil {
		return err
	}
	tmpl, err := descriptor.Synthesize(cfg)
	if err != nil {
		return fmt.Errorf("synth failed: %w", err)
	}

	gen := &graph.Generator{
		Format:            graphFormat,
		IncludeParameters: includeParams,
		ClusterByType:     cluster,
	}
	return gen.Generate(tmpl, cmd.OutOrStdout())
}
