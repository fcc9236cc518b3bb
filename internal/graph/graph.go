// Package graph renders DOT and Mermaid dependency graphs of a synthesized template.
package graph

import (
	"io"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	openmind "github.com/openmind/openmind-infra"
	"github.com/openmind/openmind-infra/internal/template"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// ParseFormat returns the Format named by s, defaulting to DOT when s is empty.
func ParseFormat(s string) (Format, bool) {
	switch Format(strings.ToLower(s)) {
	case "", FormatDOT:
		return FormatDOT, true
	case FormatMermaid:
		return FormatMermaid, true
	}
	return "", false
}

// Generator creates dependency graphs from templates.
type Generator struct {
	// IncludeParameters includes parameter nodes and their references.
	IncludeParameters bool

	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByType groups resources by AWS service.
	ClusterByType bool
}

// Generate creates a dependency graph of tmpl and writes it to w.
//
// Edges point from a resource to what it depends on. Attribute reads
// (Fn::GetAtt, ${Name.Attr}) are drawn blue; explicit DependsOn-only
// edges are dashed.
func (g *Generator) Generate(tmpl *openmind.Template, w io.Writer) error {
	graph := g.buildGraph(tmpl)

	format := g.Format
	if format == "" {
		format = FormatDOT
	}

	var output string
	if format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := io.WriteString(w, output)
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(tmpl *openmind.Template) (string, error) {
	var sb strings.Builder
	if err := g.Generate(tmpl, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (g *Generator) buildGraph(tmpl *openmind.Template) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})
	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	names := sortedKeys(tmpl.Resources)
	nodes := make(map[string]dot.Node, len(names))
	if g.ClusterByType {
		g.addClusteredNodes(graph, tmpl, names, nodes)
	} else {
		for _, name := range names {
			nodes[name] = graph.Node(name).Label(nodeLabel(name, tmpl.Resources[name].Type))
		}
	}

	if g.IncludeParameters {
		for _, name := range sortedKeys(tmpl.Parameters) {
			n := graph.Node(name)
			n.Attr("shape", "ellipse")
			n.Attr("style", "dashed")
			nodes[name] = n.Label(name)
		}
	}

	deps := template.Dependencies(tmpl)
	for _, name := range names {
		def := tmpl.Resources[name]
		refs := template.References(def.Properties)
		attrs := toSet(template.AttributeReferences(def.Properties))
		implicit := toSet(refs)

		targets := deps[name]
		if g.IncludeParameters {
			for _, ref := range refs {
				if _, ok := tmpl.Parameters[ref]; ok {
					targets = append(targets, ref)
				}
			}
		}

		for _, dep := range targets {
			to, ok := nodes[dep]
			if !ok {
				continue
			}
			e := graph.Edge(nodes[name], to)
			switch {
			case attrs[dep]:
				e.Attr("color", "blue")
			case !implicit[dep]:
				e.Attr("style", "dashed")
			}
		}
	}

	return graph
}

// addClusteredNodes adds resource nodes grouped by AWS service and records
// each node in nodes so edges attach to the clustered node.
func (g *Generator) addClusteredNodes(graph *dot.Graph, tmpl *openmind.Template, names []string, nodes map[string]dot.Node) {
	byService := make(map[string][]string)
	for _, name := range names {
		service := ServiceOf(tmpl.Resources[name].Type)
		byService[service] = append(byService[service], name)
	}

	for _, service := range sortedKeys(byService) {
		members := byService[service]
		parent := graph
		// single-member services stay at the top level
		if len(members) > 1 {
			parent = graph.Subgraph("cluster_"+service, dot.ClusterOption{})
			parent.Attr("label", service)
			parent.Attr("style", "rounded")
			parent.Attr("bgcolor", "lightyellow")
		}
		for _, name := range members {
			nodes[name] = parent.Node(name).Label(nodeLabel(name, tmpl.Resources[name].Type))
		}
	}
}

// ServiceOf extracts the AWS service from a CloudFormation type.
// e.g., "AWS::ElasticLoadBalancingV2::Listener" -> "ElasticLoadBalancingV2"
func ServiceOf(cfType string) string {
	parts := strings.Split(cfType, "::")
	if len(parts) == 3 && parts[1] != "" {
		return parts[1]
	}
	return "Other"
}

func nodeLabel(name, cfType string) string {
	return name + "\\n[" + cfType + "]"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
