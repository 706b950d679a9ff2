// Package graph renders template dependency graphs in DOT and Mermaid format.
package graph

import (
	"io"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	"github.com/theory-cloud/apigwmock"
	"github.com/theory-cloud/apigwmock/pkg/template"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Generator creates dependency graphs from a synthesized template.
type Generator struct {
	// Format defaults to dot.
	Format Format

	// ClusterByService groups resources by service, e.g. ApiGateway.
	ClusterByService bool

	// IncludeOutputs adds a node per stack output.
	IncludeOutputs bool
}

// Generate writes the dependency graph of tpl to w.
func (g *Generator) Generate(tpl *template.Template, w io.Writer) error {
	if tpl == nil {
		return apigwmock.NewError(apigwmock.ErrorCodeTemplateInvalid, "template is nil")
	}

	graph := g.buildGraph(tpl)

	var output string
	switch g.Format {
	case FormatDOT, "":
		output = graph.String()
	case FormatMermaid:
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	default:
		return apigwmock.Errorf(apigwmock.ErrorCodeConfigInvalid, "unsupported graph format %q", g.Format)
	}

	_, err := io.WriteString(w, output)
	return err
}

// GenerateString returns the graph as a string.
func (g *Generator) GenerateString(tpl *template.Template) (string, error) {
	var sb strings.Builder
	if err := g.Generate(tpl, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (g *Generator) buildGraph(tpl *template.Template) *dot.Graph {
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

	if g.ClusterByService {
		addClusteredNodes(graph, tpl)
	} else {
		for _, id := range tpl.LogicalIDs() {
			graph.Node(id).Label(nodeLabel(id, tpl.Resources[id].Type))
		}
	}

	for _, e := range tpl.Dependencies() {
		edge := graph.Edge(graph.Node(e.From), graph.Node(e.To))
		switch e.Kind {
		case template.EdgeGetAtt:
			edge.Attr("color", "blue")
			edge.Label(e.Attribute)
		case template.EdgeDependsOn:
			edge.Attr("style", "dashed")
		}
	}

	if g.IncludeOutputs {
		for _, name := range tpl.OutputNames() {
			n := graph.Node("Output" + name)
			n.Attr("shape", "note")
			n.Label(name + "\\n[Output]")
		}
		for _, e := range tpl.OutputDependencies() {
			graph.Edge(graph.Node("Output"+e.From), graph.Node(e.To)).Attr("style", "dotted")
		}
	}

	return graph
}

// addClusteredNodes groups resources of services with more than one resource into a cluster.
func addClusteredNodes(graph *dot.Graph, tpl *template.Template) {
	byService := map[string][]string{}
	for _, id := range tpl.LogicalIDs() {
		svc := template.ServiceOf(tpl.Resources[id].Type)
		byService[svc] = append(byService[svc], id)
	}

	services := make([]string, 0, len(byService))
	for svc := range byService {
		services = append(services, svc)
	}
	sort.Strings(services)

	for _, svc := range services {
		ids := byService[svc]
		if len(ids) == 1 {
			graph.Node(ids[0]).Label(nodeLabel(ids[0], tpl.Resources[ids[0]].Type))
			continue
		}
		cluster := graph.Subgraph("cluster_"+svc, dot.ClusterOption{})
		cluster.Attr("label", svc)
		cluster.Attr("style", "rounded")
		cluster.Attr("bgcolor", "lightyellow")
		for _, id := range ids {
			cluster.Node(id).Label(nodeLabel(id, tpl.Resources[id].Type))
		}
	}
}

func nodeLabel(id, resourceType string) string {
	return id + "\\n[" + resourceType + "]"
}
