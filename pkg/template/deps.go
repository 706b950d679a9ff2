package template

import (
	"regexp"
	"sort"
	"strings"
)

// EdgeKind identifies how one resource refers to another.
type EdgeKind string

const (
	EdgeRef       EdgeKind = "Ref"
	EdgeGetAtt    EdgeKind = "GetAtt"
	EdgeDependsOn EdgeKind = "DependsOn"
)

// Edge is a dependency from one logical id onto another.
type Edge struct {
	From      string
	To        string
	Kind      EdgeKind
	Attribute string
}

var subVarPattern = regexp.MustCompile(`\$\{([A-Za-z0-9]+)(?:\.([A-Za-z0-9.]+))?\}`)

// Dependencies returns the edges between resources, sorted and deduplicated.
// References to parameters and pseudo parameters are ignored.
func (t *Template) Dependencies() []Edge {
	var edges []Edge
	for _, id := range t.LogicalIDs() {
		res := t.Resources[id]
		edges = append(edges, t.collect(id, res.Properties)...)
		for _, dep := range res.DependsOn {
			if _, ok := t.Resources[dep]; ok {
				edges = append(edges, Edge{From: id, To: dep, Kind: EdgeDependsOn})
			}
		}
	}
	return dedupe(edges)
}

// OutputDependencies returns the edges from outputs onto the resources their values reference.
func (t *Template) OutputDependencies() []Edge {
	var edges []Edge
	for _, name := range t.OutputNames() {
		edges = append(edges, t.collect(name, t.Outputs[name].Value)...)
	}
	return dedupe(edges)
}

// DependsOn reports whether from refers to to by any means.
func (t *Template) DependsOn(from, to string) bool {
	for _, e := range t.Dependencies() {
		if e.From == from && e.To == to {
			return true
		}
	}
	return false
}

func (t *Template) collect(from string, value any) []Edge {
	var edges []Edge
	var walk func(v any)
	walk = func(v any) {
		switch typed := v.(type) {
		case map[string]any:
			if target, ok := typed["Ref"].(string); ok && len(typed) == 1 {
				if _, known := t.Resources[target]; known {
					edges = append(edges, Edge{From: from, To: target, Kind: EdgeRef})
				}
				return
			}
			if ga, ok := typed["Fn::GetAtt"]; ok && len(typed) == 1 {
				if target, attr := getAttTarget(ga); target != "" {
					if _, known := t.Resources[target]; known {
						edges = append(edges, Edge{From: from, To: target, Kind: EdgeGetAtt, Attribute: attr})
					}
				}
				return
			}
			if sub, ok := typed["Fn::Sub"]; ok && len(typed) == 1 {
				edges = append(edges, t.subEdges(from, sub)...)
			}
			for _, inner := range typed {
				walk(inner)
			}
		case []any:
			for _, inner := range typed {
				walk(inner)
			}
		}
	}
	walk(value)
	return edges
}

func (t *Template) subEdges(from string, sub any) []Edge {
	var body string
	switch typed := sub.(type) {
	case string:
		body = typed
	case []any:
		if len(typed) > 0 {
			body, _ = typed[0].(string)
		}
	}
	var edges []Edge
	for _, m := range subVarPattern.FindAllStringSubmatch(body, -1) {
		if _, known := t.Resources[m[1]]; !known {
			continue
		}
		if m[2] != "" {
			edges = append(edges, Edge{From: from, To: m[1], Kind: EdgeGetAtt, Attribute: m[2]})
		} else {
			edges = append(edges, Edge{From: from, To: m[1], Kind: EdgeRef})
		}
	}
	return edges
}

func getAttTarget(v any) (string, string) {
	switch typed := v.(type) {
	case []any:
		if len(typed) != 2 {
			return "", ""
		}
		target, _ := typed[0].(string)
		attr, _ := typed[1].(string)
		return target, attr
	case string:
		target, attr, _ := strings.Cut(typed, ".")
		return target, attr
	}
	return "", ""
}

func dedupe(edges []Edge) []Edge {
	seen := make(map[Edge]bool, len(edges))
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Attribute < b.Attribute
	})
	return out
}
