package output

import (
	"ctxpack/internal/engine/traversal"
	"ctxpack/internal/shared/util"
	"fmt"
	"path"
	"sort"
	"strings"
)

// Graph is the dependency graph of one traversal with root-relative node
// names. Nodes keep traversal order; Target is Nodes[0].
type Graph struct {
	Nodes  []string
	Edges  []GraphEdge
	Depths map[string]int
	Target string
}

type GraphEdge struct {
	From string
	To   string
}

func NewGraph(root string, res traversal.Result) Graph {
	g := Graph{Depths: make(map[string]int, len(res.Files))}
	for _, file := range res.Files {
		name := util.RelSlash(root, file.Path)
		g.Nodes = append(g.Nodes, name)
		g.Depths[name] = file.Depth
	}
	if len(g.Nodes) > 0 {
		g.Target = g.Nodes[0]
	}
	seen := make(map[GraphEdge]bool, len(res.Edges))
	for _, e := range res.Edges {
		edge := GraphEdge{From: util.RelSlash(root, e.From), To: util.RelSlash(root, e.To)}
		if seen[edge] {
			continue
		}
		seen[edge] = true
		g.Edges = append(g.Edges, edge)
	}
	return g
}

type graphRenderer func(Graph) string

var graphRenderers = map[string]graphRenderer{
	"dot":      RenderDOT,
	"mermaid":  RenderMermaid,
	"plantuml": RenderPlantUML,
	"tsv":      RenderTSV,
}

// RenderGraph renders g in the named graph format.
func RenderGraph(format string, g Graph) (string, error) {
	render, ok := graphRenderers[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return "", fmt.Errorf("unknown graph format %q (supported: %s)", format, strings.Join(GraphFormatNames(), ", "))
	}
	return render(g), nil
}

func GraphFormatNames() []string {
	names := make([]string, 0, len(graphRenderers))
	for name := range graphRenderers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// nodeLabel is the type name a file is named after, "com/x/A.java" -> "A".
func nodeLabel(node string) string {
	base := path.Base(node)
	return strings.TrimSuffix(base, path.Ext(base))
}
