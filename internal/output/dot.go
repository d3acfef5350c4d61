package output

import (
	"fmt"
	"strings"
)

// RenderDOT renders g as a Graphviz digraph. The target is highlighted and
// nodes are ranked by BFS depth.
func RenderDOT(g Graph) string {
	var buf strings.Builder

	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=1.2;\n")
	buf.WriteString("  nodesep=0.5;\n\n")

	for _, node := range g.Nodes {
		label := fmt.Sprintf("%s\\n(depth %d)", nodeLabel(node), g.Depths[node])
		if node == g.Target {
			buf.WriteString(fmt.Sprintf("  %q [label=\"%s\", tooltip=%q, fillcolor=\"lightblue\", style=\"rounded,filled\", penwidth=2.0];\n", node, label, node))
			continue
		}
		buf.WriteString(fmt.Sprintf("  %q [label=\"%s\", tooltip=%q, color=\"darkslategrey\"];\n", node, label, node))
	}
	if len(g.Edges) > 0 {
		buf.WriteString("\n")
	}

	for _, e := range g.Edges {
		if g.Depths[e.To] <= g.Depths[e.From] {
			// Back or sideways edge: an import closing a cycle or joining a level.
			buf.WriteString(fmt.Sprintf("  %q -> %q [color=\"grey\", style=dashed];\n", e.From, e.To))
			continue
		}
		buf.WriteString(fmt.Sprintf("  %q -> %q [color=\"forestgreen\"];\n", e.From, e.To))
	}

	buf.WriteString("}\n")
	return buf.String()
}
