package output

import (
	"fmt"
	"strings"
	"unicode"
)

// RenderMermaid renders g as a Mermaid flowchart.
func RenderMermaid(g Graph) string {
	var b strings.Builder
	b.WriteString("flowchart LR\n")

	ids := makeMermaidIDs(g.Nodes)
	for _, node := range g.Nodes {
		b.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", ids[node], escapeMermaidLabel(nodeLabel(node))))
	}
	for _, e := range g.Edges {
		b.WriteString(fmt.Sprintf("  %s --> %s\n", ids[e.From], ids[e.To]))
	}
	if g.Target != "" {
		b.WriteString("  classDef targetNode fill:#dbeafe,stroke:#1d4ed8,stroke-width:2px;\n")
		b.WriteString(fmt.Sprintf("  class %s targetNode\n", ids[g.Target]))
	}
	return b.String()
}

func sanitizeMermaidID(name string) string {
	if name == "" {
		return "n"
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if unicode.IsDigit(rune(out[0])) {
		return "n_" + out
	}
	return out
}

func makeMermaidIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeMermaidID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
