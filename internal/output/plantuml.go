package output

import (
	"fmt"
	"strings"
	"unicode"
)

// RenderPlantUML renders g as a PlantUML component diagram.
func RenderPlantUML(g Graph) string {
	var b strings.Builder
	b.WriteString("@startuml\n")
	b.WriteString("skinparam componentStyle rectangle\n")
	b.WriteString("skinparam linetype ortho\n")
	b.WriteString("left to right direction\n\n")

	aliases := makePlantUMLAliases(g.Nodes)
	for _, node := range g.Nodes {
		stereotype := ""
		if node == g.Target {
			stereotype = " <<target>>"
		}
		b.WriteString(fmt.Sprintf("component \"%s\" as %s%s\n", nodeLabel(node), aliases[node], stereotype))
	}
	if len(g.Edges) > 0 {
		b.WriteString("\n")
	}
	for _, e := range g.Edges {
		b.WriteString(fmt.Sprintf("%s --> %s\n", aliases[e.From], aliases[e.To]))
	}
	b.WriteString("@enduml\n")
	return b.String()
}

func makePlantUMLAliases(names []string) map[string]string {
	aliases := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		var sb strings.Builder
		for _, r := range name {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
				sb.WriteRune(r)
				continue
			}
			sb.WriteRune('_')
		}
		base := sb.String()
		if base == "" || unicode.IsDigit(rune(base[0])) {
			base = "c_" + base
		}
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			aliases[name] = base
			continue
		}
		aliases[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return aliases
}
