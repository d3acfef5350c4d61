package output

import (
	"fmt"
	"strings"
)

// RenderTSV lists the edges of g as tab separated rows.
func RenderTSV(g Graph) string {
	var buf strings.Builder

	buf.WriteString("From\tTo\tFromDepth\tToDepth\n")
	for _, e := range g.Edges {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%d\t%d\n", e.From, e.To, g.Depths[e.From], g.Depths[e.To]))
	}
	return buf.String()
}
