package cli

import (
	"ctxpack/internal/core/app"
	"ctxpack/internal/core/config"
	"ctxpack/internal/shared/util"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const maxListedUnresolved = 10

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Width(12)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24"))
)

// renderSummary formats the end-of-run report written to stderr.
func renderSummary(report app.Report, cfg *config.Config) string {
	var b strings.Builder

	runID := report.RunID
	if len(runID) > 8 {
		runID = runID[:8]
	}
	b.WriteString(titleStyle.Render("ctxpack") + " run " + runID + "\n")

	row := func(label, value string) {
		b.WriteString("  " + labelStyle.Render(label) + value + "\n")
	}

	row("target", util.RelSlash(report.Root, report.Target))
	row("files", successStyle.Render(fmt.Sprintf("%d", len(report.Result.Files)))+fmt.Sprintf(" (depth %d)", cfg.MaxDepth()))
	row("filtered", fmt.Sprintf("%d imports outside %s", report.Result.Filtered, prefixLabel(cfg.Project.BasePackage)))

	if n := len(report.Result.Unresolved); n > 0 {
		listed := report.Result.Unresolved
		if n > maxListedUnresolved {
			listed = listed[:maxListedUnresolved]
		}
		value := strings.Join(listed, ", ")
		if n > maxListedUnresolved {
			value += fmt.Sprintf(" and %d more", n-maxListedUnresolved)
		}
		row("unresolved", warningStyle.Render(fmt.Sprintf("%d", n))+" "+value)
	}

	output := report.OutputPath
	if output == "-" {
		output = "stdout"
	}
	row("output", fmt.Sprintf("%s (%s, %s)", output, cfg.Output.Format, humanize.Bytes(uint64(report.OutputBytes))))
	if report.GraphPath != "" {
		row("graph", fmt.Sprintf("%s (%s)", report.GraphPath, cfg.Output.GraphFormat))
	}

	index := fmt.Sprintf("%s entries", humanize.Comma(int64(report.IndexEntries)))
	if !report.Persistent {
		index += " (in memory)"
	}
	row("index", index)
	row("took", report.Duration.Round(time.Millisecond).String())
	return b.String()
}

func prefixLabel(prefix string) string {
	if strings.TrimSpace(prefix) == "" {
		return "(no prefix)"
	}
	return prefix
}
