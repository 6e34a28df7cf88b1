// Package report renders ingestion results for people and for tools.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"unpack/internal/core/model"
	"unpack/internal/core/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)
)

// OutcomeLine is the one-line verdict for a batch.
func OutcomeLine(res pipeline.Result) string {
	succeeded := len(res.Files)
	switch res.Outcome() {
	case pipeline.OutcomeEmpty:
		return "No files submitted."
	case pipeline.OutcomeComplete:
		return fmt.Sprintf("All %d files ingested.", succeeded)
	case pipeline.OutcomeNone:
		return fmt.Sprintf("No files could be ingested (%d failed).", len(res.Failures))
	default:
		return fmt.Sprintf("%d of %d files ingested; %d failed.", succeeded, res.Submitted, len(res.Failures))
	}
}

func outcomeStyle(o pipeline.Outcome) lipgloss.Style {
	switch o {
	case pipeline.OutcomeComplete:
		return successStyle
	case pipeline.OutcomeNone:
		return failureStyle
	case pipeline.OutcomePartial:
		return warningStyle
	default:
		return mutedStyle
	}
}

// WriteTerminal prints the batch summary: one line per ingested file, then
// every failure and warning with its class.
func WriteTerminal(w io.Writer, res pipeline.Result) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Ingestion report"))
	b.WriteString("\n")
	b.WriteString(outcomeStyle(res.Outcome()).Render(OutcomeLine(res)))
	if !res.StartedAt.IsZero() && !res.FinishedAt.IsZero() {
		b.WriteString(mutedStyle.Render(fmt.Sprintf(" (%v)", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))))
	}
	b.WriteString("\n")

	for _, f := range res.Files {
		b.WriteString(fmt.Sprintf("  %s %s %s %s\n",
			successStyle.Render("✔"),
			f.Name,
			mutedStyle.Render("["+shortHash(f.Hash)+"]"),
			FileSummary(f),
		))
	}
	for _, fail := range res.Failures {
		b.WriteString(fmt.Sprintf("  %s %s (%s): %v\n", failureStyle.Render("✘"), fail.Name, fail.Class, fail.Err))
	}
	for _, warn := range res.Warnings {
		b.WriteString(fmt.Sprintf("  %s %s (%s): %v\n", warningStyle.Render("!"), warn.Name, warn.Class, warn.Err))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// FileSummary condenses a file's derived results into a short phrase.
func FileSummary(f model.ProcessedFile) string {
	parts := []string{humanBytes(f.Size)}
	if s := f.Structure; s != nil {
		switch s.Kind {
		case model.StructureAnalyzed:
			parts = append(parts, fmt.Sprintf("%s, %s", plural(len(s.Functions), "function"), plural(len(s.Classes), "class")))
		case model.StructureEmpty:
			parts = append(parts, "no declarations")
		case model.StructureFailed:
			parts = append(parts, "structure failed")
		}
	}
	if f.Semantic != nil && len(f.Semantic.PotentialThreats) > 0 {
		parts = append(parts, plural(len(f.Semantic.PotentialThreats), "threat"))
	}
	return strings.Join(parts, ", ")
}

// RenderFile shows one tree leaf in full: metadata, derived results and
// content.
func RenderFile(node *model.FileNode) string {
	if !node.HasContent() {
		return mutedStyle.Render("nothing selected")
	}
	f := node.File

	var meta strings.Builder
	meta.WriteString(titleStyle.Render(f.Name))
	meta.WriteString("\n")
	meta.WriteString(fmt.Sprintf("id: %s\ntype: %s\nsize: %s\nhash: %s\n", f.ID, f.DeclaredType, humanBytes(f.Size), f.Hash))
	if s := f.Structure; s != nil {
		meta.WriteString(fmt.Sprintf("structure: %s\n", s.Kind))
		if len(s.Functions) > 0 {
			meta.WriteString("  functions: " + strings.Join(s.Functions, ", ") + "\n")
		}
		if len(s.Classes) > 0 {
			meta.WriteString("  classes: " + strings.Join(s.Classes, ", ") + "\n")
		}
		if s.Reason != "" {
			meta.WriteString("  error: " + s.Reason + "\n")
		}
	}
	if sem := f.Semantic; sem != nil {
		meta.WriteString("summary: " + sem.Summary + "\n")
		for _, t := range sem.PotentialThreats {
			meta.WriteString(warningStyle.Render("  threat: ") + t + "\n")
		}
		for _, r := range sem.Recommendations {
			meta.WriteString("  recommendation: " + r + "\n")
		}
	}

	return boxStyle.Render(strings.TrimRight(meta.String(), "\n")) + "\n" + f.Content
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	if strings.HasSuffix(word, "s") {
		return fmt.Sprintf("%d %ses", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
