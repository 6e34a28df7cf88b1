package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"unpack/internal/core/pipeline"
)

// Markdown renders the batch as a Markdown document with one section per
// ingested file.
func Markdown(res pipeline.Result) string {
	var b strings.Builder
	b.WriteString("# Ingestion report\n\n")
	b.WriteString(OutcomeLine(res))
	b.WriteString("\n\n")

	if len(res.Files) > 0 {
		b.WriteString("| File | Type | Size | Hash | Structure |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, f := range res.Files {
			b.WriteString(fmt.Sprintf("| `%s` | %s | %s | `%s` | %s |\n",
				f.Name, f.DeclaredType, humanBytes(f.Size), shortHash(f.Hash), FileSummary(f)))
		}
		b.WriteString("\n")
	}

	for _, f := range res.Files {
		if f.Semantic == nil {
			continue
		}
		b.WriteString(fmt.Sprintf("## %s\n\n%s\n", f.Name, strings.TrimSpace(f.Semantic.Summary)))
		if len(f.Semantic.PotentialThreats) > 0 {
			b.WriteString("\n**Potential threats**\n\n")
			for _, t := range f.Semantic.PotentialThreats {
				b.WriteString("- " + t + "\n")
			}
		}
		if len(f.Semantic.Recommendations) > 0 {
			b.WriteString("\n**Recommendations**\n\n")
			for _, r := range f.Semantic.Recommendations {
				b.WriteString("- " + r + "\n")
			}
		}
		b.WriteString("\n")
	}

	if len(res.Failures) > 0 {
		b.WriteString("## Failures\n\n")
		for _, f := range res.Failures {
			b.WriteString(fmt.Sprintf("- `%s` (%s): %v\n", f.Name, f.Class, f.Err))
		}
		b.WriteString("\n")
	}
	if len(res.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range res.Warnings {
			b.WriteString(fmt.Sprintf("- `%s` (%s): %v\n", w.Name, w.Class, w.Err))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// WriteFileAtomic replaces filePath through a temp file in the same
// directory so readers never see a partial report.
func WriteFileAtomic(filePath string, data []byte) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".unpack-report-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %q: %w", filePath, err)
	}
	tmpName := tmp.Name()

	writeErr := error(nil)
	if _, err := tmp.Write(data); err != nil {
		writeErr = fmt.Errorf("write temp report file %q: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil && writeErr == nil {
		writeErr = fmt.Errorf("close temp report file %q: %w", tmpName, err)
	}
	if writeErr != nil {
		_ = os.Remove(tmpName)
		return writeErr
	}

	if err := os.Rename(tmpName, filePath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace report file %q: %w", filePath, err)
	}
	return nil
}
