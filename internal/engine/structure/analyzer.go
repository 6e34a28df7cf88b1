// Package structure extracts declared function and class names from source
// text with an ordered regex cleaning pipeline. Results are heuristic and the
// analyzer never fails outward.
package structure

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"unpack/internal/core/errors"
	"unpack/internal/core/model"
	"unpack/internal/core/ports"
)

// DefaultFrameworkTokens mark class names treated as UI components.
var DefaultFrameworkTokens = []string{"React", "Vue", "Angular", "Svelte"}

type Analyzer struct {
	stages          []Stage
	frameworkTokens []string
}

var _ ports.StructuralAnalyzer = (*Analyzer)(nil)

func New(frameworkTokens []string) *Analyzer {
	if frameworkTokens == nil {
		frameworkTokens = DefaultFrameworkTokens
	}
	return &Analyzer{stages: Stages, frameworkTokens: frameworkTokens}
}

// WithStages swaps the cleaning pipeline.
func (a *Analyzer) WithStages(stages []Stage) *Analyzer {
	a.stages = stages
	return a
}

func (a *Analyzer) Analyze(text string) (result model.StructuralResult) {
	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprintf("analysis panicked: %v", r)
			slog.Warn("structural analysis failed", "error", errors.New(errors.CodeStructural, reason))
			result = model.FailedStructure(reason)
		}
	}()

	if strings.TrimSpace(text) == "" {
		return model.EmptyStructure()
	}
	if !utf8.ValidString(text) {
		return model.FailedStructure("content is not valid UTF-8")
	}

	cleaned := cleanWith(a.stages, text)
	functions := ExtractFunctions(cleaned)
	classes := ExtractClasses(cleaned, a.frameworkTokens)
	if len(functions) == 0 && len(classes) == 0 {
		return model.EmptyStructure()
	}
	return model.Analyzed(functions, classes)
}
