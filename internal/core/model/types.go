package model

import (
	"path"
	"strings"
	"time"
)

// Candidate is a submitted file that has not been processed yet.
type Candidate struct {
	Name         string // slash-separated, must carry an extension
	DeclaredType string // MIME-like type supplied by the submitter
	Size         int64
	Source       Source
}

// Extension returns the lower-cased extension of the candidate's base name,
// including the leading dot, or "" when there is none.
func (c Candidate) Extension() string {
	return Extension(c.Name)
}

// Extension returns the lower-cased extension of name's last path segment.
func Extension(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	idx := strings.LastIndex(base, ".")
	if idx < 0 || idx == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[idx:])
}

type ProcessedFile struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Content      string            `json:"content"`
	DeclaredType string            `json:"type"`
	Size         int64             `json:"size"`
	Hash         string            `json:"hash"`
	CreatedAt    time.Time         `json:"timestamp"`
	Structure    *StructuralResult `json:"structure,omitempty"`
	Semantic     *SemanticResult   `json:"aiAnalysis,omitempty"`
}

type StructuralKind string

const (
	StructureAnalyzed StructuralKind = "CodeAnalysis"
	StructureEmpty    StructuralKind = "EmptyAnalysis"
	StructureFailed   StructuralKind = "Error"
)

// StructuralResult is the heuristic function/class extraction for one file.
type StructuralResult struct {
	Kind      StructuralKind `json:"type"`
	Functions []string       `json:"functions"`
	Classes   []string       `json:"classes"`
	Reason    string         `json:"error,omitempty"`
}

func Analyzed(functions, classes []string) StructuralResult {
	return StructuralResult{Kind: StructureAnalyzed, Functions: nonNil(functions), Classes: nonNil(classes)}
}

func EmptyStructure() StructuralResult {
	return StructuralResult{Kind: StructureEmpty, Functions: []string{}, Classes: []string{}}
}

func FailedStructure(reason string) StructuralResult {
	return StructuralResult{Kind: StructureFailed, Functions: []string{}, Classes: []string{}, Reason: reason}
}

type SemanticResult struct {
	Summary          string   `json:"summary"`
	PotentialThreats []string `json:"potentialThreats"`
	Recommendations  []string `json:"recommendations"`
}

// RawSemantic is the fallback used when the oracle reply is not structured.
func RawSemantic(raw string) SemanticResult {
	return SemanticResult{Summary: raw, PotentialThreats: []string{}, Recommendations: []string{}}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
