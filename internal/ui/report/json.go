package report

import (
	"encoding/json"
	"io"
	"time"

	"unpack/internal/core/model"
	"unpack/internal/core/pipeline"
)

// Document is the machine-readable form of a batch.
type Document struct {
	Outcome    string                `json:"outcome"`
	Submitted  int                   `json:"submitted"`
	Succeeded  int                   `json:"succeeded"`
	StartedAt  time.Time             `json:"startedAt"`
	FinishedAt time.Time             `json:"finishedAt"`
	Files      []model.ProcessedFile `json:"files"`
	Failures   []Problem             `json:"failures"`
	Warnings   []Problem             `json:"warnings"`
}

type Problem struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Class string `json:"class"`
	Error string `json:"error"`
}

type JSONOptions struct {
	// OmitContent drops file bodies, keeping derived results only.
	OmitContent bool
	Indent      bool
}

func NewDocument(res pipeline.Result, opts JSONOptions) Document {
	doc := Document{
		Outcome:    string(res.Outcome()),
		Submitted:  res.Submitted,
		Succeeded:  len(res.Files),
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Files:      make([]model.ProcessedFile, 0, len(res.Files)),
		Failures:   make([]Problem, 0, len(res.Failures)),
		Warnings:   make([]Problem, 0, len(res.Warnings)),
	}
	for _, f := range res.Files {
		f = f.Clone()
		if opts.OmitContent {
			f.Content = ""
		}
		doc.Files = append(doc.Files, f)
	}
	for _, f := range res.Failures {
		doc.Failures = append(doc.Failures, Problem{Index: f.Index, Name: f.Name, Class: string(f.Class), Error: errString(f.Err)})
	}
	for _, w := range res.Warnings {
		doc.Warnings = append(doc.Warnings, Problem{Index: w.Index, Name: w.Name, Class: string(w.Class), Error: errString(w.Err)})
	}
	return doc
}

func WriteJSON(w io.Writer, res pipeline.Result, opts JSONOptions) error {
	enc := json.NewEncoder(w)
	if opts.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(NewDocument(res, opts))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
