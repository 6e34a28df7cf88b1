// Package validate admits or rejects submitted candidates before any content
// is read.
package validate

import (
	"fmt"

	"unpack/internal/core/errors"
	"unpack/internal/core/model"
	"unpack/internal/core/ports"
)

// Validator checks size first, then extension.
type Validator struct {
	maxBytes int64
	allowed  map[string]bool
}

var _ ports.CandidateValidator = (*Validator)(nil)

// New builds a validator. Extensions are expected in normalized form
// (lower-case, leading dot), as produced by config loading.
func New(maxBytes int64, extensions []string) *Validator {
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[ext] = true
	}
	return &Validator{maxBytes: maxBytes, allowed: allowed}
}

func (v *Validator) Validate(c model.Candidate) error {
	if c.Size > v.maxBytes {
		return reject(errors.CodeTooLarge, c, fmt.Sprintf("%d bytes exceeds the %d byte limit", c.Size, v.maxBytes)).
			WithContext(errors.CtxSize, c.Size)
	}

	ext := c.Extension()
	if ext == "" {
		return reject(errors.CodeUnsupportedType, c, "file has no extension")
	}
	if !v.allowed[ext] {
		return reject(errors.CodeUnsupportedType, c, fmt.Sprintf("extension %s is not allowed", ext))
	}
	return nil
}

func reject(code errors.ErrorCode, c model.Candidate, msg string) *errors.DomainError {
	de := &errors.DomainError{Code: code, Message: msg}
	return de.WithContext(errors.CtxPath, c.Name)
}
