// Package semantic asks an external oracle for a natural-language assessment
// of a file and degrades to the raw reply when it is not structured.
package semantic

import (
	"context"
	"log/slog"

	"unpack/internal/core/errors"
	"unpack/internal/core/model"
	"unpack/internal/core/ports"
	"unpack/internal/shared/observability"
)

type Client struct {
	oracle Oracle
}

var _ ports.SemanticAnalyzer = (*Client)(nil)

func NewClient(oracle Oracle) *Client {
	return &Client{oracle: oracle}
}

// Analyze fails only when the oracle call itself fails. Unparseable replies
// are absorbed into a raw-text result.
func (c *Client) Analyze(ctx context.Context, text, filename string) (model.SemanticResult, error) {
	raw, err := c.oracle.Generate(ctx, BuildPrompt(filename, text))
	if err != nil {
		return model.SemanticResult{}, errors.AddContext(
			errors.Wrap(err, errors.CodeOracle, "oracle "+c.oracle.Name()+" call failed"),
			errors.CtxPath, filename)
	}

	res, structured := ParseResponse(raw)
	if !structured {
		observability.OracleRequestsTotal.WithLabelValues("fallback").Inc()
		slog.Debug("oracle reply was not structured, using raw text", "path", filename, "bytes", len(raw))
	}
	return res, nil
}
