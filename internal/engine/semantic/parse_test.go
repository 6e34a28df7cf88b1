package semantic

import (
	"strings"
	"testing"

	"unpack/internal/core/model"

	"github.com/stretchr/testify/assert"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		want       model.SemanticResult
		structured bool
	}{
		{
			name:       "well formed",
			raw:        `{"summary":"Adds numbers","potentialThreats":["none"],"recommendations":["add tests"]}`,
			want:       model.SemanticResult{Summary: "Adds numbers", PotentialThreats: []string{"none"}, Recommendations: []string{"add tests"}},
			structured: true,
		},
		{
			name:       "fenced with whitespace",
			raw:        "\n```json\n{\"summary\":\"ok\",\"potentialThreats\":[],\"recommendations\":[]}\n```\n",
			want:       model.SemanticResult{Summary: "ok", PotentialThreats: []string{}, Recommendations: []string{}},
			structured: true,
		},
		{
			name:       "missing lists",
			raw:        `{"summary":"short"}`,
			want:       model.SemanticResult{Summary: "short", PotentialThreats: []string{}, Recommendations: []string{}},
			structured: true,
		},
		{
			name: "prose",
			raw:  "This file defines a small helper.",
			want: model.RawSemantic("This file defines a small helper."),
		},
		{
			name: "array payload",
			raw:  `["summary"]`,
			want: model.RawSemantic(`["summary"]`),
		},
		{
			name: "summary not a string",
			raw:  `{"summary":42}`,
			want: model.RawSemantic(`{"summary":42}`),
		},
		{
			name: "null summary",
			raw:  `{"summary":null}`,
			want: model.RawSemantic(`{"summary":null}`),
		},
		{
			name: "threats not a list",
			raw:  `{"summary":"x","potentialThreats":"many"}`,
			want: model.RawSemantic(`{"summary":"x","potentialThreats":"many"}`),
		},
		{
			name: "json null",
			raw:  "null",
			want: model.RawSemantic("null"),
		},
		{
			name: "empty",
			raw:  "",
			want: model.RawSemantic(""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, structured := ParseResponse(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.structured, structured)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("src/app.ts", "const a = 1;\n")

	assert.Contains(t, p, `"src/app.ts"`)
	assert.Contains(t, p, "const a = 1;")
	for _, key := range []string{"summary", "potentialThreats", "recommendations"} {
		assert.True(t, strings.Contains(p, key), "prompt missing %s", key)
	}
}
