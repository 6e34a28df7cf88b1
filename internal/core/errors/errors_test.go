package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "resource not found")
		if err.Error() != "[NOT_FOUND] resource not found" {
			t.Errorf("expected [NOT_FOUND] resource not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeReadCorrupt, "read failed")
		expected := "[READ_CORRUPT] read failed: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected wrapped error to unwrap to original")
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeTooLarge, "too big")
		if !IsCode(err, CodeTooLarge) {
			t.Error("expected IsCode to return true for CodeTooLarge")
		}
		if IsCode(err, CodeUnsupportedType) {
			t.Error("expected IsCode to return false for CodeUnsupportedType")
		}
	})

	t.Run("IsCodeThroughFmtWrap", func(t *testing.T) {
		err := fmt.Errorf("ingest: %w", New(CodeOracle, "oracle down"))
		if !IsCode(err, CodeOracle) {
			t.Error("expected IsCode to see through fmt.Errorf wrapping")
		}
	})

	t.Run("AddContext", func(t *testing.T) {
		err := AddContext(New(CodeReadTimeout, "slow"), CtxPath, "a.js")
		var de *DomainError
		if !errors.As(err, &de) {
			t.Fatal("expected a DomainError")
		}
		if de.Context[CtxPath] != "a.js" {
			t.Errorf("expected path context, got %v", de.Context)
		}

		plain := AddContext(errors.New("boom"), CtxOperation, "load")
		if CodeOf(plain) != CodeInternal {
			t.Errorf("expected plain errors to be wrapped as internal, got %s", CodeOf(plain))
		}
	})
}

func TestClassOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ""},
		{"too large", New(CodeTooLarge, "x"), ClassValidation},
		{"unsupported", New(CodeUnsupportedType, "x"), ClassValidation},
		{"timeout", New(CodeReadTimeout, "x"), ClassRead},
		{"exhausted", Wrap(New(CodeReadCorrupt, "x"), CodeReadExhausted, "y"), ClassRead},
		{"oracle", New(CodeOracle, "x"), ClassOracle},
		{"aggregation", New(CodeAggregation, "x"), ClassAggregation},
		{"canceled", fmt.Errorf("stop: %w", context.Canceled), ClassCanceled},
		{"plain", errors.New("x"), ClassInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassOf(tc.err); got != tc.want {
				t.Fatalf("ClassOf() = %q, want %q", got, tc.want)
			}
		})
	}
}
