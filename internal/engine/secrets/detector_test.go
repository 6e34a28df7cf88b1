package secrets

import (
	"testing"
)

func TestDetectBuiltInPattern(t *testing.T) {
	d, err := NewDetector(Config{})
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}

	findings := d.Detect("package main\nconst key = \"AKIA1234567890ABCDEF\"\n")
	if len(findings) != 1 {
		t.Fatalf("expected one finding, got %#v", findings)
	}
	f := findings[0]
	if f.Rule != "aws-access-key-id" || f.Severity != "high" {
		t.Fatalf("unexpected finding %#v", f)
	}
	if f.Line != 2 || f.Column != 14 {
		t.Fatalf("expected line 2 column 14, got %d:%d", f.Line, f.Column)
	}
	if f.Value != "AKIA...CDEF" {
		t.Fatalf("expected masked value, got %q", f.Value)
	}
}

func TestDetectSensitiveAssignment(t *testing.T) {
	d, err := NewDetector(Config{EntropyThreshold: 3.5, MinTokenLength: 16})
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}

	findings := d.Detect("password = \"P4s$w0rdVeryLongToken99\"\n")
	found := false
	for _, f := range findings {
		if f.Rule == "sensitive-assignment" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected sensitive-assignment finding, got %#v", findings)
	}
}

func TestDetectHighEntropyString(t *testing.T) {
	d, err := NewDetector(Config{EntropyThreshold: 4.0, MinTokenLength: 12})
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}

	findings := d.Detect("value = \"A1b2C3d4E5f6G7h8I9j0\"\n")
	if len(findings) != 1 || findings[0].Rule != "high-entropy-string" {
		t.Fatalf("expected high-entropy finding, got %#v", findings)
	}
}

func TestDetectSkipsPlaceholders(t *testing.T) {
	d, err := NewDetector(Config{EntropyThreshold: 3.0, MinTokenLength: 10})
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}

	if findings := d.Detect("api_key = \"example_test_token_123456\"\n"); len(findings) != 0 {
		t.Fatalf("expected no findings for placeholder token, got %#v", findings)
	}
	if findings := d.Detect(""); findings != nil {
		t.Fatalf("expected nil for empty text, got %#v", findings)
	}
}

func TestDetectCustomPattern(t *testing.T) {
	d, err := NewDetector(Config{Patterns: []PatternConfig{{Name: "internal-token", Regex: `\bitk_[a-z0-9]{10}\b`}}})
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	findings := d.Detect("x\ny\nlet t = itk_abcdef1234;\n")
	if len(findings) != 1 || findings[0].Rule != "internal-token" || findings[0].Severity != "medium" || findings[0].Line != 3 {
		t.Fatalf("unexpected findings %#v", findings)
	}
}

func TestNewDetectorRejectsBadPatterns(t *testing.T) {
	cases := []PatternConfig{
		{Name: "", Regex: "x"},
		{Name: "empty", Regex: " "},
		{Name: "broken", Regex: "("},
	}
	for _, p := range cases {
		if _, err := NewDetector(Config{Patterns: []PatternConfig{p}}); err == nil {
			t.Fatalf("expected error for pattern %#v", p)
		}
	}
}

func TestMaskValue(t *testing.T) {
	if got := MaskValue("ABCDEFGH"); got != "********" {
		t.Fatalf("unexpected short mask result: %q", got)
	}
	if got := MaskValue("ABCDEFGHIJKLMNOP"); got != "ABCD...MNOP" {
		t.Fatalf("unexpected long mask result: %q", got)
	}
}

func TestFindingString(t *testing.T) {
	f := Finding{Rule: "github-pat", Severity: "high", Line: 4, Value: "ghp_...abcd"}
	if got := f.String(); got != "github-pat (high) at line 4: ghp_...abcd" {
		t.Fatalf("unexpected string %q", got)
	}
}
