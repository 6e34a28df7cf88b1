// Package secrets flags likely credentials in file content. The offline
// oracle reports its findings as potential threats.
package secrets

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

type PatternConfig struct {
	Name     string
	Regex    string
	Severity string
}

type Config struct {
	EntropyThreshold float64
	MinTokenLength   int
	Patterns         []PatternConfig
}

// Finding is one suspected credential. Value is masked.
type Finding struct {
	Rule       string
	Severity   string
	Line       int
	Column     int
	Value      string
	Entropy    float64
	Confidence float64
}

type rule struct {
	name     string
	severity string
	re       *regexp.Regexp
}

type Detector struct {
	entropyThreshold float64
	minTokenLength   int
	rules            []rule
	sensitiveNameRE  *regexp.Regexp
	quotedValueRE    *regexp.Regexp
	quotedTokenRE    *regexp.Regexp
}

var builtInPatterns = []PatternConfig{
	{Name: "aws-access-key-id", Severity: "high", Regex: `\bAKIA[0-9A-Z]{16}\b`},
	{Name: "github-pat", Severity: "high", Regex: `\bghp_[A-Za-z0-9]{36}\b`},
	{Name: "google-api-key", Severity: "high", Regex: `\bAIza[0-9A-Za-z_\-]{35}\b`},
	{Name: "stripe-live-secret", Severity: "high", Regex: `\bsk_live_[A-Za-z0-9]{16,}\b`},
	{Name: "slack-token", Severity: "high", Regex: `\bxox[baprs]-[A-Za-z0-9-]{10,}\b`},
	{Name: "private-key-block", Severity: "critical", Regex: `-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`},
}

func NewDetector(cfg Config) (*Detector, error) {
	if cfg.EntropyThreshold <= 0 {
		cfg.EntropyThreshold = 4.0
	}
	if cfg.MinTokenLength <= 0 {
		cfg.MinTokenLength = 20
	}

	rules, err := compileRules(append(append([]PatternConfig(nil), builtInPatterns...), cfg.Patterns...))
	if err != nil {
		return nil, err
	}

	return &Detector{
		entropyThreshold: cfg.EntropyThreshold,
		minTokenLength:   cfg.MinTokenLength,
		rules:            rules,
		sensitiveNameRE:  regexp.MustCompile(`(?i)\b(password|passwd|pwd|secret|api[_-]?key|token|auth[_-]?token|access[_-]?key|private[_-]?key|client[_-]?secret)\b`),
		quotedValueRE:    regexp.MustCompile(`"([^"\r\n]{4,})"|'([^'\r\n]{4,})'`),
		quotedTokenRE:    regexp.MustCompile(`"([A-Za-z0-9_\-+=:/.]{12,})"|'([A-Za-z0-9_\-+=:/.]{12,})'`),
	}, nil
}

// Detect returns findings ordered by position. A span matched by several
// passes is reported once, by the most confident pass.
func (d *Detector) Detect(text string) []Finding {
	if text == "" {
		return nil
	}

	index := buildLineIndex(text)
	found := make(map[int]Finding)
	add := func(start int, f Finding) {
		if existing, ok := found[start]; ok && existing.Confidence >= f.Confidence {
			return
		}
		f.Line, f.Column = index.lineCol(start)
		found[start] = f
	}

	for _, r := range d.rules {
		for _, loc := range r.re.FindAllStringIndex(text, -1) {
			value := text[loc[0]:loc[1]]
			if isPlaceholder(value) {
				continue
			}
			add(loc[0], Finding{Rule: r.name, Severity: r.severity, Value: value, Entropy: shannonEntropy(value), Confidence: 0.99})
		}
	}

	offset := 0
	for _, line := range strings.Split(text, "\n") {
		if d.sensitiveNameRE.MatchString(line) {
			for _, m := range d.quotedValueRE.FindAllStringSubmatchIndex(line, -1) {
				start, end, ok := firstGroup(m)
				if !ok {
					continue
				}
				value := line[start:end]
				if len(value) < d.minTokenLength || isPlaceholder(value) {
					continue
				}
				entropy := shannonEntropy(value)
				if entropy < d.entropyThreshold*0.8 {
					continue
				}
				confidence := 0.70
				if entropy >= d.entropyThreshold {
					confidence = 0.85
				}
				add(offset+start, Finding{Rule: "sensitive-assignment", Severity: "medium", Value: value, Entropy: entropy, Confidence: confidence})
			}
		}
		offset += len(line) + 1
	}

	for _, m := range d.quotedTokenRE.FindAllStringSubmatchIndex(text, -1) {
		start, end, ok := firstGroup(m)
		if !ok {
			continue
		}
		value := text[start:end]
		if len(value) < d.minTokenLength || isPlaceholder(value) || !hasLetterAndDigit(value) {
			continue
		}
		entropy := shannonEntropy(value)
		if entropy < d.entropyThreshold {
			continue
		}
		add(start, Finding{Rule: "high-entropy-string", Severity: "low", Value: value, Entropy: entropy, Confidence: 0.6})
	}

	out := make([]Finding, 0, len(found))
	for _, f := range found {
		f.Value = MaskValue(f.Value)
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Column < out[j].Column
	})
	return out
}

func (f Finding) String() string {
	return fmt.Sprintf("%s (%s) at line %d: %s", f.Rule, f.Severity, f.Line, f.Value)
}

func compileRules(cfg []PatternConfig) ([]rule, error) {
	out := make([]rule, 0, len(cfg))
	for _, p := range cfg {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, fmt.Errorf("secret pattern name must not be empty")
		}
		expr := strings.TrimSpace(p.Regex)
		if expr == "" {
			return nil, fmt.Errorf("secret pattern %q regex must not be empty", name)
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compile secret pattern %q: %w", name, err)
		}
		severity := strings.ToLower(strings.TrimSpace(p.Severity))
		if severity == "" {
			severity = "medium"
		}
		out = append(out, rule{name: name, severity: severity, re: re})
	}
	return out, nil
}

func hasLetterAndDigit(value string) bool {
	var letter, digit bool
	for _, r := range value {
		letter = letter || unicode.IsLetter(r)
		digit = digit || unicode.IsDigit(r)
		if letter && digit {
			return true
		}
	}
	return false
}

func isPlaceholder(value string) bool {
	lower := strings.ToLower(value)
	for _, marker := range []string{"example", "sample", "dummy", "placeholder", "changeme", "notasecret", "test"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func shannonEntropy(value string) float64 {
	runes := []rune(value)
	if len(runes) == 0 {
		return 0
	}
	freq := make(map[rune]float64)
	for _, r := range runes {
		freq[r]++
	}
	n := float64(len(runes))
	entropy := 0.0
	for _, count := range freq {
		p := count / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}

type lineIndex []int

func buildLineIndex(text string) lineIndex {
	starts := lineIndex{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (idx lineIndex) lineCol(offset int) (int, int) {
	line := sort.Search(len(idx), func(i int) bool { return idx[i] > offset }) - 1
	if line < 0 {
		return 1, 1
	}
	return line + 1, offset - idx[line] + 1
}

func MaskValue(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + "..." + value[len(value)-4:]
}

func firstGroup(match []int) (int, int, bool) {
	for i := 2; i+1 < len(match); i += 2 {
		if match[i] >= 0 && match[i+1] >= 0 {
			return match[i], match[i+1], true
		}
	}
	return 0, 0, false
}
