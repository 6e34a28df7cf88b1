package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"unpack/internal/engine/secrets"
)

// Oracle is the external analysis service: one prompt in, one text reply out.
type Oracle interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// FakeOracle answers offline with a deterministic structured reply. Reply,
// when set, replaces the built-in heuristic. Detector defaults to the
// built-in credential rules.
type FakeOracle struct {
	Reply    func(prompt string) (string, error)
	Detector *secrets.Detector
}

var (
	defaultDetectorOnce sync.Once
	defaultDetector     *secrets.Detector
)

func builtInDetector() *secrets.Detector {
	defaultDetectorOnce.Do(func() {
		d, err := secrets.NewDetector(secrets.Config{})
		if err != nil {
			panic(fmt.Sprintf("built-in secret rules: %v", err))
		}
		defaultDetector = d
	})
	return defaultDetector
}

func (f *FakeOracle) Name() string { return "fake" }

func (f *FakeOracle) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Reply != nil {
		return f.Reply(prompt)
	}
	d := f.Detector
	if d == nil {
		d = builtInDetector()
	}
	return offlineReview(prompt, d), nil
}

var riskyTokens = []struct {
	token  string
	threat string
	advice string
}{
	{"eval(", "Dynamic evaluation with eval can execute injected code", "Replace eval with explicit parsing"},
	{"innerHTML", "Assigning innerHTML can introduce cross-site scripting", "Use textContent or a sanitizer"},
	{"exec(", "Process or statement execution may be injectable", "Validate and escape arguments passed to exec"},
	{"http://", "Plain HTTP endpoint without transport security", "Prefer https endpoints"},
}

// promptHeaderLines is the number of template lines before the file content.
var promptHeaderLines = strings.Count(promptTemplate[:strings.Index(promptTemplate, "%s")], "\n")

func offlineReview(prompt string, detector *secrets.Detector) string {
	lines := strings.Count(prompt, "\n") + 1
	reply := struct {
		Summary          string   `json:"summary"`
		PotentialThreats []string `json:"potentialThreats"`
		Recommendations  []string `json:"recommendations"`
	}{
		Summary:          fmt.Sprintf("Offline review of a %d line request; no remote model was consulted.", lines),
		PotentialThreats: []string{},
		Recommendations:  []string{},
	}
	lower := strings.ToLower(prompt)
	for _, r := range riskyTokens {
		if strings.Contains(lower, strings.ToLower(r.token)) {
			reply.PotentialThreats = append(reply.PotentialThreats, r.threat)
			reply.Recommendations = append(reply.Recommendations, r.advice)
		}
	}
	credentials := 0
	for _, f := range detector.Detect(prompt) {
		if f.Line <= promptHeaderLines {
			continue
		}
		f.Line -= promptHeaderLines
		reply.PotentialThreats = append(reply.PotentialThreats, "Possible hard-coded credential: "+f.String())
		credentials++
	}
	if credentials > 0 {
		reply.Recommendations = append(reply.Recommendations, "Load secrets from the environment or a vault")
	}
	data, _ := json.Marshal(reply)
	return string(data)
}
