package structure

import (
	"regexp"
	"strings"
)

const ident = `([A-Za-z$_][\w$]*)`

// functionPatterns run in order; names are kept in first-seen order across
// all of them.
var functionPatterns = []*regexp.Regexp{
	// function foo(, function* gen(, def foo(, func foo(, func (r *T) foo(
	regexp.MustCompile(`\b(?:function\s*\*?|def|func)\s+(?:\([^()]*\)\s*)?` + ident + `\s*\(`),
	// const foo = [async] function [name](
	regexp.MustCompile(`\b(?:const|let|var)\s+` + ident + `\s*=\s*(?:async\s+)?function\s*\*?\s*(?:[A-Za-z$_][\w$]*\s*)?\(`),
	// const foo = [async] (args) => / const foo = [async] arg =>
	regexp.MustCompile(`\b(?:const|let|var)\s+` + ident + `\s*=\s*(?:async\s+)?(?:\([^)]*\)|[A-Za-z$_][\w$]*)\s*=>`),
}

var classPattern = regexp.MustCompile(`\bclass\s+` + ident)

// ExtractFunctions collects declared function names from cleaned text.
func ExtractFunctions(cleaned string) []string {
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, re := range functionPatterns {
		for _, m := range re.FindAllStringSubmatch(cleaned, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				names = append(names, m[1])
			}
		}
	}
	return names
}

// ExtractClasses collects declared class names, skipping names that look like
// UI framework components.
func ExtractClasses(cleaned string, frameworkTokens []string) []string {
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, m := range classPattern.FindAllStringSubmatch(cleaned, -1) {
		name := m[1]
		if seen[name] || isComponentName(name, frameworkTokens) {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func isComponentName(name string, tokens []string) bool {
	if strings.HasSuffix(name, "Component") {
		return true
	}
	for _, tok := range tokens {
		if strings.Contains(name, tok) {
			return true
		}
	}
	return false
}
