package structure

import (
	"regexp"
	"strings"
)

// Stage is one named text transform in the cleaning pipeline.
type Stage struct {
	Name  string
	Apply func(string) string
}

// Stages is the cleaning pipeline. Order matters: each stage assumes the
// noise removed by the earlier ones is already gone.
var Stages = []Stage{
	{Name: "block-comments", Apply: replaceWith(blockCommentRe, "")},
	{Name: "line-comments", Apply: replaceWith(lineCommentRe, "")},
	{Name: "string-literals", Apply: replaceWith(stringLiteralRe, `""`)},
	{Name: "module-declarations", Apply: stripModuleDeclarations},
	{Name: "markup", Apply: stripMarkup},
	{Name: "type-annotations", Apply: replaceWith(typeAnnotationRe, "$1")},
	{Name: "type-declarations", Apply: replaceWith(typeDeclarationRe, "")},
	{Name: "modifiers", Apply: stripModifiers},
	{Name: "generics", Apply: stripGenerics},
	{Name: "bodies", Apply: replaceWith(innerBodyRe, "{}")},
}

var (
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentRe  = regexp.MustCompile(`//[^\n]*`)

	// Double and single quoted literals stay on one line; template literals
	// may span lines.
	stringLiteralRe = regexp.MustCompile(`"(?:\\.|[^"\\\n])*"|'(?:\\.|[^'\\\n])*'|` + "`(?:\\\\.|[^`\\\\])*`")

	importStartRe = regexp.MustCompile(`^(?:import\b|from\s+[\w.]+\s+import\b)`)
	exportStartRe = regexp.MustCompile(`^export\b`)
	exportDeclRe  = regexp.MustCompile(`^(\s*)export\s+(?:default\s+)?((?:async\s+)?(?:function|class|const|let|var|abstract|interface|type|enum|def)\b)`)

	pairedTagRe = regexp.MustCompile(`<[A-Za-z][\w.:-]*(?:\s[^<>]*)?>[^<]*</[A-Za-z][\w.:-]*\s*>`)
	loneTagRe   = regexp.MustCompile(`</?[A-Za-z][\w.:-]*(?:\s[^<>]*)?/?>`)

	typeAnnotationRe  = regexp.MustCompile(`:[ \t]*[\w \t<>\[\]|&?.]+([,);={\n])`)
	typeDeclarationRe = regexp.MustCompile(`(?m)^[ \t]*(?:interface|type)[ \t]+[^{;\n]*\{[\s\S]*?\}`)

	modifierRe  = regexp.MustCompile(`\b(?:public|private|protected|readonly|static|abstract|override)\s+`)
	decoratorRe = regexp.MustCompile(`@[\w.]+(?:\([^)\n]*\))?`)

	genericRe   = regexp.MustCompile(`<[\w \t,.\[\]]*>`)
	innerBodyRe = regexp.MustCompile(`\{[^{}]*\}`)
)

// Clean runs every stage in order.
func Clean(text string) string {
	return cleanWith(Stages, text)
}

func cleanWith(stages []Stage, text string) string {
	for _, st := range stages {
		text = st.Apply(text)
	}
	return text
}

func replaceWith(re *regexp.Regexp, repl string) func(string) string {
	return func(s string) string {
		return re.ReplaceAllString(s, repl)
	}
}

// stripModuleDeclarations drops import lines, including multi-line brace or
// paren groups. For "export [default] <declaration>" only the keyword goes;
// other export lines are dropped.
func stripModuleDeclarations(src string) string {
	lines := strings.Split(src, "\n")
	out := make([]string, 0, len(lines))
	closer := ""
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if closer != "" {
			if strings.Contains(trimmed, closer) {
				closer = ""
			}
			continue
		}

		if importStartRe.MatchString(trimmed) || (exportStartRe.MatchString(trimmed) && !exportDeclRe.MatchString(line)) {
			closer = openGroup(trimmed)
			continue
		}
		if exportDeclRe.MatchString(line) {
			line = exportDeclRe.ReplaceAllString(line, "$1$2")
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// openGroup returns the closing delimiter when line opens a brace or paren
// group it does not close.
func openGroup(line string) string {
	if strings.Count(line, "{") > strings.Count(line, "}") {
		return "}"
	}
	if strings.Count(line, "(") > strings.Count(line, ")") {
		return ")"
	}
	return ""
}

func stripMarkup(s string) string {
	s = pairedTagRe.ReplaceAllString(s, "")
	return loneTagRe.ReplaceAllString(s, "")
}

func stripModifiers(s string) string {
	s = modifierRe.ReplaceAllString(s, "")
	return decoratorRe.ReplaceAllString(s, "")
}

// stripGenerics removes innermost angle-bracket groups until none remain, so
// nested generics collapse from the inside out.
func stripGenerics(s string) string {
	for {
		next := genericRe.ReplaceAllString(s, "")
		if next == s {
			return next
		}
		s = next
	}
}
