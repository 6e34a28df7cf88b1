package semantic

import (
	"fmt"
	"strings"
)

const promptTemplate = `Analyze the following code from file %q:

%s

Please provide:
1. A brief summary of what the code does
2. Any potential security threats or vulnerabilities
3. Recommendations for improvements

Format the response as JSON with exactly these keys: summary (string), potentialThreats (array of strings), recommendations (array of strings)`

// BuildPrompt embeds the file name and full content into the fixed request.
func BuildPrompt(filename, content string) string {
	return fmt.Sprintf(promptTemplate, filename, strings.TrimRight(content, "\n"))
}
