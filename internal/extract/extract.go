// Package extract turns raw model output into a code body and the parameter
// names its functions declare.
package extract

import (
	"regexp"
	"sort"
	"strings"
)

// Fence is the language-tagged marker that opens a code block in model output.
const Fence = "```python"

var (
	fencedBlock = regexp.MustCompile("(?s)" + regexp.QuoteMeta(Fence) + "\n(.*?)\n```")
	funcHeader  = regexp.MustCompile(`def\s+\w+\((.*?)\):`)
)

// Extract returns the code found in text and the parameter names declared by
// every function definition in it. When no fenced block is present the whole
// trimmed text is treated as code. It never fails; the parameter slice is
// sorted and never nil.
func Extract(text string) (string, []string) {
	code := Code(text)
	return code, Parameters(code)
}

// Code returns the trimmed interior of the first fenced block, or the trimmed
// input when there is none.
func Code(text string) string {
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// Parameters scans code for `def name(...):` headers and collects the
// argument names, dropping defaults and annotations.
func Parameters(code string) []string {
	seen := make(map[string]struct{})
	for _, m := range funcHeader.FindAllStringSubmatch(code, -1) {
		for _, raw := range strings.Split(m[1], ",") {
			name := paramName(raw)
			if name == "" {
				continue
			}
			seen[name] = struct{}{}
		}
	}

	params := make([]string, 0, len(seen))
	for name := range seen {
		params = append(params, name)
	}
	sort.Strings(params)
	return params
}

func paramName(raw string) string {
	name := strings.TrimSpace(raw)
	if i := strings.Index(name, "="); i >= 0 {
		name = name[:i]
	}
	if i := strings.Index(name, ":"); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}
