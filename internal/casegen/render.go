// Package casegen turns a story definition, a difficulty tier and a seed into
// one concrete generated case. Generation is fully deterministic for a given
// seed: every random decision draws from a single shared stream in a fixed
// pipeline order.
package casegen

import (
	"fmt"
	"regexp"
	"strings"
)

// Context is one resolved snapshot of a story's variable pools: every pool
// collapsed to a single picked variant. Built once per generation, read-only
// afterwards.
type Context map[string]any

var (
	bracePattern  = regexp.MustCompile(`\{\{\s*([\w.]+)\s*\}\}`)
	dollarPattern = regexp.MustCompile(`\$\{\s*([\w.]+)\s*\}`)
)

// Render substitutes {{dotted.path}} and ${dotted.path} placeholders with
// values looked up from the context. Unresolved paths render as the empty
// string, never an error.
func Render(template string, context Context) string {
	if template == "" {
		return ""
	}
	replace := func(pattern *regexp.Regexp, s string) string {
		return pattern.ReplaceAllStringFunc(s, func(match string) string {
			path := pattern.FindStringSubmatch(match)[1]
			return lookupString(context, path)
		})
	}
	return replace(dollarPattern, replace(bracePattern, template))
}

// lookupString resolves a dotted path in the context and formats the result.
func lookupString(context Context, path string) string {
	var node any = map[string]any(context)
	for _, segment := range strings.Split(path, ".") {
		object, ok := node.(map[string]any)
		if !ok {
			return ""
		}
		if node, ok = object[segment]; !ok {
			return ""
		}
	}
	switch value := node.(type) {
	case nil:
		return ""
	case string:
		return value
	default:
		return fmt.Sprintf("%v", value)
	}
}
