package services

import (
	"fmt"
	"regexp"
	"strings"
)

// ResolveField walks a dotted path through a plain key/value tree and
// returns the value at the end, or nil if any segment is missing or an
// intermediate value is not a map. It never panics. Custom attributes are
// just a nested object under the "customFields" key, so a path like
// "customFields.priority" needs no special casing.
func ResolveField(path string, root map[string]interface{}) interface{} {
	if path == "" || root == nil {
		return nil
	}
	var current interface{} = root
	for _, segment := range strings.Split(path, ".") {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		value, ok := node[segment]
		if !ok {
			return nil
		}
		current = value
	}
	return current
}

var templateVarRe = regexp.MustCompile(`\{\{\s*([^}]+?)\s*\}\}`)

// RenderTemplate substitutes {{path}} placeholders with values resolved
// against root. A placeholder may carry a quoted fallback used when the
// path resolves to nothing: {{first_name || 'there'}}.
func RenderTemplate(tpl string, root map[string]interface{}) string {
	return templateVarRe.ReplaceAllStringFunc(tpl, func(match string) string {
		expr := strings.TrimSpace(templateVarRe.FindStringSubmatch(match)[1])
		path := expr
		fallback := ""
		if idx := strings.Index(expr, "||"); idx >= 0 {
			path = strings.TrimSpace(expr[:idx])
			fallback = strings.Trim(strings.TrimSpace(expr[idx+2:]), `'"`)
		}
		value := ResolveField(path, root)
		if value == nil || value == "" {
			return fallback
		}
		return stringify(value)
	})
}

// stringify renders a resolved value the way a rule author would expect:
// integral floats without a trailing ".0" (JSON decoding turns all numbers
// into float64).
func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	case float32:
		return stringify(float64(t))
	default:
		return fmt.Sprintf("%v", v)
	}
}
