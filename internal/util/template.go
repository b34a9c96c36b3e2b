package util

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

var funcs = template.FuncMap{
	"default": func(defaultVal any, val any) any {
		if val == nil || val == "" {
			return defaultVal
		}
		return val
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"join": func(sep string, items []any) string {
		strItems := make([]string, len(items))
		for i, item := range items {
			strItems[i] = fmt.Sprintf("%v", item)
		}
		return strings.Join(strItems, sep)
	},
}

// ParseTemplate parses text with the instruction FuncMap. Text without
// template markers yields a nil template and no error.
func ParseTemplate(text string) (*template.Template, error) {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return nil, nil
	}
	return template.New("instruction").Funcs(funcs).Parse(text)
}

// RenderTemplate renders text as a Go text/template against vars. Text
// without template markers is returned unchanged.
// This lives in internal to avoid committing to public API stability prematurely.
func RenderTemplate(text string, vars map[string]any) (string, error) {
	tmpl, err := ParseTemplate(text)
	if err != nil {
		return "", err
	}
	if tmpl == nil {
		return text, nil
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", err
	}

	return buf.String(), nil
}
