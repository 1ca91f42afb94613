package submission

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/rotisserie/eris"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// Resolver resolves template paths
type Resolver interface {
	Lookup(path string) (string, bool)
}

// RenderString replaces every {{ path }} token the resolver knows. Unknown
// tokens are kept verbatim.
func RenderString(tmpl string, r Resolver) string {
	return tokenPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		path := tokenPattern.FindStringSubmatch(token)[1]
		if value, ok := r.Lookup(path); ok {
			return value
		}
		return token
	})
}

// RenderJSON decodes a JSON template and renders every string in it,
// walking objects and arrays. Object keys and non-string values are copied
// as they are. An empty template renders to an empty object.
func RenderJSON(raw []byte, r Resolver) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tmpl any
	if err := dec.Decode(&tmpl); err != nil {
		return nil, eris.Wrap(err, "invalid template")
	}
	return renderValue(tmpl, r), nil
}

func renderValue(v any, r Resolver) any {
	switch t := v.(type) {
	case string:
		return RenderString(t, r)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = renderValue(item, r)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = renderValue(item, r)
		}
		return out
	default:
		return v
	}
}

// RenderHeaders renders a header template, which must be a JSON object
func RenderHeaders(raw []byte, r Resolver) (map[string]string, error) {
	rendered, err := RenderJSON(raw, r)
	if err != nil {
		return nil, err
	}
	obj, ok := rendered.(map[string]any)
	if !ok {
		return nil, eris.New("header template must be a JSON object")
	}

	headers := make(map[string]string, len(obj))
	for name, value := range obj {
		if s, ok := value.(string); ok {
			headers[name] = s
			continue
		}
		headers[name] = fmt.Sprint(value)
	}
	return headers, nil
}
