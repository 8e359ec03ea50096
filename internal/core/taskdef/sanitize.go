// Package taskdef loads and sanitizes task-definition documents before
// registration. Documents authored by hand or echoed back by a describe
// call carry fields the RegisterTaskDefinition API rejects; Sanitize
// produces a copy that the API accepts as-is.
package taskdef

// serverAssignedFields are top-level fields set by ECS on registration.
// They come back from DescribeTaskDefinition but are invalid on a new
// RegisterTaskDefinition call.
var serverAssignedFields = []string{
	"compatibilities",
	"deregisteredAt",
	"registeredAt",
	"registeredBy",
	"requiresAttributes",
	"revision",
	"status",
	"taskDefinitionArn",
}

// Sanitize returns a copy of doc with every null value, empty string,
// empty sequence and empty mapping removed at any depth, and with
// server-assigned top-level fields dropped.
//
// The one exception is the properties list of an APPMESH proxy
// configuration: there an empty string is meaningful (explicitly unset
// rather than absent), so empty-string values survive inside it.
// Numeric 0 and boolean false are never treated as empty.
//
// The input is not mutated. Sanitize is idempotent.
func Sanitize(doc map[string]any) map[string]any {
	out, _ := cleanMapping(doc, false)
	if out == nil {
		out = map[string]any{}
	}
	for _, field := range serverAssignedFields {
		delete(out, field)
	}
	return out
}

// cleanValue returns the cleaned value and whether it should be kept.
// preserveEmpty keeps empty-string values; it is set only inside an
// APPMESH proxy configuration's properties.
func cleanValue(v any, preserveEmpty bool) (any, bool) {
	switch tv := v.(type) {
	case nil:
		return nil, false
	case string:
		if tv == "" && !preserveEmpty {
			return nil, false
		}
		return tv, true
	case map[string]any:
		m, ok := cleanMapping(tv, preserveEmpty)
		return m, ok
	case []any:
		s, ok := cleanSequence(tv, preserveEmpty)
		return s, ok
	default:
		// Numbers and booleans pass through, zero values included.
		return v, true
	}
}

func cleanMapping(m map[string]any, preserveEmpty bool) (map[string]any, bool) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		childPreserve := preserveEmpty
		if k == "properties" && isAppMeshProxy(m) {
			childPreserve = true
		}
		cleaned, keep := cleanValue(v, childPreserve)
		if keep {
			out[k] = cleaned
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func cleanSequence(s []any, preserveEmpty bool) ([]any, bool) {
	out := make([]any, 0, len(s))
	for _, v := range s {
		cleaned, keep := cleanValue(v, preserveEmpty)
		if keep {
			out = append(out, cleaned)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// isAppMeshProxy reports whether m is a proxy configuration tagged with
// the APPMESH type. Only inside such a configuration does an empty
// property value carry meaning distinct from an absent one.
func isAppMeshProxy(m map[string]any) bool {
	t, ok := m["type"].(string)
	return ok && t == "APPMESH"
}
