// Package sanitize masks PII in contact records so rows can be logged and
// echoed back in import reports safely. Masking never affects stored data.
package sanitize

import "strings"

// maskedSentinel replaces values that do not look like a two-part address.
const maskedSentinel = "[invalid-email]"

// MaskEmail reduces an address to first char + "***" + last char of the local
// part, keeping the domain. Values without exactly one "@" separating two
// non-empty parts collapse to a fixed sentinel.
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return maskedSentinel
	}
	return local[:1] + "***" + local[len(local)-1:] + "@" + domain
}

// Record returns a structurally identical copy of v with every field
// literally named "email" masked, at any nesting depth. The input is never
// mutated.
func Record(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if k == "email" {
				if s, ok := inner.(string); ok {
					out[k] = MaskEmail(s)
				} else {
					out[k] = maskedSentinel
				}
				continue
			}
			out[k] = Record(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = Record(inner)
		}
		return out
	default:
		return v
	}
}
