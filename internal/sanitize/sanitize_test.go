package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"typical", "john.doe@example.com", "j***e@example.com"},
		{"single char local", "a@x.com", "a***a@x.com"},
		{"no at sign", "not-an-email", "[invalid-email]"},
		{"empty local", "@example.com", "[invalid-email]"},
		{"empty domain", "john@", "[invalid-email]"},
		{"two at signs", "a@b@c.com", "[invalid-email]"},
		{"empty string", "", "[invalid-email]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskEmail(tt.input))
		})
	}
}

func TestRecord_MasksNestedEmails(t *testing.T) {
	in := map[string]any{
		"email":     "alice@example.com",
		"firstName": "Alice",
		"additionalData": map[string]any{
			"email": "backup@example.com",
			"note":  "keep",
		},
		"contacts": []any{
			map[string]any{"email": "bob@example.com"},
		},
	}

	out, ok := Record(in).(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "a***e@example.com", out["email"])
	assert.Equal(t, "Alice", out["firstName"])

	nested := out["additionalData"].(map[string]any)
	assert.Equal(t, "b***p@example.com", nested["email"])
	assert.Equal(t, "keep", nested["note"])

	list := out["contacts"].([]any)
	assert.Equal(t, "b***b@example.com", list[0].(map[string]any)["email"])
}

func TestRecord_NonStringEmailUsesSentinel(t *testing.T) {
	out := Record(map[string]any{"email": 42}).(map[string]any)
	assert.Equal(t, "[invalid-email]", out["email"])
}

func TestRecord_DoesNotMutateInput(t *testing.T) {
	in := map[string]any{"email": "alice@example.com"}
	Record(in)
	assert.Equal(t, "alice@example.com", in["email"])
}

func TestRecord_PassesScalarsThrough(t *testing.T) {
	assert.Equal(t, "plain", Record("plain"))
	assert.Equal(t, 7.5, Record(7.5))
	assert.Nil(t, Record(nil))
}
