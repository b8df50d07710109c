package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":    "string",
				"pattern": `\S`,
			},
		},
		"required": []interface{}{"query"},
	}
}

func TestValidator_ValidateJSON(t *testing.T) {
	v, err := NewValidator(chatSchema())
	require.NoError(t, err)

	tests := []struct {
		name      string
		body      string
		wantValid bool
		wantField string
		wantCode  string
	}{
		{"valid", `{"query":"flood risk in Miami"}`, true, "", ""},
		{"missing query", `{}`, false, "query", "REQUIRED"},
		{"blank query", `{"query":"   "}`, false, "query", "PATTERN"},
		{"wrong type", `{"query":42}`, false, "query", "INVALID_TYPE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := v.ValidateJSON([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.Valid)
			if !tt.wantValid {
				require.NotEmpty(t, result.Errors)
				assert.Equal(t, tt.wantField, result.Errors[0].Field)
				assert.Equal(t, tt.wantCode, result.Errors[0].Code)
				assert.NotEmpty(t, result.Summary())
			}
		})
	}
}

func TestValidator_MalformedJSON(t *testing.T) {
	v, err := NewValidator(chatSchema())
	require.NoError(t, err)

	_, err = v.ValidateJSON([]byte(`{"query":`))
	assert.Error(t, err)
}

func TestNewValidator_BadSchema(t *testing.T) {
	_, err := NewValidator(map[string]interface{}{"type": 12})
	assert.Error(t, err)
}
