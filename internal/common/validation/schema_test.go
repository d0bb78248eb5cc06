package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
	"type": "object",
	"properties": {
		"customerId": {"type": "string", "pattern": "^[0-9]+$"},
		"subscriptionId": {"type": "string"}
	},
	"required": ["customerId"],
	"additionalProperties": false
}`

func TestSchema_ValidateBytes(t *testing.T) {
	schema := NewSchema(testSchema)

	tests := []struct {
		name      string
		doc       string
		wantValid bool
		wantField string
	}{
		{name: "valid", doc: `{"customerId": "365"}`, wantValid: true},
		{name: "valid with optional", doc: `{"customerId": "365", "subscriptionId": "adm"}`, wantValid: true},
		{name: "missing required", doc: `{}`, wantValid: false, wantField: "(root)"},
		{name: "pattern mismatch", doc: `{"customerId": "abc"}`, wantValid: false, wantField: "customerId"},
		{name: "extra field", doc: `{"customerId": "1", "x": 1}`, wantValid: false, wantField: "(root)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := schema.ValidateBytes([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.Valid)
			if !tt.wantValid {
				require.NotEmpty(t, result.Errors)
				assert.Equal(t, tt.wantField, result.Errors[0].Field)
				assert.NotEmpty(t, result.GetErrorMessages())
			}
		})
	}
}

func TestSchema_ValidateValue(t *testing.T) {
	schema := NewSchema(testSchema)

	result, err := schema.ValidateValue(map[string]interface{}{"customerId": "12"})
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestSchema_MalformedDocument(t *testing.T) {
	_, err := NewSchema(testSchema).ValidateBytes([]byte(`{"customerId":`))
	assert.Error(t, err)
}

func TestSchema_InvalidSchema(t *testing.T) {
	_, err := NewSchema(`{"type": 12}`).ValidateBytes([]byte(`{}`))
	assert.Error(t, err)
}
