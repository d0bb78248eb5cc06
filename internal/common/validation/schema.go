package validation

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (r *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return messages
}

// Schema is a compiled JSON schema. Compile once, validate many times.
type Schema struct {
	source string
	once   sync.Once
	schema *gojsonschema.Schema
	err    error
}

func NewSchema(source string) *Schema {
	return &Schema{source: source}
}

func (s *Schema) compile() (*gojsonschema.Schema, error) {
	s.once.Do(func() {
		s.schema, s.err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(s.source))
	})
	return s.schema, s.err
}

// ValidateBytes validates a raw JSON document.
func (s *Schema) ValidateBytes(doc []byte) (*ValidationResult, error) {
	return s.validate(gojsonschema.NewBytesLoader(doc))
}

// ValidateValue validates an already decoded value such as job variables.
func (s *Schema) ValidateValue(doc interface{}) (*ValidationResult, error) {
	return s.validate(gojsonschema.NewGoLoader(doc))
}

func (s *Schema) validate(loader gojsonschema.JSONLoader) (*ValidationResult, error) {
	schema, err := s.compile()
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	result, err := schema.Validate(loader)
	if err != nil {
		return nil, fmt.Errorf("document is not valid JSON: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    desc.Type(),
		})
	}
	return out, nil
}
