package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/hackgods/appointment-intake/internal/normalize"
)

// EntitiesSchema is the JSON Schema an extractor response must satisfy
// before it is trusted.
func EntitiesSchema() map[string]any {
	nullableString := map[string]any{"type": []any{"string", "null"}}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"date_phrase": nullableString,
			"time_phrase": nullableString,
			"department":  nullableString,
			"confidence":  map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"is_clear":    map[string]any{"type": "boolean"},
		},
		"required": []string{"confidence", "is_clear"},
	}
}

var compiledEntitiesSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	b, err := json.Marshal(EntitiesSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("entities.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("entities.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// ValidateEntitiesJSON checks data against EntitiesSchema.
func ValidateEntitiesJSON(data []byte) error {
	schema, err := compiledEntitiesSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

var codeFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// DecodeEntities validates and decodes a model response. Markdown code
// fences around the JSON are tolerated and blank phrases become nil.
func DecodeEntities(content string) (normalize.RawEntities, error) {
	content = strings.TrimSpace(content)
	if m := codeFence.FindStringSubmatch(content); m != nil {
		content = m[1]
	}

	raw := []byte(content)
	if err := ValidateEntitiesJSON(raw); err != nil {
		return normalize.RawEntities{}, err
	}

	var out normalize.RawEntities
	if err := json.Unmarshal(raw, &out); err != nil {
		return normalize.RawEntities{}, fmt.Errorf("unmarshal entities: %w", err)
	}
	out.DatePhrase = blankToNil(out.DatePhrase)
	out.TimePhrase = blankToNil(out.TimePhrase)
	out.Department = blankToNil(out.Department)
	return out, nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "null") {
		return nil
	}
	return &v
}
