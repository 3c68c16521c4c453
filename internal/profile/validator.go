package profile

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/jimdaga/sop-studio/internal/apperror"
	"github.com/jimdaga/sop-studio/internal/models"
	"github.com/kaptinlin/jsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

// loadSchemas compiles one schema per section that has a file under schemas/.
func loadSchemas() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		entries, err := schemaFS.ReadDir("schemas")
		if err != nil {
			schemasErr = fmt.Errorf("failed to read section schemas: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		compiled := make(map[string]*jsonschema.Schema, len(entries))
		for _, entry := range entries {
			data, err := schemaFS.ReadFile(path.Join("schemas", entry.Name()))
			if err != nil {
				schemasErr = fmt.Errorf("failed to read schema %s: %w", entry.Name(), err)
				return
			}
			schema, err := compiler.Compile(data)
			if err != nil {
				schemasErr = fmt.Errorf("failed to compile schema %s: %w", entry.Name(), err)
				return
			}
			compiled[strings.TrimSuffix(entry.Name(), ".json")] = schema
		}
		schemas = compiled
	})
	return schemas, schemasErr
}

// ValidateSections checks each provided section independently and returns
// one FieldError per invalid section. An empty result means the input is valid.
func ValidateSections(sections map[string]json.RawMessage) ([]apperror.FieldError, error) {
	compiled, err := loadSchemas()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(sections))
	for key := range sections {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var fieldErrors []apperror.FieldError
	for _, key := range keys {
		raw := sections[key]
		if !models.IsSectionKey(key) {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: key, Message: "unknown profile section"})
			continue
		}
		if msg := validateSection(compiled[key], key, raw); msg != "" {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: key, Message: msg})
		}
	}
	return fieldErrors, nil
}

func validateSection(schema *jsonschema.Schema, key string, raw json.RawMessage) string {
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return "must be valid JSON"
	}
	if value == nil {
		// null clears an optional section
		for _, required := range models.RequiredSectionKeys {
			if key == required {
				return "is required"
			}
		}
		return ""
	}

	if key == models.SectionPassportNumber {
		if _, ok := value.(string); !ok {
			return "must be a string"
		}
		return ""
	}

	if schema == nil {
		// Enrichment sections are free-form but must be objects, arrays or text.
		switch value.(type) {
		case map[string]interface{}, []interface{}, string:
			return ""
		default:
			return "must be an object"
		}
	}

	result := schema.Validate(value)
	if !result.IsValid() {
		var messages []string
		for field, evalErr := range result.Errors {
			messages = append(messages, fmt.Sprintf("%s: %s", field, evalErr.Error()))
		}
		if len(messages) == 0 {
			return "is invalid"
		}
		sort.Strings(messages)
		return strings.Join(messages, "; ")
	}

	if key == models.SectionFamilyBackground {
		return validateFamily(raw)
	}
	return ""
}

// validateFamily enforces the marital status variants: spouse details are
// required when married and rejected otherwise.
func validateFamily(raw json.RawMessage) string {
	var family FamilyBackground
	if err := json.Unmarshal(raw, &family); err != nil {
		return err.Error()
	}
	switch family.MaritalStatus {
	case MaritalMarried:
		if family.Spouse == nil || strings.TrimSpace(family.Spouse.Name) == "" {
			return "spouseDetails.name is required when maritalStatus is married"
		}
	default:
		if family.Spouse != nil {
			return "spouseDetails is only allowed when maritalStatus is married"
		}
	}
	return ""
}
