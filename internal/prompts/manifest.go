package prompts

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/jimdaga/sop-studio/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultManifest []byte

// Manifest is the parsed templates.yaml file.
type Manifest struct {
	Version   string         `yaml:"version"`
	Templates []TemplateSpec `yaml:"templates"`
}

// TemplateSpec describes one prompt. Country is empty for the template used
// when no country-specific one exists.
type TemplateSpec struct {
	LetterType models.LetterType `yaml:"letter_type"`
	Country    models.Country    `yaml:"country"`
	Title      string            `yaml:"title"`
	System     string            `yaml:"system"`
	Body       string            `yaml:"body"`
}

// ParseManifest decodes a manifest, rejecting unknown keys and missing fields.
func ParseManifest(data []byte) (*Manifest, error) {
	var manifest Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // typos in the manifest should fail loudly

	if err := decoder.Decode(&manifest); err != nil {
		return nil, fmt.Errorf("failed to parse prompt manifest: %w", err)
	}
	if manifest.Version == "" {
		manifest.Version = "v1"
	}

	for i, entry := range manifest.Templates {
		if !entry.LetterType.Valid() {
			return nil, fmt.Errorf("prompt template %d: unknown letter_type %q", i, entry.LetterType)
		}
		if entry.Country != "" && !entry.Country.Valid() {
			return nil, fmt.Errorf("prompt template %d: unknown country %q", i, entry.Country)
		}
		if entry.Title == "" || entry.Body == "" {
			return nil, fmt.Errorf("prompt template %d (%s): title and body are required", i, entry.LetterType)
		}
	}
	return &manifest, nil
}
