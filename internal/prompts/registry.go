// Package prompts turns a parsed student profile into the system and user
// prompts for each letter type.
package prompts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/jimdaga/sop-studio/internal/models"
	"github.com/jimdaga/sop-studio/internal/profile"
)

// Prompt is a rendered request for the text generator.
type Prompt struct {
	Title  string
	System string
	User   string
}

type key struct {
	letterType models.LetterType
	country    models.Country
}

type compiled struct {
	title  *template.Template
	body   *template.Template
	system string
}

// Registry holds compiled templates indexed by (letter type, country).
type Registry struct {
	templates map[key]*compiled
}

// templateData is what the title and body templates see.
type templateData struct {
	Country    string
	LetterType models.LetterType
	Profile    *profile.Typed
}

// NewRegistry compiles every template in the manifest.
// A duplicate (letter type, country) pair is an error.
func NewRegistry(manifest *Manifest) (*Registry, error) {
	r := &Registry{templates: make(map[key]*compiled, len(manifest.Templates))}
	for _, entry := range manifest.Templates {
		k := key{letterType: entry.LetterType, country: entry.Country}
		if _, exists := r.templates[k]; exists {
			return nil, fmt.Errorf("prompt template already registered: %s/%s", entry.LetterType, entry.Country)
		}

		name := string(entry.LetterType) + "/" + string(entry.Country)
		title, err := template.New(name + "/title").Option("missingkey=zero").Parse(entry.Title)
		if err != nil {
			return nil, fmt.Errorf("failed to parse title template %s: %w", name, err)
		}
		// section is rebound per render; this placeholder only satisfies Parse.
		body, err := template.New(name + "/body").Funcs(template.FuncMap{"section": noSection}).Parse(entry.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse body template %s: %w", name, err)
		}
		r.templates[k] = &compiled{title: title, body: body, system: strings.TrimSpace(entry.System)}
	}
	return r, nil
}

// Default returns the registry built from the embedded templates.yaml.
func Default() (*Registry, error) {
	manifest, err := ParseManifest(defaultManifest)
	if err != nil {
		return nil, err
	}
	return NewRegistry(manifest)
}

// Has reports whether a template exists for the letter type in any country.
func (r *Registry) Has(letterType models.LetterType) bool {
	_, ok := r.templates[key{letterType: letterType}]
	return ok
}

// LetterTypes returns the letter types with a country-agnostic template, sorted.
func (r *Registry) LetterTypes() []models.LetterType {
	var types []models.LetterType
	for k := range r.templates {
		if k.country == "" {
			types = append(types, k.letterType)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func (r *Registry) lookup(letterType models.LetterType, country models.Country) (*compiled, bool) {
	if t, ok := r.templates[key{letterType: letterType, country: country}]; ok {
		return t, true
	}
	t, ok := r.templates[key{letterType: letterType}]
	return t, ok
}

// Build renders the prompt for a letter type, preferring the template for the
// profile's country. Section JSON is embedded verbatim; absent sections render
// as "Not provided".
func (r *Registry) Build(letterType models.LetterType, p *profile.Typed) (*Prompt, error) {
	t, ok := r.lookup(letterType, p.Country)
	if !ok {
		return nil, fmt.Errorf("no prompt template for letter type %q", letterType)
	}

	data := templateData{
		Country:    p.Country.DisplayName(),
		LetterType: letterType,
		Profile:    p,
	}

	var title bytes.Buffer
	if err := t.title.Execute(&title, data); err != nil {
		return nil, fmt.Errorf("failed to render title: %w", err)
	}

	body, err := t.body.Clone()
	if err != nil {
		return nil, err
	}
	body.Funcs(template.FuncMap{"section": sectionFunc(p)})

	var user bytes.Buffer
	if err := body.Execute(&user, data); err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}

	return &Prompt{
		Title:  strings.TrimSpace(title.String()),
		System: t.system,
		User:   strings.TrimSpace(user.String()),
	}, nil
}

func sectionFunc(p *profile.Typed) func(string) string {
	return func(name string) string {
		raw, ok := p.Sections[name]
		if !ok || len(raw) == 0 {
			return "Not provided"
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return string(raw)
		}
		return compact.String()
	}
}

func noSection(string) string { return "" }
