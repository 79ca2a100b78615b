// Package prompt renders the language model prompts from an embedded YAML catalogue.
package prompt

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var catalogueYAML []byte

// Name identifies a prompt in the catalogue.
type Name string

const (
	Recipe              Name = "recipe"
	ConflictCheck       Name = "conflict_check"
	FilterIngredients   Name = "filter_ingredients"
	NormalizeIngredient Name = "normalize_ingredient"
)

type entry struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Rendered is a prompt ready to send.
type Rendered struct {
	System string
	User   string
}

// Catalogue holds the parsed prompt templates.
type Catalogue struct {
	templates map[Name]*template.Template
	system    map[Name]string
}

var funcs = template.FuncMap{
	"join": func(items interface{}, sep string) string {
		switch v := items.(type) {
		case []string:
			return strings.Join(v, sep)
		case fmt.Stringer:
			return v.String()
		default:
			return fmt.Sprint(v)
		}
	},
}

// Load parses the embedded catalogue.
func Load() (*Catalogue, error) {
	return parse(catalogueYAML)
}

// MustLoad is Load for process start-up.
func MustLoad() *Catalogue {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

func parse(data []byte) (*Catalogue, error) {
	var entries map[Name]entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse prompt catalogue: %w", err)
	}

	c := &Catalogue{
		templates: make(map[Name]*template.Template, len(entries)),
		system:    make(map[Name]string, len(entries)),
	}
	for name, e := range entries {
		tmpl, err := template.New(string(name)).Funcs(funcs).Option("missingkey=error").Parse(e.User)
		if err != nil {
			return nil, fmt.Errorf("failed to parse prompt %s: %w", name, err)
		}
		c.templates[name] = tmpl
		c.system[name] = strings.TrimSpace(e.System)
	}
	return c, nil
}

// Render executes the named prompt with data.
func (c *Catalogue) Render(name Name, data interface{}) (Rendered, error) {
	tmpl, ok := c.templates[name]
	if !ok {
		return Rendered{}, fmt.Errorf("unknown prompt %q", name)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return Rendered{}, fmt.Errorf("failed to render prompt %s: %w", name, err)
	}
	return Rendered{System: c.system[name], User: strings.TrimSpace(sb.String())}, nil
}

// RecipeData feeds the recipe prompt.
type RecipeData struct {
	Ingredients         string
	Styles              []string
	Preferences         []string
	AssumeCompliant     bool
	SuggestAlternatives bool
}

// ConflictCheckData feeds the per-preference conflict prompt.
type ConflictCheckData struct {
	Preference  string
	Ingredients []string
}

// FilterData feeds the edible filter prompt.
type FilterData struct {
	Ingredients string
}

// NormalizeData feeds the ingredient normalization prompt.
type NormalizeData struct {
	Ingredient string
}
