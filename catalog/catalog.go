// Package catalog holds the typed parameter schema of the wrapped pipeline.
// A Catalog is data only: it is loaded once at start up and never mutated.
package catalog

import (
	_ "embed"
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v2"
)

//go:embed smrnaseq.yaml
var smrnaseqYAML []byte

// Descriptor describes one declared pipeline input
type Descriptor struct {
	Name         string      `json:"name"`
	Type         Type        `json:"type"`
	Default      interface{} `json:"default,omitempty"`
	SectionTitle string      `json:"section_title,omitempty"` // UI grouping only
	Description  string      `json:"description"`
	Output       bool        `json:"output,omitempty"` // directory that receives results
}

// HasDefault reports whether a default value is declared
func (d Descriptor) HasDefault() bool {
	return d.Default != nil
}

// Required reports whether a caller must supply this parameter
func (d Descriptor) Required() bool {
	return !d.Type.Optional && !d.HasDefault()
}

// Resolve returns the value of this parameter given the caller's values.
// A provided value wins, an explicit nil means unset,
// and a parameter the caller did not mention takes its default.
func (d Descriptor) Resolve(values map[string]interface{}) (v interface{}, present bool) {
	v, provided := values[d.Name]
	if !provided {
		v = d.Default
	}
	if Absent(v) {
		return nil, false
	}
	return v, true
}

// Catalog is an ordered, immutable table of parameter descriptors
type Catalog struct {
	pipeline    string
	displayName string
	params      []Descriptor
	index       map[string]int
}

// yaml representation of the catalog file
type catalogFile struct {
	Pipeline    string      `yaml:"pipeline"`
	DisplayName string      `yaml:"display_name"`
	Parameters  []paramYAML `yaml:"parameters"`
}

type paramYAML struct {
	Name         string      `yaml:"name"`
	Type         Kind        `yaml:"type"`
	Optional     bool        `yaml:"optional"`
	Default      interface{} `yaml:"default"`
	SectionTitle string      `yaml:"section_title"`
	Description  string      `yaml:"description"`
	Output       bool        `yaml:"output"`
}

// Default returns the built-in nf-core/smrnaseq catalog
func Default() (*Catalog, error) {
	return Load(smrnaseqYAML)
}

// LoadFile reads a catalog from a yaml file
func LoadFile(path string) (*Catalog, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(b)
}

// Load parses and validates a yaml catalog
func Load(b []byte) (*Catalog, error) {
	f := &catalogFile{}
	if err := yaml.Unmarshal(b, f); err != nil {
		return nil, fmt.Errorf("failed to parse parameter catalog: %v", err)
	}
	if f.Pipeline == "" {
		return nil, fmt.Errorf("parameter catalog is missing a pipeline identifier")
	}
	c := &Catalog{
		pipeline:    f.Pipeline,
		displayName: f.DisplayName,
		params:      make([]Descriptor, 0, len(f.Parameters)),
		index:       make(map[string]int, len(f.Parameters)),
	}
	for _, p := range f.Parameters {
		d, err := p.descriptor()
		if err != nil {
			return nil, err
		}
		if _, dup := c.index[d.Name]; dup {
			return nil, fmt.Errorf("duplicate parameter %q in catalog", d.Name)
		}
		c.index[d.Name] = len(c.params)
		c.params = append(c.params, d)
	}
	return c, nil
}

func (p paramYAML) descriptor() (Descriptor, error) {
	if p.Name == "" {
		return Descriptor{}, fmt.Errorf("catalog parameter without a name")
	}
	if !p.Type.valid() {
		return Descriptor{}, fmt.Errorf("parameter %q has unknown type %q", p.Name, p.Type)
	}
	d := Descriptor{
		Name:         p.Name,
		Type:         Type{Kind: p.Type, Optional: p.Optional},
		Default:      p.Default,
		SectionTitle: p.SectionTitle,
		Description:  p.Description,
		Output:       p.Output,
	}
	if err := d.Type.Check(d.Default); err != nil {
		return Descriptor{}, fmt.Errorf("default of parameter %q does not match type %v: %v", d.Name, d.Type, err)
	}
	return d, nil
}

// Pipeline is the fixed identifier of the wrapped pipeline
func (c *Catalog) Pipeline() string { return c.pipeline }

// DisplayName ..
func (c *Catalog) DisplayName() string { return c.displayName }

// Len ..
func (c *Catalog) Len() int { return len(c.params) }

// Descriptors returns the descriptors in declaration order.
// The returned slice is a copy.
func (c *Catalog) Descriptors() []Descriptor {
	out := make([]Descriptor, len(c.params))
	copy(out, c.params)
	return out
}

// Lookup ..
func (c *Catalog) Lookup(name string) (Descriptor, bool) {
	i, ok := c.index[name]
	if !ok {
		return Descriptor{}, false
	}
	return c.params[i], true
}

// Section is a run of parameters displayed under one title
type Section struct {
	Title      string   `json:"title"`
	Parameters []string `json:"parameters"`
}

// Sections groups parameter names under the most recently declared section title.
// Parameters declared before any title fall into a section with an empty title.
func (c *Catalog) Sections() []Section {
	sections := []Section{}
	for _, d := range c.params {
		if d.SectionTitle != "" || len(sections) == 0 {
			sections = append(sections, Section{Title: d.SectionTitle})
		}
		last := &sections[len(sections)-1]
		last.Parameters = append(last.Parameters, d.Name)
	}
	return sections
}
