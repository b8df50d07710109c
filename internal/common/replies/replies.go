// Package replies holds the canned conversational replies and the static
// text each generation stage falls back to when the model fails.
package replies

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Response formats understood by the front end.
const (
	FormatPlain  = "plain"
	FormatTagged = "tagged"
)

//go:embed replies.yaml
var defaultCatalog []byte

// Variant is one reply in both response formats.
type Variant struct {
	Plain  string `yaml:"plain"`
	Tagged string `yaml:"tagged"`
}

// For returns the text for format, defaulting to plain.
func (v Variant) For(format string) string {
	if format == FormatTagged && v.Tagged != "" {
		return v.Tagged
	}
	return v.Plain
}

type Fallbacks struct {
	Climate   string  `yaml:"climate"`
	Business  string  `yaml:"business"`
	Synthesis Variant `yaml:"synthesis"`
}

// Catalog is the full set of static texts.
type Catalog struct {
	Greeting  Variant   `yaml:"greeting"`
	Farewell  Variant   `yaml:"farewell"`
	Clarify   Variant   `yaml:"clarify"`
	Fallbacks Fallbacks `yaml:"fallbacks"`
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a catalog override from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse replies: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	required := map[string]string{
		"greeting.plain":            c.Greeting.Plain,
		"farewell.plain":            c.Farewell.Plain,
		"clarify.plain":             c.Clarify.Plain,
		"fallbacks.climate":         c.Fallbacks.Climate,
		"fallbacks.business":        c.Fallbacks.Business,
		"fallbacks.synthesis.plain": c.Fallbacks.Synthesis.Plain,
	}
	for key, val := range required {
		if val == "" {
			return fmt.Errorf("replies: %s is required", key)
		}
	}
	return nil
}
