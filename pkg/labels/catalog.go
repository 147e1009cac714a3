package labels

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultFallback = "All listings"

// Catalog maps category slugs to localized, human-readable labels.
type Catalog struct {
	Locale     string            `yaml:"locale"`
	Fallback   string            `yaml:"fallback"`
	Categories map[string]string `yaml:"categories"`
}

// DefaultCatalog returns the built-in English catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Locale:   "en",
		Fallback: defaultFallback,
		Categories: map[string]string{
			"cleaning":   "Cleaning",
			"repair":     "Repair",
			"moving":     "Moving",
			"delivery":   "Delivery",
			"gardening":  "Gardening",
			"plumbing":   "Plumbing",
			"electrical": "Electrical",
			"painting":   "Painting",
			"tutoring":   "Tutoring",
			"it":         "IT services",
			"beauty":     "Beauty",
			"pets":       "Pet care",
		},
	}
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label catalog %s: %w", path, err)
	}

	c, err := LoadCatalogFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("label catalog %s: %w", path, err)
	}
	return c, nil
}

// LoadCatalogFromBytes parses YAML catalog data from raw bytes.
func LoadCatalogFromBytes(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse label catalog: %w", err)
	}
	if len(c.Categories) == 0 {
		return nil, fmt.Errorf("no categories defined")
	}
	if c.Fallback == "" {
		c.Fallback = defaultFallback
	}
	return &c, nil
}

// CategoryLabel returns the label for slug, or the slug itself when unknown.
func (c *Catalog) CategoryLabel(slug string) string {
	if label, ok := c.Categories[slug]; ok && label != "" {
		return label
	}
	return slug
}
