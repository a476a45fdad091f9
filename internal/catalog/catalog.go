// Package catalog exposes the embedded region and commune list used by the
// registration form.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed comunas-regiones.json
var raw []byte

type document struct {
	Regions []Region `json:"regiones"`
}

// Region is a region with its communes in catalog order.
type Region struct {
	Name     string   `json:"region"`
	Communes []string `json:"comunas"`
}

// Catalog is an immutable region lookup.
type Catalog struct {
	regions []Region
	byName  map[string]int
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(raw)
}

// Parse builds a catalog from a JSON document shaped {"regiones":[...]}.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse region catalog: %w", err)
	}
	c := &Catalog{regions: doc.Regions, byName: make(map[string]int, len(doc.Regions))}
	for i, r := range doc.Regions {
		c.byName[key(r.Name)] = i
	}
	return c, nil
}

// Regions lists region names in catalog order.
func (c *Catalog) Regions() []string {
	names := make([]string, 0, len(c.regions))
	for _, r := range c.regions {
		names = append(names, r.Name)
	}
	return names
}

// CommunesOf returns the communes of region. Unknown regions yield nil and
// false; lookups ignore case and surrounding spaces.
func (c *Catalog) CommunesOf(region string) ([]string, bool) {
	i, ok := c.byName[key(region)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), c.regions[i].Communes...), true
}

// HasCommune reports whether commune belongs to region.
func (c *Catalog) HasCommune(region, commune string) bool {
	communes, ok := c.CommunesOf(region)
	if !ok {
		return false
	}
	for _, name := range communes {
		if key(name) == key(commune) {
			return true
		}
	}
	return false
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
