// Package registry holds the known products: name, reference image and the
// expected EAN-13 barcode when one is on file. All writes happen before a
// pipeline run starts; during a run the registry is read-only.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
)

// ProductRecord is one registered product. Name is the unique key.
type ProductRecord struct {
	Name               string `yaml:"name" json:"name" parquet:"name"`
	ReferenceImagePath string `yaml:"reference_image" json:"reference_image" parquet:"reference_image"`
	// Barcode is the expected EAN-13 digits, empty when not on file.
	Barcode string `yaml:"barcode,omitempty" json:"barcode,omitempty" parquet:"barcode,optional"`
}

// Registry is the in-memory product catalog for a pipeline run.
type Registry struct {
	products map[string]ProductRecord
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{products: make(map[string]ProductRecord)}
}

// Register adds or replaces a product record.
func (r *Registry) Register(record ProductRecord) error {
	if record.Name == "" {
		return fmt.Errorf("product name is required")
	}
	if record.ReferenceImagePath == "" {
		return fmt.Errorf("reference image path is required for %q", record.Name)
	}
	r.products[record.Name] = record
	slog.Info("Registered product", "name", record.Name, "reference", record.ReferenceImagePath, "has_barcode", record.Barcode != "")
	return nil
}

// Lookup returns the record for name, reporting whether it exists.
func (r *Registry) Lookup(name string) (ProductRecord, bool) {
	record, ok := r.products[name]
	return record, ok
}

// Names returns all registered product names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.products))
	for name := range r.products {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered products.
func (r *Registry) Len() int {
	return len(r.products)
}
