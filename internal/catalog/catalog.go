// Package catalog loads and validates the static product registry.
//
// Products are defined as YAML files in a catalog directory, one file per
// product. The catalog is immutable after load; integrity violations
// (duplicate ids, duplicate ports, unknown tiers) are load-time errors and
// abort daemon startup.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/deckhand/deckhand/internal/models"
	"gopkg.in/yaml.v3"
)

type productSpec struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Category     string `yaml:"category"`
	BackendPort  int    `yaml:"backend_port"`
	FrontendPort int    `yaml:"frontend_port"`
	MinTier      string `yaml:"min_tier"`
}

// Catalog is the immutable set of products known to this installation.
type Catalog struct {
	products map[string]models.Product
	ordered  []models.Product
}

// Load reads product YAML files from dir and validates catalog invariants.
func Load(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read catalog dir %s: %w", dir, err)
	}
	products := make(map[string]models.Product)
	ports := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !isYAML(name) {
			continue
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read product %s: %w", path, err)
		}
		var spec productSpec
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("parse product %s: %w", path, err)
		}
		product, err := specToProduct(spec)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", path, err)
		}
		if _, exists := products[product.ID]; exists {
			return nil, fmt.Errorf("duplicate product id %q", product.ID)
		}
		for _, port := range []int{product.BackendPort, product.FrontendPort} {
			if owner, taken := ports[port]; taken {
				return nil, fmt.Errorf("product %q port %d already used by %q", product.ID, port, owner)
			}
			ports[port] = product.ID
		}
		products[product.ID] = product
	}
	ordered := make([]models.Product, 0, len(products))
	for _, product := range products {
		ordered = append(ordered, product)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	return &Catalog{products: products, ordered: ordered}, nil
}

func specToProduct(spec productSpec) (models.Product, error) {
	id := strings.TrimSpace(spec.ID)
	if id == "" {
		return models.Product{}, fmt.Errorf("missing id")
	}
	if strings.ContainsAny(id, " /\\") {
		return models.Product{}, fmt.Errorf("id %q contains invalid characters", id)
	}
	if spec.BackendPort <= 0 || spec.BackendPort > 65535 {
		return models.Product{}, fmt.Errorf("backend_port %d out of range", spec.BackendPort)
	}
	if spec.FrontendPort <= 0 || spec.FrontendPort > 65535 {
		return models.Product{}, fmt.Errorf("frontend_port %d out of range", spec.FrontendPort)
	}
	if spec.BackendPort == spec.FrontendPort {
		return models.Product{}, fmt.Errorf("backend_port and frontend_port are both %d", spec.BackendPort)
	}
	tier := models.Tier(strings.TrimSpace(spec.MinTier))
	if tier == "" {
		tier = models.TierTrial
	}
	if !tier.Known() {
		return models.Product{}, fmt.Errorf("unknown min_tier %q", spec.MinTier)
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		name = id
	}
	return models.Product{
		ID:           id,
		Name:         name,
		Category:     strings.TrimSpace(spec.Category),
		BackendPort:  spec.BackendPort,
		FrontendPort: spec.FrontendPort,
		MinTier:      tier,
	}, nil
}

// Lookup returns the product for id.
func (c *Catalog) Lookup(id string) (models.Product, bool) {
	if c == nil {
		return models.Product{}, false
	}
	product, ok := c.products[id]
	return product, ok
}

// Products returns all products sorted by id.
func (c *Catalog) Products() []models.Product {
	if c == nil {
		return nil
	}
	out := make([]models.Product, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// IDs returns all product ids sorted.
func (c *Catalog) IDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.ordered))
	for _, product := range c.ordered {
		ids = append(ids, product.ID)
	}
	return ids
}

// Len returns the number of products in the catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ordered)
}

func isYAML(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}
