// Package catalogs loads the spawn catalog: entity and item definitions
// with tier, base weight and corruption gate.
package catalogs

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed default_spawns.yaml
var defaultSpawns []byte

//go:embed spawns.schema.json
var spawnSchema string

var Tiers = []string{"common", "uncommon", "rare", "elite"}

type SpawnCatalog struct {
	Entities []EntityDef `yaml:"entities"`
	Items    []ItemDef   `yaml:"items"`

	EntityByID map[string]EntityDef `yaml:"-"`
	ItemByID   map[string]ItemDef   `yaml:"-"`
	Digest     string               `yaml:"-"`
}

type EntityDef struct {
	ID            string  `yaml:"id"`
	Name          string  `yaml:"name"`
	Tier          string  `yaml:"tier"`
	BaseWeight    float64 `yaml:"base_weight"`
	MinCorruption float64 `yaml:"min_corruption"`
	HP            int     `yaml:"hp"`
	// Levels restricts the definition to these level ids; empty means all.
	Levels []int `yaml:"levels"`
}

type ItemDef struct {
	ID            string  `yaml:"id"`
	Name          string  `yaml:"name"`
	Tier          string  `yaml:"tier"`
	BaseWeight    float64 `yaml:"base_weight"`
	MinCorruption float64 `yaml:"min_corruption"`
	Levels        []int   `yaml:"levels"`
}

// Default returns the embedded catalog.
func Default() (*SpawnCatalog, error) {
	return Parse(defaultSpawns, "default_spawns.yaml")
}

// Load reads a catalog file. An empty path yields the embedded default.
func Load(path string) (*SpawnCatalog, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw, path)
}

func Parse(raw []byte, name string) (*SpawnCatalog, error) {
	if err := validate(raw); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	var c SpawnCatalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	c.EntityByID = make(map[string]EntityDef, len(c.Entities))
	for _, d := range c.Entities {
		if _, dup := c.EntityByID[d.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate entity id %q", name, d.ID)
		}
		c.EntityByID[d.ID] = d
	}
	c.ItemByID = make(map[string]ItemDef, len(c.Items))
	for _, d := range c.Items {
		if _, dup := c.ItemByID[d.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate item id %q", name, d.ID)
		}
		c.ItemByID[d.ID] = d
	}
	sort.Slice(c.Entities, func(i, j int) bool { return c.Entities[i].ID < c.Entities[j].ID })
	sort.Slice(c.Items, func(i, j int) bool { return c.Items[i].ID < c.Items[j].ID })
	c.Digest = sha256Hex(raw)
	return &c, nil
}

// validate checks raw YAML against the JSON schema. The document is
// round-tripped through encoding/json so numbers arrive as float64.
func validate(raw []byte) error {
	schema, err := jsonschema.CompileString("spawns.schema.json", spawnSchema)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("catalog is not JSON-compatible: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return schema.Validate(v)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
