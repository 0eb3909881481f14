package curriculum

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog maps each grade to its curriculum. Entries are never handed out
// directly; every accessor returns a deep copy.
type Catalog struct {
	entries map[Grade]Curriculum
}

type catalogFile struct {
	Curricula []struct {
		Grade      Grade `yaml:"grade"`
		Curriculum `yaml:",inline"`
	} `yaml:"curricula"`
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog file. An empty path yields the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", path, err)
	}
	slog.Info("curriculum catalog loaded", "path", path, "grades", len(c.entries))
	return c, nil
}

// ParseCatalog decodes catalog YAML. Every grade must appear exactly once
// with at least one topic, and no topic may start out completed.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	entries := make(map[Grade]Curriculum, len(file.Curricula))
	for _, e := range file.Curricula {
		if !e.Grade.Valid() {
			return nil, fmt.Errorf("unknown grade %q", e.Grade)
		}
		if _, dup := entries[e.Grade]; dup {
			return nil, fmt.Errorf("grade %s listed twice", e.Grade)
		}
		if len(e.Topics) == 0 {
			return nil, fmt.Errorf("grade %s has no topics", e.Grade)
		}
		for _, t := range e.Topics {
			if t.Name == "" {
				return nil, fmt.Errorf("grade %s has a topic without a name", e.Grade)
			}
			if t.Completed {
				return nil, fmt.Errorf("grade %s topic %q starts completed", e.Grade, t.Name)
			}
		}
		entries[e.Grade] = e.Curriculum.Clone()
	}
	for _, g := range Grades {
		if _, ok := entries[g]; !ok {
			return nil, fmt.Errorf("grade %s missing", g)
		}
	}
	return &Catalog{entries: entries}, nil
}

// Get returns a fresh copy of the grade's curriculum.
func (c *Catalog) Get(g Grade) (Curriculum, bool) {
	cur, ok := c.entries[g]
	if !ok {
		return Curriculum{}, false
	}
	return cur.Clone(), true
}

// Entry describes one grade for a grade picker.
type Entry struct {
	Grade      Grade      `json:"grade"`
	Band       string     `json:"band"`
	Curriculum Curriculum `json:"curriculum"`
}

// Entries lists every grade in tier order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(Grades))
	for _, g := range Grades {
		out = append(out, Entry{Grade: g, Band: g.Band(), Curriculum: c.entries[g].Clone()})
	}
	return out
}
