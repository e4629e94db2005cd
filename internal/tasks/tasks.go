// Package tasks holds the catalog of weekly faith challenges.
package tasks

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/semanadefe/semanadefe/internal/domain"
)

//go:embed tasks.yaml
var defaultCatalog []byte

// Catalog is an ordered, immutable list of tasks.
type Catalog struct {
	tasks []domain.Task
	byID  map[string]int
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded task catalog: %v", err))
	}
	return c
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var list []domain.Task
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse task catalog: %w", err)
	}

	c := &Catalog{tasks: list, byID: make(map[string]int, len(list))}
	for i, t := range list {
		if t.ID == "" {
			return nil, fmt.Errorf("task %d has no id", i)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate task id %q", t.ID)
		}
		c.byID[t.ID] = i
	}
	return c, nil
}

// All returns a copy of the tasks in catalog order.
func (c *Catalog) All() []domain.Task {
	out := make([]domain.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

func (c *Catalog) Find(id string) (domain.Task, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Task{}, false
	}
	return c.tasks[i], true
}

// ShareText is the message users copy to social media after picking t.
func ShareText(t domain.Task) string {
	return fmt.Sprintf("Desafio da Semana de Fé: %s #semanadefe", t.Description)
}
