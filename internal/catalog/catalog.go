// Package catalog holds the immutable ISO 9001 requirement and standard
// function definitions. A Catalog is built once and never mutated; every
// accessor hands out copies.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"qualityline/internal/domain"
)

//go:embed iso9001.yml
var defaultCatalogYAML []byte

type Catalog struct {
	categories   []string
	clauses      []string
	requirements []domain.Requirement
	functions    []domain.StandardFunction
	reqByID      map[string]int
	fnByID       map[string]int
}

type file struct {
	Categories   []string                  `yaml:"categories"`
	Clauses      []string                  `yaml:"clauses"`
	Requirements []domain.Requirement      `yaml:"requirements"`
	Functions    []domain.StandardFunction `yaml:"functions"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded ISO 9001 catalog.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = FromYAML(defaultCatalogYAML)
	})
	return defaultCatalog, defaultErr
}

// MustDefault is Default for callers that cannot proceed without a catalog.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// FromFile loads a catalog override from disk.
func FromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates a catalog document.
func FromYAML(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid catalog yaml: %w", err)
	}
	return New(f.Categories, f.Clauses, f.Requirements, f.Functions)
}

// New builds a catalog from explicit definitions. Categories and clause
// buckets referenced by functions are added when missing from the lists.
func New(categories, clauses []string, reqs []domain.Requirement, fns []domain.StandardFunction) (*Catalog, error) {
	c := &Catalog{
		categories: slices.Clone(categories),
		clauses:    slices.Clone(clauses),
		reqByID:    make(map[string]int, len(reqs)),
		fnByID:     make(map[string]int, len(fns)),
	}
	for _, r := range reqs {
		if r.ID == "" || r.ClauseNumber == "" {
			return nil, fmt.Errorf("requirement %q: id and clause are required", r.ID)
		}
		switch r.Type {
		case domain.RequirementGeneric, domain.RequirementUnique, domain.RequirementDuplicable:
		default:
			return nil, fmt.Errorf("requirement %s: invalid type %q", r.ID, r.Type)
		}
		if _, dup := c.reqByID[r.ID]; dup {
			return nil, fmt.Errorf("requirement %s defined twice", r.ID)
		}
		c.reqByID[r.ID] = len(c.requirements)
		c.requirements = append(c.requirements, r)
	}
	for _, f := range fns {
		if f.ID == "" {
			return nil, fmt.Errorf("function with empty id")
		}
		if len(f.ClauseReferences) == 0 {
			return nil, fmt.Errorf("function %s has no clause references", f.ID)
		}
		switch f.DuplicationRule {
		case domain.DuplicationUnique, domain.DuplicationPerProcess:
		default:
			return nil, fmt.Errorf("function %s: invalid duplication rule %q", f.ID, f.DuplicationRule)
		}
		if _, dup := c.fnByID[f.ID]; dup {
			return nil, fmt.Errorf("function %s defined twice", f.ID)
		}
		if f.Category != "" && !slices.Contains(c.categories, f.Category) {
			c.categories = append(c.categories, f.Category)
		}
		for _, ref := range f.ClauseReferences {
			top := TopLevelClause(ref)
			if !slices.Contains(c.clauses, top) {
				c.clauses = append(c.clauses, top)
			}
		}
		c.fnByID[f.ID] = len(c.functions)
		c.functions = append(c.functions, cloneFunction(f))
	}
	return c, nil
}

func (c *Catalog) Requirements() []domain.Requirement {
	return slices.Clone(c.requirements)
}

func (c *Catalog) Requirement(id string) (domain.Requirement, bool) {
	i, ok := c.reqByID[id]
	if !ok {
		return domain.Requirement{}, false
	}
	return c.requirements[i], true
}

// RequirementsOfType returns requirements of one type in catalog order.
func (c *Catalog) RequirementsOfType(t domain.RequirementType) []domain.Requirement {
	var out []domain.Requirement
	for _, r := range c.requirements {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

func (c *Catalog) Functions() []domain.StandardFunction {
	out := make([]domain.StandardFunction, len(c.functions))
	for i, f := range c.functions {
		out[i] = cloneFunction(f)
	}
	return out
}

func (c *Catalog) Function(id string) (domain.StandardFunction, bool) {
	i, ok := c.fnByID[id]
	if !ok {
		return domain.StandardFunction{}, false
	}
	return cloneFunction(c.functions[i]), true
}

// MandatoryFunctionsFor lists mandatory functions eligible for a process type.
func (c *Catalog) MandatoryFunctionsFor(processType string) []domain.StandardFunction {
	var out []domain.StandardFunction
	for _, f := range c.functions {
		if f.Mandatory && f.EligibleFor(processType) {
			out = append(out, cloneFunction(f))
		}
	}
	return out
}

func (c *Catalog) Categories() []string { return slices.Clone(c.categories) }

// Clauses returns the top-level clause buckets used for compliance tables.
func (c *Catalog) Clauses() []string { return slices.Clone(c.clauses) }

// TopLevelClause returns the leading clause number, "7" for "7.1.5".
func TopLevelClause(clause string) string {
	if i := strings.IndexByte(clause, '.'); i >= 0 {
		return clause[:i]
	}
	return clause
}

// ClauseCovers reports whether ref is clause itself or one of its ancestors.
func ClauseCovers(ref, clause string) bool {
	ref = strings.TrimSpace(ref)
	clause = strings.TrimSpace(clause)
	if ref == "" || clause == "" {
		return false
	}
	return ref == clause || strings.HasPrefix(clause, ref+".")
}

func cloneFunction(f domain.StandardFunction) domain.StandardFunction {
	f.ClauseReferences = slices.Clone(f.ClauseReferences)
	f.EligibleProcessTypes = slices.Clone(f.EligibleProcessTypes)
	return f
}
