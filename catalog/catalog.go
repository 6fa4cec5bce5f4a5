// Package catalog loads the sector question catalog driving the ESG
// scoping wizard. The catalog is a YAML document mapping each business
// sector to its applicable frameworks and categorized questions.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/greenscope/greenscope/store"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// QuestionType describes how the wizard renders and interprets an answer.
type QuestionType string

const (
	QuestionYesNo          QuestionType = "yes_no"
	QuestionNumber         QuestionType = "number"
	QuestionText           QuestionType = "text"
	QuestionDate           QuestionType = "date"
	QuestionMultipleChoice QuestionType = "multiple_choice"
)

// Question is one scoping wizard question for a sector.
type Question struct {
	ID           string             `yaml:"id" json:"id"`
	Text         string             `yaml:"text" json:"question"`
	Type         QuestionType       `yaml:"type" json:"type"`
	Category     string             `yaml:"category" json:"category"`
	Rationale    string             `yaml:"rationale" json:"rationale"`
	Frameworks   []string           `yaml:"frameworks" json:"frameworks"`
	DataSource   string             `yaml:"data_source" json:"data_source"`
	Evidence     int                `yaml:"evidence_count" json:"evidence_count"`
	TaskCategory store.TaskCategory `yaml:"task_category" json:"task_category"`
	Required     bool               `yaml:"required" json:"required"`
}

// Sector is one sector's section of the catalog.
type Sector struct {
	ID         store.BusinessSector `yaml:"id" json:"id"`
	Name       string               `yaml:"name" json:"name"`
	Frameworks []string             `yaml:"frameworks" json:"frameworks"`
	Questions  []Question           `yaml:"questions" json:"questions"`
}

// Catalog holds the full wizard content, keyed by sector.
type Catalog struct {
	Version string   `yaml:"version" json:"version"`
	Sectors []Sector `yaml:"sectors" json:"sectors"`

	mu    sync.RWMutex
	index map[store.BusinessSector]*Sector
}

// Load reads a catalog from path. An empty path loads the embedded
// default catalog.
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		cleaned := filepath.Clean(path)
		content, err := os.ReadFile(cleaned)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", cleaned, err)
		}
		data = content
	}
	return Parse(data)
}

// Parse unmarshals and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.reindex()
	return &c, nil
}

// Validate checks the catalog for structural problems.
func (c *Catalog) Validate() error {
	if len(c.Sectors) == 0 {
		return fmt.Errorf("catalog has no sectors")
	}
	seen := make(map[store.BusinessSector]bool)
	for _, sector := range c.Sectors {
		if sector.ID == "" {
			return fmt.Errorf("sector %q has no id", sector.Name)
		}
		if seen[sector.ID] {
			return fmt.Errorf("duplicate sector %q", sector.ID)
		}
		seen[sector.ID] = true
		if len(sector.Questions) == 0 {
			return fmt.Errorf("sector %q has no questions", sector.ID)
		}
		ids := make(map[string]bool)
		for _, q := range sector.Questions {
			if q.ID == "" || q.Text == "" {
				return fmt.Errorf("sector %q has a question missing id or text", sector.ID)
			}
			if ids[q.ID] {
				return fmt.Errorf("sector %q has duplicate question id %q", sector.ID, q.ID)
			}
			ids[q.ID] = true
		}
	}
	return nil
}

func (c *Catalog) reindex() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[store.BusinessSector]*Sector, len(c.Sectors))
	for i := range c.Sectors {
		c.index[c.Sectors[i].ID] = &c.Sectors[i]
	}
}

// Replace swaps the catalog contents in place, used by the reload watcher.
func (c *Catalog) Replace(next *Catalog) {
	c.mu.Lock()
	c.Version = next.Version
	c.Sectors = next.Sectors
	c.mu.Unlock()
	c.reindex()
}

// SectorIDs lists the catalog's sectors in document order.
func (c *Catalog) SectorIDs() []store.BusinessSector {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]store.BusinessSector, 0, len(c.Sectors))
	for _, s := range c.Sectors {
		ids = append(ids, s.ID)
	}
	return ids
}

// SectorByID returns one sector's section, or false when the catalog does
// not cover it.
func (c *Catalog) SectorByID(id store.BusinessSector) (*Sector, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.index[id]
	return s, ok
}

// Questions returns the wizard questions for a sector.
func (c *Catalog) Questions(id store.BusinessSector) ([]Question, bool) {
	s, ok := c.SectorByID(id)
	if !ok {
		return nil, false
	}
	return s.Questions, true
}

// Frameworks returns the frameworks applicable to a sector.
func (c *Catalog) Frameworks(id store.BusinessSector) []string {
	s, ok := c.SectorByID(id)
	if !ok {
		return nil
	}
	return s.Frameworks
}

// frameworkAliases normalizes the many ways framework names get written in
// catalog content to one canonical short name.
var frameworkAliases = []struct {
	pattern *regexp.Regexp
	name    string
}{
	{regexp.MustCompile(`(?i)^green key`), "Green Key"},
	{regexp.MustCompile(`(?i)^(dubai sustainable tourism|dst)`), "DST"},
	{regexp.MustCompile(`(?i)^al sa'?fat`), "Al Sa'fat"},
	{regexp.MustCompile(`(?i)^(estidama|pearl rating)`), "Estidama"},
	{regexp.MustCompile(`(?i)^leed`), "LEED"},
	{regexp.MustCompile(`(?i)^breeam`), "BREEAM"},
	{regexp.MustCompile(`(?i)^iso`), "ISO 14001"},
	{regexp.MustCompile(`(?i)^(federal decree-law|climate law)`), "UAE Climate Law"},
	{regexp.MustCompile(`(?i)^federal law`), "UAE Federal Law"},
	{regexp.MustCompile(`(?i)^(ssi|sustainable schools)`), "SSI"},
	{regexp.MustCompile(`(?i)^adek`), "ADEK"},
	{regexp.MustCompile(`(?i)^(doh|department of health)`), "DoH"},
	{regexp.MustCompile(`(?i)^mohap`), "MOHAP"},
}

// NormalizeFramework reduces a framework reference to its canonical short
// name, dropping parenthesized qualifiers and version suffixes.
func NormalizeFramework(raw string) string {
	cleaned := regexp.MustCompile(`\s*\([^)]*\)`).ReplaceAllString(raw, "")
	cleaned = strings.TrimSpace(cleaned)
	for _, alias := range frameworkAliases {
		if alias.pattern.MatchString(cleaned) {
			return alias.name
		}
	}
	words := strings.Fields(cleaned)
	if len(words) > 3 {
		return strings.Join(words[:2], " ")
	}
	return cleaned
}

// NormalizeFrameworks maps and de-duplicates a list of framework
// references.
func NormalizeFrameworks(raw []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range raw {
		name := NormalizeFramework(r)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
