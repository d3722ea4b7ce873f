package severity

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CategoryInfo describes one attack category.
type CategoryInfo struct {
	Name     string   `yaml:"name" json:"name"`
	Severity string   `yaml:"severity" json:"severity"`
	Aliases  []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

type catalogFile struct {
	Categories []CategoryInfo `yaml:"categories"`
}

// Catalog maps category names (and aliases) to their severity.
// Lookups are case-insensitive. A Catalog is immutable once built.
type Catalog struct {
	byKey map[string]CategoryInfo
	order []string
}

// defaultCategories are the categories the honeypot producers emit.
var defaultCategories = []CategoryInfo{
	{Name: "SQLi", Severity: Critical, Aliases: []string{"sql-injection", "sql injection"}},
	{Name: "Command Injection", Severity: Critical, Aliases: []string{"cmd", "cmd-injection", "rce"}},
	{Name: "XSS", Severity: High, Aliases: []string{"cross-site scripting"}},
	{Name: "Bruteforce", Severity: High, Aliases: []string{"brute-force", "brute force"}},
	{Name: "Traversal", Severity: High, Aliases: []string{"path traversal", "lfi"}},
	{Name: "Scanner", Severity: Medium, Aliases: []string{"scanner-probe"}},
	{Name: "Low-Risk", Severity: Low},
}

// DefaultCatalog returns the built-in category catalog.
func DefaultCatalog() *Catalog {
	return newCatalog(defaultCategories)
}

// LoadCatalog reads a YAML category file and layers it over the defaults.
// An entry whose name matches a default category replaces it.
//
//	categories:
//	  - name: SQLi
//	    severity: critical
//	    aliases: [sql-injection]
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("severity: read catalog: %w", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("severity: parse catalog: %w", err)
	}

	merged := make([]CategoryInfo, 0, len(defaultCategories)+len(f.Categories))
	overridden := make(map[string]bool, len(f.Categories))
	for _, c := range f.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("severity: catalog entry with empty name")
		}
		overridden[strings.ToLower(c.Name)] = true
	}
	for _, c := range defaultCategories {
		if !overridden[strings.ToLower(c.Name)] {
			merged = append(merged, c)
		}
	}
	merged = append(merged, f.Categories...)
	return newCatalog(merged), nil
}

func newCatalog(entries []CategoryInfo) *Catalog {
	c := &Catalog{byKey: make(map[string]CategoryInfo, len(entries)*2)}
	for _, e := range entries {
		e.Severity = Normalize(e.Severity)
		c.order = append(c.order, e.Name)
		c.byKey[strings.ToLower(e.Name)] = e
		for _, alias := range e.Aliases {
			c.byKey[strings.ToLower(alias)] = e
		}
	}
	return c
}

// Lookup returns the catalog entry for a category name or alias.
func (c *Catalog) Lookup(category string) (CategoryInfo, bool) {
	if c == nil {
		return CategoryInfo{}, false
	}
	e, ok := c.byKey[strings.ToLower(strings.TrimSpace(category))]
	return e, ok
}

// Severity returns the severity label for a category; unknown categories are LOW.
func (c *Catalog) Severity(category string) string {
	if e, ok := c.Lookup(category); ok {
		return e.Severity
	}
	return Low
}

// Categories returns the catalog entries in definition order.
func (c *Catalog) Categories() []CategoryInfo {
	out := make([]CategoryInfo, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byKey[strings.ToLower(name)])
	}
	return out
}
