package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Column is one declared column of a table or view.
type Column struct {
	Name string
	Type string
}

type Table struct {
	Name    string
	Columns []Column
}

// Catalog is the immutable description of queryable tables and views.
// It is built once at process start and never mutated afterwards, so
// concurrent readers need no locking.
type Catalog struct {
	tables  []Table
	byName  map[string]int
	version string
}

func NewCatalog(tables []Table) (*Catalog, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("catalog requires at least one table")
	}
	byName := make(map[string]int, len(tables))
	for i, table := range tables {
		name := strings.ToLower(strings.TrimSpace(table.Name))
		if name == "" {
			return nil, fmt.Errorf("table %d has empty name", i)
		}
		if _, exists := byName[name]; exists {
			return nil, fmt.Errorf("duplicate table %q", table.Name)
		}
		if len(table.Columns) == 0 {
			return nil, fmt.Errorf("table %q has no columns", table.Name)
		}
		byName[name] = i
	}
	return &Catalog{
		tables:  tables,
		byName:  byName,
		version: computeVersion(tables),
	}, nil
}

// Version is a deterministic digest of the table/column layout. It changes
// whenever the dataset views change shape, which invalidates cached responses.
func (c *Catalog) Version() string {
	return c.version
}

func (c *Catalog) Tables() []Table {
	out := make([]Table, len(c.tables))
	copy(out, c.tables)
	return out
}

func (c *Catalog) TableNames() []string {
	names := make([]string, 0, len(c.tables))
	for _, table := range c.tables {
		names = append(names, table.Name)
	}
	return names
}

func (c *Catalog) Table(name string) (Table, bool) {
	index, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Table{}, false
	}
	return c.tables[index], true
}

func (c *Catalog) HasTable(name string) bool {
	_, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

func (c *Catalog) HasColumn(table, column string) bool {
	def, ok := c.Table(table)
	if !ok {
		return false
	}
	column = strings.ToLower(strings.TrimSpace(column))
	for _, col := range def.Columns {
		if strings.ToLower(col.Name) == column {
			return true
		}
	}
	return false
}

// ColumnSet returns the lowercased union of column names across the given
// tables. Unknown tables contribute nothing.
func (c *Catalog) ColumnSet(tables []string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, name := range tables {
		def, ok := c.Table(name)
		if !ok {
			continue
		}
		for _, col := range def.Columns {
			set[strings.ToLower(col.Name)] = struct{}{}
		}
	}
	return set
}

// PromptSummary renders the catalog as compact text for generation prompts.
func (c *Catalog) PromptSummary() string {
	var b strings.Builder
	for _, table := range c.tables {
		b.WriteString("- ")
		b.WriteString(table.Name)
		b.WriteString(": ")
		for i, col := range table.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(col.Name)
			if col.Type != "" {
				b.WriteString(" (")
				b.WriteString(col.Type)
				b.WriteString(")")
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func computeVersion(tables []Table) string {
	lines := make([]string, 0, len(tables))
	for _, table := range tables {
		var b strings.Builder
		b.WriteString(strings.ToLower(table.Name))
		for _, col := range table.Columns {
			b.WriteString("|")
			b.WriteString(strings.ToLower(col.Name))
			b.WriteString(":")
			b.WriteString(strings.ToLower(col.Type))
		}
		lines = append(lines, b.String())
	}
	sort.Strings(lines)
	digest := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(digest[:8])
}
