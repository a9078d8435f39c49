package sqlgen

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ridepulse/ridepulse/internal/engine"
	"github.com/ridepulse/ridepulse/internal/schema"
)

// Prober binds a statement against the engine without scanning data.
type Prober interface {
	Probe(ctx context.Context, sqlText string) error
}

// Validator runs the ordered check classes over a candidate statement:
// safety, table existence, column existence, then an engine probe. It
// returns the findings of the first class that fails, phrased so they
// can be fed back into a correction prompt verbatim.
type Validator struct {
	catalog *schema.Catalog
	prober  Prober
}

func NewValidator(catalog *schema.Catalog, prober Prober) *Validator {
	return &Validator{catalog: catalog, prober: prober}
}

var deniedKeywords = []string{
	"drop", "delete", "insert", "update", "alter", "create", "truncate",
	"grant", "revoke", "attach", "detach", "copy", "pragma", "install",
	"load", "export", "import", "call", "vacuum",
}

var identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_.]*`)
var functionCallPattern = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// Validate returns (findings, nil) when the statement fails a check
// class and (nil, err) only when the engine itself is unreachable.
func (v *Validator) Validate(ctx context.Context, sqlText string) ([]string, error) {
	if findings := v.safetyFindings(sqlText); len(findings) > 0 {
		return findings, nil
	}
	stripped := stripStringLiterals(sqlText)
	tables, aliases, ctes := analyzeRelations(stripped)

	if findings := v.tableFindings(tables, ctes); len(findings) > 0 {
		return findings, nil
	}
	if findings := v.columnFindings(stripped, tables, aliases, ctes); len(findings) > 0 {
		return findings, nil
	}
	if v.prober != nil {
		if err := v.prober.Probe(ctx, sqlText); err != nil {
			if errors.Is(err, engine.ErrUnavailable) {
				return nil, err
			}
			return []string{fmt.Sprintf("the engine rejected the statement: %v", err)}, nil
		}
	}
	return nil, nil
}

// Tables lists the catalog relations a statement reads, in order of
// first reference. Used to report sources alongside answers.
func (v *Validator) Tables(sqlText string) []string {
	tables, _, ctes := analyzeRelations(stripStringLiterals(sqlText))
	out := make([]string, 0, len(tables))
	seen := map[string]struct{}{}
	for _, table := range tables {
		if _, isCTE := ctes[table]; isCTE {
			continue
		}
		if !v.catalog.HasTable(table) {
			continue
		}
		if _, dup := seen[table]; dup {
			continue
		}
		seen[table] = struct{}{}
		out = append(out, table)
	}
	return out
}

func (v *Validator) safetyFindings(sqlText string) []string {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return []string{"the statement is empty"}
	}
	stripped := stripStringLiterals(trimmed)
	if idx := strings.Index(stripped, ";"); idx >= 0 && idx < len(stripped)-1 {
		if strings.TrimSpace(stripped[idx+1:]) != "" {
			return []string{"only a single statement is allowed"}
		}
	}
	lower := strings.ToLower(stripped)
	first := firstWord(lower)
	if first != "select" && first != "with" {
		return []string{fmt.Sprintf("statement must start with SELECT or WITH, got %q", first)}
	}
	var findings []string
	for _, keyword := range deniedKeywords {
		if containsWord(lower, keyword) {
			findings = append(findings, fmt.Sprintf("forbidden keyword %q: only read-only SELECT statements are allowed", strings.ToUpper(keyword)))
		}
	}
	return findings
}

func (v *Validator) tableFindings(tables []string, ctes map[string]struct{}) []string {
	var findings []string
	for _, table := range tables {
		if _, isCTE := ctes[table]; isCTE {
			continue
		}
		if !v.catalog.HasTable(table) {
			findings = append(findings, fmt.Sprintf("unknown table %q; available tables: %s", table, strings.Join(v.catalog.TableNames(), ", ")))
		}
	}
	return findings
}

func (v *Validator) columnFindings(stripped string, tables []string, aliases, ctes map[string]struct{}) []string {
	columns := v.catalog.ColumnSet(tables)
	functions := map[string]struct{}{}
	for _, match := range functionCallPattern.FindAllStringSubmatch(stripped, -1) {
		functions[strings.ToLower(match[1])] = struct{}{}
	}

	allowed := func(word string) bool {
		if _, ok := sqlWords[word]; ok {
			return true
		}
		if _, ok := functions[word]; ok {
			return true
		}
		if _, ok := aliases[word]; ok {
			return true
		}
		if _, ok := ctes[word]; ok {
			return true
		}
		if _, ok := columns[word]; ok {
			return true
		}
		return v.catalog.HasTable(word)
	}

	var findings []string
	seen := map[string]struct{}{}
	for _, ident := range identifierPattern.FindAllString(stripped, -1) {
		word := strings.ToLower(ident)
		if qualifier, column, ok := strings.Cut(word, "."); ok {
			if !allowed(qualifier) {
				word = qualifier
			} else {
				word = column
			}
		}
		if allowed(word) {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		findings = append(findings, fmt.Sprintf("unknown column %q in the referenced tables", word))
	}
	return findings
}

// analyzeRelations walks the identifier stream to collect referenced
// relations, their aliases and CTE names. This is a heuristic pass, not
// a parser; the engine probe backstops anything it misclassifies.
func analyzeRelations(stripped string) (tables []string, aliases, ctes map[string]struct{}) {
	aliases = map[string]struct{}{}
	ctes = map[string]struct{}{}
	words := identifierPattern.FindAllString(strings.ToLower(stripped), -1)

	for i := 0; i+2 < len(words); i++ {
		if words[i+1] == "as" && words[i+2] == "select" {
			ctes[words[i]] = struct{}{}
		}
	}
	for i, word := range words {
		if word == "as" && i+1 < len(words) {
			aliases[words[i+1]] = struct{}{}
		}
		if word != "from" && word != "join" {
			continue
		}
		// FROM inside extract('hour' FROM col) or trim(... FROM ...) is
		// not a relation reference.
		if i > 0 && isFromFunction(words[i-1]) {
			continue
		}
		if i+1 >= len(words) || words[i+1] == "select" {
			continue
		}
		table := words[i+1]
		if _, isAlias := aliases[table]; !isAlias {
			tables = append(tables, table)
		}
		if i+2 < len(words) {
			if next := words[i+2]; !isClauseWord(next) && next != "as" {
				aliases[next] = struct{}{}
			}
		}
	}
	return tables, aliases, ctes
}

func stripStringLiterals(sqlText string) string {
	var b strings.Builder
	inString := false
	for i := 0; i < len(sqlText); i++ {
		c := sqlText[i]
		if c == '\'' {
			if inString && i+1 < len(sqlText) && sqlText[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
			b.WriteByte(c)
			continue
		}
		if !inString {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func firstWord(lower string) string {
	fields := strings.Fields(lower)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], "(")
}

func containsWord(lower, word string) bool {
	for idx := strings.Index(lower, word); idx >= 0; {
		before := idx == 0 || !isWordByte(lower[idx-1])
		after := idx+len(word) >= len(lower) || !isWordByte(lower[idx+len(word)])
		if before && after {
			return true
		}
		rest := strings.Index(lower[idx+1:], word)
		if rest < 0 {
			return false
		}
		idx += 1 + rest
	}
	return false
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func isFromFunction(word string) bool {
	switch word {
	case "extract", "trim", "substring", "position":
		return true
	default:
		return false
	}
}

func isClauseWord(word string) bool {
	switch word {
	case "where", "group", "order", "limit", "on", "join", "left", "right",
		"inner", "outer", "full", "cross", "having", "union", "using",
		"select", "from", "natural", "offset", "qualify", "window":
		return true
	default:
		return false
	}
}

// sqlWords covers keywords and literal words that may appear outside of
// a function call position, so the column check does not flag them.
var sqlWords = map[string]struct{}{
	"select": {}, "from": {}, "where": {}, "group": {}, "by": {}, "order": {},
	"limit": {}, "offset": {}, "as": {}, "and": {}, "or": {}, "not": {},
	"on": {}, "join": {}, "left": {}, "right": {}, "inner": {}, "outer": {},
	"full": {}, "cross": {}, "case": {}, "when": {}, "then": {}, "else": {},
	"end": {}, "asc": {}, "desc": {}, "distinct": {}, "having": {}, "with": {},
	"union": {}, "all": {}, "between": {}, "in": {}, "is": {}, "null": {},
	"like": {}, "ilike": {}, "interval": {}, "over": {}, "partition": {},
	"rows": {}, "range": {}, "preceding": {}, "following": {}, "current": {},
	"row": {}, "filter": {}, "exists": {}, "using": {}, "natural": {},
	"true": {}, "false": {}, "nulls": {}, "first": {}, "last": {},
	"qualify": {}, "window": {}, "unbounded": {},
	"year": {}, "month": {}, "day": {}, "hour": {}, "minute": {}, "second": {},
	"week": {}, "quarter": {}, "epoch": {}, "dow": {}, "doy": {},
	"integer": {}, "bigint": {}, "double": {}, "varchar": {}, "date": {},
	"timestamp": {}, "time": {}, "boolean": {}, "decimal": {},
}
