package mask

import (
	"fmt"
	"regexp"
	"strings"
)

// Wildcard is the component value that matches everything. Candidates use it
// for the schema and table when filtering at database granularity.
const Wildcard = "*"

// Pattern is the structured form of a raw mask.
type Pattern struct {
	Database string
	Schema   string
	Table    string
	Excluded bool
}

// String renders the pattern back into mask syntax.
func (p Pattern) String() string {
	s := p.Database + "." + p.Schema + "." + p.Table
	if p.Excluded {
		return "-" + s
	}
	return s
}

// CompiledMask is a Pattern with one matcher per component. It is immutable
// once compiled and safe for concurrent use.
type CompiledMask struct {
	Pattern

	raw      string
	database *regexp.Regexp
	schema   *regexp.Regexp
	table    *regexp.Regexp
}

// Raw returns the mask exactly as it was supplied to Compile.
func (m *CompiledMask) Raw() string {
	return m.raw
}

// Compile parses a raw mask.
//
// Examples:
//
//	Compile("Sales")                 // Sales.*.*
//	Compile("Sales.dbo")             // Sales.dbo.*
//	Compile("-Sales.dbo.system*")    // exclusion
//	Compile("a.b.c.d")               // *MaskFormatError
func Compile(raw string) (*CompiledMask, error) {
	excluded := strings.HasPrefix(raw, "-")
	clean := strings.TrimPrefix(raw, "-")

	parts := strings.Split(clean, ".")
	if len(parts) > 3 {
		return nil, &MaskFormatError{Mask: raw, Parts: len(parts)}
	}
	for i, part := range parts {
		if part == "" {
			return nil, &MaskFormatError{Mask: raw, Parts: len(parts), Reason: fmt.Sprintf("component %d is empty", i+1)}
		}
	}
	for len(parts) < 3 {
		parts = append(parts, Wildcard)
	}

	m := &CompiledMask{
		Pattern: Pattern{
			Database: parts[0],
			Schema:   parts[1],
			Table:    parts[2],
			Excluded: excluded,
		},
		raw:      raw,
		database: wildcardRegexp(parts[0]),
		schema:   wildcardRegexp(parts[1]),
		table:    wildcardRegexp(parts[2]),
	}
	return m, nil
}

// CompileAll compiles every mask, stopping at the first malformed one.
func CompileAll(raws []string) ([]*CompiledMask, error) {
	masks := make([]*CompiledMask, 0, len(raws))
	for _, raw := range raws {
		m, err := Compile(raw)
		if err != nil {
			return nil, err
		}
		masks = append(masks, m)
	}
	return masks, nil
}

// Matches reports whether all three components of c match the mask.
//
// A candidate component equal to Wildcard stands for "any object below this
// level". Include masks always match it; exclude masks only match it when the
// mask component itself covers everything, so "-Sales.dbo.system*" never
// excludes the whole Sales database.
func (m *CompiledMask) Matches(c Candidate) bool {
	return m.matchComponent(m.database, m.Database, c.Database) &&
		m.matchComponent(m.schema, m.Schema, c.Schema) &&
		m.matchComponent(m.table, m.Table, c.Table)
}

func (m *CompiledMask) matchComponent(re *regexp.Regexp, pattern, value string) bool {
	if value == Wildcard {
		if m.Excluded {
			return matchesEverything(pattern)
		}
		return true
	}
	return re.MatchString(value)
}

// wildcardRegexp translates a wildcard component into an anchored,
// case-insensitive expression. Every non-wildcard rune is quoted.
func wildcardRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

func matchesEverything(pattern string) bool {
	return strings.Trim(pattern, "*") == ""
}
