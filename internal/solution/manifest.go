package solution

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// Kind distinguishes the build unit flavours.
type Kind int

const (
	// KindLibrary is a data-access library generated from one database.
	KindLibrary Kind = iota + 1
	// KindAPI is a web API unit that references every library of the run.
	KindAPI
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindLibrary:
		return "library"
	case KindAPI:
		return "api"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Token returns the namespace segment used for the kind ("DAL" or "API").
func (k Kind) Token() string {
	switch k {
	case KindAPI:
		return "API"
	default:
		return "DAL"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "library", "dal":
		return KindLibrary, nil
	case "api":
		return KindAPI, nil
	}
	return 0, fmt.Errorf("unknown unit kind %q", s)
}

// Unit is one independently buildable project registered in a manifest.
type Unit struct {
	// ID is the stable GUID, upper-case and without braces.
	ID string
	// Name is unique within the manifest (case-insensitive).
	Name string
	// Path is relative to the solution directory and always uses forward slashes.
	Path string
	Kind Kind
	// Database is the source database for library units.
	Database string
	// Notes holds outcome metadata appended after registration.
	Notes []string
}

// Config is the manifest-level configuration block.
type Config struct {
	FormatVersion              string
	VisualStudioMajor          string
	VisualStudioVersion        string
	MinimumVisualStudioVersion string
	Configurations             []string
	Platform                   string
}

// DefaultConfig returns the configuration block written by new manifests.
func DefaultConfig() Config {
	return Config{
		FormatVersion:              "12.00",
		VisualStudioMajor:          "17",
		VisualStudioVersion:        "17.0.31903.59",
		MinimumVisualStudioVersion: "10.0.40219.1",
		Configurations:             []string{"Debug", "Release"},
		Platform:                   "Any CPU",
	}
}

// Registration describes a unit to add. ID is optional; a new one is generated
// when empty.
type Registration struct {
	ID       string
	Name     string
	Path     string
	Kind     Kind
	Database string
}

// Manifest is the ordered, append-only set of units of one run.
//
// Thread-safety: all methods are safe for concurrent use. Registration is
// serialized by a single mutex, so concurrent attempts can never produce two
// units with the same name.
type Manifest struct {
	mu     sync.Mutex
	config Config
	ids    IDGenerator
	units  []*Unit
	byKey  map[string]int
}

// Option configures a Manifest.
type Option func(*Manifest)

// WithIDGenerator replaces the default random GUID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(m *Manifest) {
		if g != nil {
			m.ids = g
		}
	}
}

// New creates an empty manifest.
func New(cfg Config, opts ...Option) *Manifest {
	m := &Manifest{
		config: cfg,
		ids:    UUIDGenerator{},
		byKey:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the configuration block.
func (m *Manifest) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := m.config
	cfg.Configurations = append([]string(nil), m.config.Configurations...)
	return cfg
}

// RegisterUnit appends a new unit with a freshly generated identifier.
func (m *Manifest) RegisterUnit(name string, kind Kind, relPath string) (Unit, error) {
	return m.Register(Registration{Name: name, Kind: kind, Path: relPath})
}

// Register appends a unit. It fails with *DuplicateUnitError when the name is
// already taken, and never modifies existing units.
func (m *Manifest) Register(r Registration) (Unit, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return Unit{}, &InvalidUnitError{Field: "name", Message: "must not be empty"}
	}
	if strings.ContainsAny(name, "\"\r\n") {
		return Unit{}, &InvalidUnitError{Field: "name", Message: fmt.Sprintf("%q contains quote or line break", name)}
	}
	rel, err := cleanRelativePath(r.Path)
	if err != nil {
		return Unit{}, err
	}
	if r.Kind != KindLibrary && r.Kind != KindAPI {
		return Unit{}, &InvalidUnitError{Field: "kind", Message: r.Kind.String()}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := foldName(name)
	if idx, ok := m.byKey[key]; ok {
		return Unit{}, &DuplicateUnitError{Name: name, Existing: m.units[idx].Name}
	}

	id := normalizeID(r.ID)
	if id == "" {
		id = normalizeID(m.ids.Generate())
	}
	if !validID(id) {
		return Unit{}, &InvalidUnitError{Field: "id", Message: fmt.Sprintf("%q is not a GUID", r.ID)}
	}
	for _, u := range m.units {
		if u.ID == id {
			return Unit{}, &InvalidUnitError{Field: "id", Message: fmt.Sprintf("%s already used by %q", id, u.Name)}
		}
	}

	u := &Unit{
		ID:       id,
		Name:     name,
		Path:     rel,
		Kind:     r.Kind,
		Database: r.Database,
	}
	m.byKey[key] = len(m.units)
	m.units = append(m.units, u)
	return copyUnit(u), nil
}

// Annotate appends outcome metadata to a registered unit.
func (m *Manifest) Annotate(name, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.byKey[foldName(name)]
	if !ok {
		return fmt.Errorf("annotate: unit %q not registered", name)
	}
	m.units[idx].Notes = append(m.units[idx].Notes, note)
	return nil
}

// Lookup returns the unit registered under name (case-insensitive).
func (m *Manifest) Lookup(name string) (Unit, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.byKey[foldName(name)]
	if !ok {
		return Unit{}, false
	}
	return copyUnit(m.units[idx]), true
}

// Units returns a snapshot of the registered units in registration order.
func (m *Manifest) Units() []Unit {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Unit, len(m.units))
	for i, u := range m.units {
		out[i] = copyUnit(u)
	}
	return out
}

// UnitsOfKind returns the registered units of one kind, in order.
func (m *Manifest) UnitsOfKind(kind Kind) []Unit {
	var out []Unit
	for _, u := range m.Units() {
		if u.Kind == kind {
			out = append(out, u)
		}
	}
	return out
}

// Len returns the number of registered units.
func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.units)
}

// ToDocument renders the manifest in solution-document format. Rendering does
// not touch identifiers, so repeated calls return identical text.
func (m *Manifest) ToDocument() string {
	return Render(m.Config(), m.Units())
}

func copyUnit(u *Unit) Unit {
	c := *u
	c.Notes = append([]string(nil), u.Notes...)
	return c
}

// foldName returns the case-insensitive comparison key for a unit name.
// A Caser is stateful, so a fresh one is used per call.
func foldName(name string) string {
	return cases.Fold().String(name)
}

func cleanRelativePath(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return "", &InvalidUnitError{Field: "path", Message: "must not be empty"}
	}
	if strings.HasPrefix(p, "/") || (len(p) > 1 && p[1] == ':') {
		return "", &InvalidUnitError{Field: "path", Message: fmt.Sprintf("%q is not relative", p)}
	}
	p = path.Clean(p)
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", &InvalidUnitError{Field: "path", Message: fmt.Sprintf("%q escapes the solution directory", p)}
	}
	if strings.ContainsAny(p, "\"\r\n") {
		return "", &InvalidUnitError{Field: "path", Message: fmt.Sprintf("%q contains quote or line break", p)}
	}
	return p, nil
}
