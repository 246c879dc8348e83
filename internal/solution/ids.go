package solution

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces unit identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator generates random upper-case GUIDs, the form solution documents
// use for project identifiers.
//
// Thread-safety: UUIDGenerator is stateless and safe for concurrent use.
type UUIDGenerator struct{}

// Generate returns a new identifier such as "3F2504E0-4F89-41D3-9A0C-0305E82C3301".
func (UUIDGenerator) Generate() string {
	return strings.ToUpper(uuid.NewString())
}

// SequenceGenerator returns predictable identifiers for tests and golden
// output: 00000000-0000-0000-0000-000000000001, ...0002, and so on.
//
// Thread-safety: SequenceGenerator is safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu sync.Mutex
	n  int
}

// NewSequenceGenerator creates a generator whose first identifier ends in 1.
func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{}
}

// Generate returns the next identifier in the sequence.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", g.n)
}

// normalizeID strips braces and upper-cases an identifier.
func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "{")
	id = strings.TrimSuffix(id, "}")
	return strings.ToUpper(id)
}

// validID reports whether id parses as a GUID.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
