package mask

import "strings"

// reservedDatabases are never selected, whatever the masks say.
var reservedDatabases = []string{"master", "tempdb", "model", "msdb"}

// ReservedDatabases returns a copy of the reserved system database names.
func ReservedDatabases() []string {
	out := make([]string, len(reservedDatabases))
	copy(out, reservedDatabases)
	return out
}

// IsReserved reports whether name is a reserved system database.
func IsReserved(name string) bool {
	for _, r := range reservedDatabases {
		if strings.EqualFold(r, name) {
			return true
		}
	}
	return false
}

// Candidate is one entry of the live inventory.
type Candidate struct {
	Database string
	Schema   string
	Table    string
}

// DatabaseCandidate returns a database-granularity candidate.
func DatabaseCandidate(name string) Candidate {
	return Candidate{Database: name, Schema: Wildcard, Table: Wildcard}
}

// String renders the candidate as a three-part name.
func (c Candidate) String() string {
	return c.Database + "." + c.Schema + "." + c.Table
}

// RejectReason explains why a candidate was not selected.
type RejectReason string

const (
	RejectReserved  RejectReason = "reserved"
	RejectExcluded  RejectReason = "excluded"
	RejectUnmatched RejectReason = "unmatched"
)

// Rejection records a candidate left out of the selection.
type Rejection struct {
	Candidate Candidate
	Reason    RejectReason
	// Mask is the raw exclude mask responsible, for RejectExcluded.
	Mask string
}

// Selection is the result of evaluating masks against an inventory.
// Selected and Rejected both preserve inventory order.
type Selection struct {
	Selected []Candidate
	Rejected []Rejection
}

// Databases returns the distinct database names of the selected candidates in
// the order they were first selected.
func (s Selection) Databases() []string {
	seen := make(map[string]struct{}, len(s.Selected))
	var names []string
	for _, c := range s.Selected {
		if _, ok := seen[c.Database]; ok {
			continue
		}
		seen[c.Database] = struct{}{}
		names = append(names, c.Database)
	}
	return names
}

// Select evaluates masks against each candidate independently, in inventory
// order. With no masks every non-reserved candidate is selected.
func Select(inventory []Candidate, masks []*CompiledMask) Selection {
	var sel Selection
	for _, c := range inventory {
		if IsReserved(c.Database) {
			sel.Rejected = append(sel.Rejected, Rejection{Candidate: c, Reason: RejectReserved})
			continue
		}
		if len(masks) == 0 {
			sel.Selected = append(sel.Selected, c)
			continue
		}

		included := false
		var excludedBy *CompiledMask
		for _, m := range masks {
			if !m.Matches(c) {
				continue
			}
			if m.Excluded {
				if excludedBy == nil {
					excludedBy = m
				}
				continue
			}
			included = true
		}

		switch {
		case excludedBy != nil:
			sel.Rejected = append(sel.Rejected, Rejection{Candidate: c, Reason: RejectExcluded, Mask: excludedBy.Raw()})
		case included:
			sel.Selected = append(sel.Selected, c)
		default:
			sel.Rejected = append(sel.Rejected, Rejection{Candidate: c, Reason: RejectUnmatched})
		}
	}
	return sel
}

// SelectDatabases filters database names at database granularity.
func SelectDatabases(names []string, masks []*CompiledMask) Selection {
	inventory := make([]Candidate, 0, len(names))
	for _, name := range names {
		inventory = append(inventory, DatabaseCandidate(name))
	}
	return Select(inventory, masks)
}
