package mask

// RejectEmpty marks a database whose object-level masks left no table.
const RejectEmpty RejectReason = "empty"

// NarrowsObjects reports whether any mask whose database component matches
// database also constrains the schema or table component. Such databases
// need their tables listed and filtered before scaffolding.
func NarrowsObjects(masks []*CompiledMask, database string) bool {
	for _, m := range masks {
		if !m.database.MatchString(database) {
			continue
		}
		if !matchesEverything(m.Schema) || !matchesEverything(m.Table) {
			return true
		}
	}
	return false
}

// SelectObjects filters the tables of one database. Reserved handling and
// exclusion precedence are those of Select.
func SelectObjects(tables []Candidate, masks []*CompiledMask) []Candidate {
	return Select(tables, masks).Selected
}
