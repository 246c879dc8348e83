// Package mask compiles include/exclude wildcard masks over three-part
// database object names and evaluates them against a live inventory.
//
// A raw mask has the form
//
//	[-]database[.schema[.table]]
//
// Missing components default to "*". A leading "-" turns the mask into an
// exclusion. Within a component "*" matches any run of characters and "?"
// matches exactly one; matching is anchored and case-insensitive. Every other
// character is literal, so a literal "*" or "?" inside an object name cannot be
// matched exactly.
//
// Selection gives exclusion precedence: a candidate is selected when at least
// one include mask matches it and no exclude mask does, regardless of the order
// the masks were given in. The reserved system databases (master, tempdb,
// model, msdb) are never selected.
package mask
