// Package inventory talks to the target database server: it parses the
// connection identity, derives per-database connection targets, checks
// connectivity under its own timeout and lists the databases (and tables)
// the server exposes.
//
// Three dialects are supported: sqlserver (ADO-style key=value strings or a
// bare server name), mysql (go-sql-driver DSNs) and postgres (URLs or libpq
// key=value strings).
package inventory
