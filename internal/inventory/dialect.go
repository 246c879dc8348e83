package inventory

import (
	"fmt"
	"strings"
)

// Dialect selects the driver and inventory queries for a server.
type Dialect string

const (
	SQLServer Dialect = "sqlserver"
	MySQL     Dialect = "mysql"
	Postgres  Dialect = "postgres"
)

// Dialects lists the supported dialects.
var Dialects = []Dialect{SQLServer, MySQL, Postgres}

// ParseDialect accepts a dialect name; empty means SQLServer.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlserver", "mssql":
		return SQLServer, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	}
	return "", fmt.Errorf("unknown dialect %q (want one of %v)", s, Dialects)
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	return string(d)
}

// DatabasesQuery lists user databases in case-insensitive name order.
func (d Dialect) DatabasesQuery() string {
	switch d {
	case MySQL:
		return "SELECT SCHEMA_NAME FROM information_schema.SCHEMATA " +
			"WHERE SCHEMA_NAME NOT IN ('mysql', 'information_schema', 'performance_schema', 'sys') " +
			"ORDER BY SCHEMA_NAME"
	case Postgres:
		return "SELECT datname FROM pg_database " +
			"WHERE datistemplate = false AND datallowconn " +
			"ORDER BY lower(datname)"
	default:
		return "SELECT name FROM sys.databases " +
			"WHERE database_id > 4 AND name NOT LIKE 'System%' AND state = 0 " +
			"ORDER BY name"
	}
}

// TablesQuery lists (schema, table) pairs of base tables. The mysql variant
// takes the database name as its only argument and runs on the server
// connection; the others run on a database-scoped connection.
func (d Dialect) TablesQuery() string {
	switch d {
	case MySQL:
		return "SELECT TABLE_SCHEMA, TABLE_NAME FROM information_schema.TABLES " +
			"WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = ? " +
			"ORDER BY TABLE_NAME"
	case Postgres:
		return "SELECT table_schema, table_name FROM information_schema.tables " +
			"WHERE table_type = 'BASE TABLE' AND table_schema NOT IN ('pg_catalog', 'information_schema') " +
			"ORDER BY table_schema, table_name"
	default:
		return "SELECT TABLE_SCHEMA, TABLE_NAME FROM INFORMATION_SCHEMA.TABLES " +
			"WHERE TABLE_TYPE = 'BASE TABLE' " +
			"ORDER BY TABLE_SCHEMA, TABLE_NAME"
	}
}

// QuoteTable renders a table name the way the scaffolding engine expects.
func (d Dialect) QuoteTable(schema, table string) string {
	switch d {
	case MySQL:
		return "`" + table + "`"
	case Postgres:
		return `"` + schema + `"."` + table + `"`
	default:
		return "[" + schema + "].[" + table + "]"
	}
}
