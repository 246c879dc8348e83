package project

import "fmt"

// Provider is the data-access package a library unit builds against.
type Provider struct {
	// Package is the NuGet package id.
	Package string
	// Version is the package version.
	Version string
	// configure renders the options call registering a context, given the
	// expression that yields the connection string.
	configure string
}

// Provider packages per database dialect.
var (
	SQLServerProvider = Provider{
		Package:   "Microsoft.EntityFrameworkCore.SqlServer",
		Version:   "8.0.0",
		configure: "options.UseSqlServer(%s)",
	}
	MySQLProvider = Provider{
		Package:   "Pomelo.EntityFrameworkCore.MySql",
		Version:   "8.0.0",
		configure: "options.UseMySql(%[1]s, ServerVersion.AutoDetect(%[1]s))",
	}
	PostgresProvider = Provider{
		Package:   "Npgsql.EntityFrameworkCore.PostgreSQL",
		Version:   "8.0.0",
		configure: "options.UseNpgsql(%s)",
	}
)

// ProviderFor returns the provider for a dialect name ("sqlserver", "mysql",
// "postgres").
func ProviderFor(dialect string) (Provider, error) {
	switch dialect {
	case "", "sqlserver":
		return SQLServerProvider, nil
	case "mysql":
		return MySQLProvider, nil
	case "postgres":
		return PostgresProvider, nil
	}
	return Provider{}, fmt.Errorf("no provider for dialect %q", dialect)
}

// Configure renders the options call for connection expression expr.
func (p Provider) Configure(expr string) string {
	return fmt.Sprintf(p.configure, expr)
}

// designPackage is referenced by every library unit for design-time tooling.
const designPackage = "Microsoft.EntityFrameworkCore.Design"
