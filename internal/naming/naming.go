// Package naming derives the deterministic names used across a generation
// run: the solution file name, unit names, namespaces and API route segments.
package naming

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"

	"github.com/roach88/ezdbgen/internal/solution"
)

// ErrCodeInvalidIdentity identifies connection identities that yield no name.
const ErrCodeInvalidIdentity = "INVALID_IDENTITY"

// LibrarySeparator joins the assembly prefix and the database name of a
// library unit.
const LibrarySeparator = ".DAL."

// serverPrefix is prepended to server names that do not start with a letter.
const serverPrefix = "Server"

var (
	disallowed   = regexp.MustCompile(`[^A-Za-z0-9_]`)
	routeInvalid = regexp.MustCompile(`[^a-z0-9-]+`)
)

// InvalidIdentityError reports a connection identity from which no
// identifier-safe token can be derived.
type InvalidIdentityError struct {
	Identity string
}

// Error implements the error interface.
func (e *InvalidIdentityError) Error() string {
	return fmt.Sprintf("%s: %q yields an empty server name", ErrCodeInvalidIdentity, e.Identity)
}

// IsInvalidIdentityError returns true if err is, or wraps, an InvalidIdentityError.
func IsInvalidIdentityError(err error) bool {
	var ie *InvalidIdentityError
	return errors.As(err, &ie)
}

// ServerName derives the solution name from a server data source such as
// "db01\SQLEXPRESS,1433": backslashes become underscores, the port suffix is
// dropped, everything outside [A-Za-z0-9_] is removed, and "Server" is
// prepended when the result does not start with a letter.
func ServerName(dataSource string) (string, error) {
	name := strings.ReplaceAll(strings.TrimSpace(dataSource), `\`, "_")
	name, _, _ = strings.Cut(name, ",")
	name = disallowed.ReplaceAllString(name, "")
	if strings.Trim(name, "_") == "" {
		return "", &InvalidIdentityError{Identity: dataSource}
	}
	if !unicode.IsLetter(rune(name[0])) {
		name = serverPrefix + name
	}
	return name, nil
}

// UnitName returns the library unit name for a database.
func UnitName(prefix, database string) string {
	return prefix + LibrarySeparator + database
}

// APIUnitName returns the name of the API unit.
func APIUnitName(prefix string) string {
	return prefix + "." + solution.KindAPI.Token()
}

// Namespace returns {prefix}.{kind}.{database}. An empty database yields
// {prefix}.{kind}.
func Namespace(prefix string, kind solution.Kind, database string) string {
	ns := prefix + "." + kind.Token()
	if database != "" {
		ns += "." + database
	}
	return ns
}

// ModelNamespace is the namespace of generated entity and context types.
func ModelNamespace(prefix, database string) string {
	return Namespace(prefix, solution.KindLibrary, database) + ".Models"
}

// ContextName returns the data-context type name for a database.
func ContextName(database string) string {
	return Identifier(database) + "Context"
}

// Identifier turns a database name into a C# identifier: characters outside
// [A-Za-z0-9_] become underscores and a leading digit gets an underscore.
func Identifier(name string) string {
	id := disallowed.ReplaceAllString(name, "_")
	if id == "" {
		return "_"
	}
	if unicode.IsDigit(rune(id[0])) {
		id = "_" + id
	}
	return id
}

// RouteSegment returns the lower-case, dash-separated route token used for a
// database's API endpoints ("SalesArchive" -> "sales-archive").
func RouteSegment(database string) string {
	seg := strings.ToLower(inflect.Dasherize(Identifier(database)))
	seg = routeInvalid.ReplaceAllString(seg, "-")
	seg = strings.Trim(seg, "-")
	if seg == "" {
		return "db"
	}
	return seg
}

// UnitPath is the solution-relative project path of a library unit.
func UnitPath(prefix, database string) string {
	return solution.KindLibrary.Token() + "/" + database + "/" + UnitName(prefix, database) + ".csproj"
}

// APIUnitPath is the solution-relative project path of the API unit.
func APIUnitPath(prefix string) string {
	return solution.KindAPI.Token() + "/" + APIUnitName(prefix) + ".csproj"
}
