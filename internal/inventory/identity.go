package inventory

import (
	"fmt"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// param is one key/value pair of a connection string.
type param struct {
	key   string
	value string
}

// Identity is a parsed connection identity. It knows how to retarget itself
// at one database and which data source it points at.
type Identity struct {
	dialect Dialect
	params  []param
	mysql   *mysql.Config
}

// ParseIdentity parses raw for dialect d. A bare server name (no "=", no
// URL scheme, no DSN separators) is accepted by every dialect; for sqlserver
// it becomes "Server=<name>;Integrated Security=True;".
func ParseIdentity(d Dialect, raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, fmt.Errorf("connection identity is empty")
	}
	switch d {
	case MySQL:
		return parseMySQL(raw)
	case Postgres:
		return parsePostgres(raw)
	case SQLServer:
		return parseSQLServer(raw)
	}
	return Identity{}, fmt.Errorf("unknown dialect %q", d)
}

// Dialect returns the identity's dialect.
func (i Identity) Dialect() Dialect {
	return i.dialect
}

// String renders the connection string handed to the driver.
func (i Identity) String() string {
	switch i.dialect {
	case MySQL:
		return i.mysql.FormatDSN()
	case Postgres:
		parts := make([]string, len(i.params))
		for n, p := range i.params {
			parts[n] = p.key + "=" + quotePostgres(p.value)
		}
		return strings.Join(parts, " ")
	default:
		var b strings.Builder
		for _, p := range i.params {
			b.WriteString(p.key)
			b.WriteByte('=')
			b.WriteString(quoteADO(p.value))
			b.WriteByte(';')
		}
		return b.String()
	}
}

// Redacted renders the connection string with any password masked.
func (i Identity) Redacted() string {
	switch i.dialect {
	case MySQL:
		c := i.mysql.Clone()
		if c.Passwd != "" {
			c.Passwd = "xxxxx"
		}
		return c.FormatDSN()
	default:
		c := i.clone()
		for n, p := range c.params {
			if isPasswordKey(p.key) {
				c.params[n].value = "xxxxx"
			}
		}
		return c.String()
	}
}

// DataSource returns the server part of the identity in "host[,port]" form,
// which is what server names are derived from.
func (i Identity) DataSource() string {
	switch i.dialect {
	case MySQL:
		host, port, err := net.SplitHostPort(i.mysql.Addr)
		if err != nil {
			return i.mysql.Addr
		}
		return host + "," + port
	case Postgres:
		host := i.lookup("host")
		if port := i.lookup("port"); port != "" {
			return host + "," + port
		}
		return host
	default:
		return i.lookup("server", "data source", "address", "addr", "network address")
	}
}

// Database returns the database the identity targets, if any.
func (i Identity) Database() string {
	switch i.dialect {
	case MySQL:
		return i.mysql.DBName
	case Postgres:
		return i.lookup("dbname")
	default:
		return i.lookup("database", "initial catalog")
	}
}

// ForDatabase returns a copy of the identity scoped to database.
func (i Identity) ForDatabase(database string) Identity {
	c := i.clone()
	switch c.dialect {
	case MySQL:
		c.mysql.DBName = database
	case Postgres:
		c.set("dbname", database)
	default:
		c.remove("initial catalog")
		c.set("Database", database)
	}
	return c
}

func (i Identity) clone() Identity {
	c := Identity{dialect: i.dialect}
	c.params = append([]param(nil), i.params...)
	if i.mysql != nil {
		c.mysql = i.mysql.Clone()
	}
	return c
}

func (i Identity) lookup(keys ...string) string {
	for _, k := range keys {
		for _, p := range i.params {
			if strings.EqualFold(p.key, k) {
				return p.value
			}
		}
	}
	return ""
}

func (i *Identity) set(key, value string) {
	for n, p := range i.params {
		if strings.EqualFold(p.key, key) {
			i.params[n].value = value
			return
		}
	}
	i.params = append(i.params, param{key: key, value: value})
}

func (i *Identity) remove(key string) {
	out := i.params[:0]
	for _, p := range i.params {
		if !strings.EqualFold(p.key, key) {
			out = append(out, p)
		}
	}
	i.params = out
}

func isPasswordKey(k string) bool {
	switch strings.ToLower(k) {
	case "password", "pwd":
		return true
	}
	return false
}

func parseSQLServer(raw string) (Identity, error) {
	if !strings.Contains(raw, "=") {
		return Identity{dialect: SQLServer, params: []param{
			{key: "Server", value: raw},
			{key: "Integrated Security", value: "True"},
		}}, nil
	}
	params, err := splitADO(raw)
	if err != nil {
		return Identity{}, err
	}
	id := Identity{dialect: SQLServer, params: params}
	if id.DataSource() == "" {
		return Identity{}, fmt.Errorf("connection string has no server")
	}
	return id, nil
}

// splitADO splits "k=v;k2='v;2'" into pairs. Values may be wrapped in single
// or double quotes; a doubled quote inside a quoted value is literal.
func splitADO(raw string) ([]param, error) {
	var params []param
	rest := raw
	for {
		rest = strings.TrimLeft(rest, " \t;")
		if rest == "" {
			return params, nil
		}
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("malformed connection string segment %q", rest)
		}
		key := strings.TrimSpace(rest[:eq])
		rest = strings.TrimLeft(rest[eq+1:], " \t")

		var value string
		if rest != "" && (rest[0] == '"' || rest[0] == '\'') {
			q := rest[0]
			var b strings.Builder
			n := 1
			closed := false
			for n < len(rest) {
				if rest[n] == q {
					if n+1 < len(rest) && rest[n+1] == q {
						b.WriteByte(q)
						n += 2
						continue
					}
					closed = true
					n++
					break
				}
				b.WriteByte(rest[n])
				n++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated quoted value for %q", key)
			}
			value = b.String()
			rest = rest[n:]
		} else {
			end := strings.IndexByte(rest, ';')
			if end < 0 {
				end = len(rest)
			}
			value = strings.TrimSpace(rest[:end])
			rest = rest[end:]
		}
		params = append(params, param{key: key, value: value})
	}
}

func quoteADO(v string) string {
	if !strings.ContainsAny(v, ";'\"") && strings.TrimSpace(v) == v {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func parseMySQL(raw string) (Identity, error) {
	if !strings.ContainsAny(raw, "/@(") {
		cfg := mysql.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = raw
		if _, _, err := net.SplitHostPort(raw); err != nil {
			cfg.Addr = net.JoinHostPort(raw, "3306")
		}
		return Identity{dialect: MySQL, mysql: cfg}, nil
	}
	cfg, err := mysql.ParseDSN(raw)
	if err != nil {
		return Identity{}, fmt.Errorf("parse mysql dsn: %w", err)
	}
	return Identity{dialect: MySQL, mysql: cfg}, nil
}

func parsePostgres(raw string) (Identity, error) {
	switch {
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		kv, err := pq.ParseURL(raw)
		if err != nil {
			return Identity{}, fmt.Errorf("parse postgres url: %w", err)
		}
		raw = kv
	case !strings.Contains(raw, "="):
		raw = "host=" + raw
	}
	params, err := splitPostgres(raw)
	if err != nil {
		return Identity{}, err
	}
	id := Identity{dialect: Postgres, params: params}
	if id.lookup("host") == "" {
		return Identity{}, fmt.Errorf("postgres connection string has no host")
	}
	return id, nil
}

// splitPostgres parses libpq "key=value key2='quoted value'" strings.
func splitPostgres(raw string) ([]param, error) {
	var params []param
	rest := raw
	for {
		rest = strings.TrimLeft(rest, " \t\n")
		if rest == "" {
			return params, nil
		}
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("malformed connection string segment %q", rest)
		}
		key := strings.TrimSpace(rest[:eq])
		rest = strings.TrimLeft(rest[eq+1:], " \t")

		var b strings.Builder
		if rest != "" && rest[0] == '\'' {
			n := 1
			closed := false
			for n < len(rest) {
				switch rest[n] {
				case '\\':
					if n+1 < len(rest) {
						b.WriteByte(rest[n+1])
						n += 2
						continue
					}
				case '\'':
					closed = true
				}
				if closed {
					n++
					break
				}
				b.WriteByte(rest[n])
				n++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated quoted value for %q", key)
			}
			rest = rest[n:]
		} else {
			end := strings.IndexAny(rest, " \t\n")
			if end < 0 {
				end = len(rest)
			}
			b.WriteString(rest[:end])
			rest = rest[end:]
		}
		params = append(params, param{key: key, value: b.String()})
	}
}

func quotePostgres(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n'\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
