// Package schema owns the destination table: its fixed column mapping and
// the statements that create it and insert into it.
package schema

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// QualifiedName returns the quoted namespace.table identifier.
func QualifiedName(namespace, table string) string {
	return pgx.Identifier{namespace, table}.Sanitize()
}

// CreateNamespaceSQL returns the idempotent schema creation statement.
func CreateNamespaceSQL(namespace string) string {
	return "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{namespace}.Sanitize()
}

// RecreateTableSQL returns one statement string that drops the table if it
// exists and creates it again with the fixed column list.
func RecreateTableSQL(namespace, table string) string {
	name := QualifiedName(namespace, table)

	var b strings.Builder
	fmt.Fprintf(&b, "DROP TABLE IF EXISTS %s;\n", name)
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", name)
	fmt.Fprintf(&b, "    %s SERIAL PRIMARY KEY", pgx.Identifier{SurrogateKey}.Sanitize())
	for _, c := range columns {
		fmt.Fprintf(&b, ",\n    %s %s", pgx.Identifier{c.Name}.Sanitize(), c.Type)
	}
	b.WriteString("\n);")
	return b.String()
}

// InsertSQL returns the parameterized insert, with $1..$N in Columns() order.
func InsertSQL(namespace, table string) string {
	names := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, c := range columns {
		names[i] = pgx.Identifier{c.Name}.Sanitize()
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QualifiedName(namespace, table),
		strings.Join(names, ", "),
		strings.Join(params, ", "),
	)
}
