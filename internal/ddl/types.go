// Package ddl defines a small model for table definitions. Renderers in the
// storage backends turn it into dialect-specific statements; this package
// does no quoting and emits no SQL.
package ddl

import (
	"fmt"
	"strings"

	"dataprocessor/internal/schema"
)

// ColumnDef describes a single column.
//
// Fields:
//   - Name: column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (e.g., TEXT, INTEGER, DATE)
//   - Nullable: whether NULL is allowed at creation
//   - PrimaryKey: whether the column is part of the primary key
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
}

// TableDef names a table by schema and table and lists its columns in order.
type TableDef struct {
	Schema  string
	Name    string
	Columns []ColumnDef
}

// FQN returns the dotted "schema.name" form used in logs.
func (t TableDef) FQN() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// PrimaryKey returns the primary-key column names in column order.
func (t TableDef) PrimaryKey() []string {
	var pks []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			pks = append(pks, c.Name)
		}
	}
	return pks
}

// ColumnNames returns all column names in order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Validate checks the definition is renderable: a table name, at least one
// column, and a name and type on every column.
func (t TableDef) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("ddl: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("ddl: at least one column is required")
	}
	for i, c := range t.Columns {
		if c.Name == "" {
			return fmt.Errorf("ddl: column %d with empty name in table %s", i, t.FQN())
		}
		if strings.TrimSpace(c.SQLType) == "" {
			return fmt.Errorf("ddl: column %s missing SQLType", c.Name)
		}
	}
	return nil
}

// FromTable derives the definition of a loaded table. Every column is
// nullable at creation; the id column is flagged as the primary key, which
// the backend adds once the rows are in.
func FromTable(schemaName, name string, tbl *schema.Table) TableDef {
	def := TableDef{Schema: schemaName, Name: name, Columns: make([]ColumnDef, 0, len(tbl.Columns))}
	for _, c := range tbl.Columns {
		def.Columns = append(def.Columns, ColumnDef{
			Name:       c.Name,
			SQLType:    c.Type.SQL(),
			Nullable:   true,
			PrimaryKey: c.Name == schema.IDColumn,
		})
	}
	return def
}
