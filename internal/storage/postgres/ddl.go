package postgres

import (
	"fmt"
	"strings"

	"dataprocessor/internal/ddl"

	"github.com/jackc/pgx/v5"
)

// BuildCreateSchemaSQL returns an idempotent CREATE SCHEMA statement.
func BuildCreateSchemaSQL(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("postgres ddl: schema name must not be empty")
	}
	return "CREATE SCHEMA IF NOT EXISTS " + quoteIdent(name), nil
}

// BuildDropTableSQL returns a DROP TABLE IF EXISTS for def's table.
func BuildDropTableSQL(def ddl.TableDef) string {
	return "DROP TABLE IF EXISTS " + quoteTable(def)
}

// BuildCreateTableSQL renders a plain CREATE TABLE for def.
//
// Rules:
//   - def must pass ddl.TableDef.Validate.
//   - A column is rendered as "name" TYPE [NOT NULL].
//   - Primary keys are not part of the statement; the key is added with
//     BuildAddPrimaryKeySQL once the table is loaded.
func BuildCreateTableSQL(def ddl.TableDef) (string, error) {
	if err := def.Validate(); err != nil {
		return "", fmt.Errorf("postgres ddl: %w", err)
	}

	cols := make([]string, 0, len(def.Columns))
	for _, c := range def.Columns {
		var sb strings.Builder
		sb.WriteString(quoteIdent(c.Name))
		sb.WriteByte(' ')
		sb.WriteString(strings.TrimSpace(c.SQLType))
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())
	}

	return fmt.Sprintf(
		"CREATE TABLE %s (\n  %s\n)",
		quoteTable(def),
		strings.Join(cols, ",\n  "),
	), nil
}

// BuildAddPrimaryKeySQL returns the ALTER TABLE adding def's primary key.
func BuildAddPrimaryKeySQL(def ddl.TableDef) (string, error) {
	pks := def.PrimaryKey()
	if len(pks) == 0 {
		return "", fmt.Errorf("postgres ddl: table %s has no primary key columns", def.FQN())
	}
	quoted := make([]string, len(pks))
	for i, p := range pks {
		quoted[i] = quoteIdent(p)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s)", quoteTable(def), strings.Join(quoted, ", ")), nil
}

// quoteIdent quotes a single identifier segment for Postgres, e.g.:
//
//	quoteIdent(`kvk_nummer`) => `"kvk_nummer"`
//	quoteIdent(`weird"name`) => `"weird""name"`
func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// quoteTable renders def's schema-qualified name. Unlike a dotted FQN, the
// schema and table are quoted separately, so dots inside a name survive.
func quoteTable(def ddl.TableDef) string {
	if def.Schema == "" {
		return quoteIdent(def.Name)
	}
	return quoteIdent(def.Schema) + "." + quoteIdent(def.Name)
}

// tableIdent is quoteTable for pgx.CopyFrom.
func tableIdent(def ddl.TableDef) pgx.Identifier {
	if def.Schema == "" {
		return pgx.Identifier{def.Name}
	}
	return pgx.Identifier{def.Schema, def.Name}
}
