// Package schema turns an untyped dataset.Frame into a typed table ready for
// a bulk write: each column gets a ColumnType, either declared or inferred
// from its values, and each cell is coerced into the Go value pgx encodes for
// that type.
package schema

// ColumnType is the target SQL type of a column.
type ColumnType int

const (
	Text ColumnType = iota
	Integer
	BigInt
	Numeric
	Double
	Boolean
	Date
)

var typeNames = [...]string{
	Text:    "text",
	Integer: "integer",
	BigInt:  "bigint",
	Numeric: "numeric",
	Double:  "double",
	Boolean: "boolean",
	Date:    "date",
}

func (t ColumnType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "unknown"
	}
	return typeNames[t]
}

// SQL returns the Postgres type name used in CREATE TABLE.
func (t ColumnType) SQL() string {
	switch t {
	case Integer:
		return "INTEGER"
	case BigInt:
		return "BIGINT"
	case Numeric:
		return "NUMERIC"
	case Double:
		return "DOUBLE PRECISION"
	case Boolean:
		return "BOOLEAN"
	case Date:
		return "DATE"
	default:
		return "TEXT"
	}
}

// IDColumn is the primary-key column of every loaded table.
const IDColumn = "id"

// Types maps lowercased column names to declared types. Columns not present
// in the map have their type inferred.
type Types map[string]ColumnType

// OnderwijsTypes is the declared type map for the RIO education datasets.
var OnderwijsTypes = Types{
	"id":                  Integer,
	"onderwijsbestuurid":  Text,
	"in_bedrijfdatum":     Date,
	"uit_bedrijfdatum":    Date,
	"begindatum_periode":  Date,
	"einddatum_periode":   Date,
	"internationale_naam": Text,
	"kvk_nummer":          Numeric,
	"rsin":                Numeric,
}
