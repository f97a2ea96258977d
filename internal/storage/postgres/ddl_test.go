package postgres

import (
	"reflect"
	"strings"
	"testing"

	"dataprocessor/internal/ddl"

	"github.com/jackc/pgx/v5"
)

func besturenDef() ddl.TableDef {
	return ddl.TableDef{
		Schema: "dataset_onderwijs",
		Name:   "onderwijs_onderwijsbesturen_new",
		Columns: []ddl.ColumnDef{
			{Name: "id", SQLType: "INTEGER", Nullable: true, PrimaryKey: true},
			{Name: "onderwijsbestuurid", SQLType: "TEXT", Nullable: true},
			{Name: "in_bedrijfdatum", SQLType: "DATE", Nullable: true},
			{Name: "kvk_nummer", SQLType: "NUMERIC", Nullable: false},
		},
	}
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "simple", in: "naam", want: `"naam"`},
		{name: "empty", in: "", want: `""`},
		{name: "with space", in: "naam instelling", want: `"naam instelling"`},
		{name: "with double quote", in: `weird"name`, want: `"weird""name"`},
		{name: "multiple quotes", in: `"a""b"`, want: `"""a""""b"""`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := quoteIdent(tt.in); got != tt.want {
				t.Fatalf("quoteIdent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestQuoteTable(t *testing.T) {
	t.Parallel()

	if got := quoteTable(ddl.TableDef{Name: "t"}); got != `"t"` {
		t.Fatalf("no schema: %q", got)
	}
	if got := quoteTable(ddl.TableDef{Schema: "s", Name: "a.b"}); got != `"s"."a.b"` {
		t.Fatalf("dotted name: %q", got)
	}
	if got := tableIdent(ddl.TableDef{Schema: "s", Name: "t"}); !reflect.DeepEqual(got, pgx.Identifier{"s", "t"}) {
		t.Fatalf("tableIdent = %v", got)
	}
	if got := tableIdent(ddl.TableDef{Name: "t"}); !reflect.DeepEqual(got, pgx.Identifier{"t"}) {
		t.Fatalf("tableIdent without schema = %v", got)
	}
}

func TestBuildCreateSchemaSQL(t *testing.T) {
	t.Parallel()

	got, err := BuildCreateSchemaSQL("dataset_onderwijs")
	if err != nil {
		t.Fatalf("BuildCreateSchemaSQL: %v", err)
	}
	if want := `CREATE SCHEMA IF NOT EXISTS "dataset_onderwijs"`; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if _, err := BuildCreateSchemaSQL("  "); err == nil {
		t.Fatal("blank schema: want error")
	}
}

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	got, err := BuildCreateTableSQL(besturenDef())
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	want := "" +
		`CREATE TABLE "dataset_onderwijs"."onderwijs_onderwijsbesturen_new" (` + "\n" +
		`  "id" INTEGER,` + "\n" +
		`  "onderwijsbestuurid" TEXT,` + "\n" +
		`  "in_bedrijfdatum" DATE,` + "\n" +
		`  "kvk_nummer" NUMERIC NOT NULL` + "\n" +
		`)`
	if got != want {
		t.Fatalf("BuildCreateTableSQL() =\n%s\nwant:\n%s", got, want)
	}
}

func TestBuildCreateTableSQLErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		def  ddl.TableDef
	}{
		{"empty name", ddl.TableDef{Schema: "s", Columns: []ddl.ColumnDef{{Name: "id", SQLType: "INTEGER"}}}},
		{"no columns", ddl.TableDef{Name: "t"}},
		{"column missing SQLType", ddl.TableDef{Name: "t", Columns: []ddl.ColumnDef{{Name: "id"}}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := BuildCreateTableSQL(tt.def)
			if err == nil {
				t.Fatalf("BuildCreateTableSQL(%+v) error = nil, want non-nil", tt.def)
			}
			if got != "" {
				t.Fatalf("SQL = %q, want empty string on error", got)
			}
			if !strings.HasPrefix(err.Error(), "postgres ddl: ") {
				t.Fatalf("error prefix mismatch: %v", err)
			}
		})
	}
}

func TestBuildDropAndPrimaryKeySQL(t *testing.T) {
	t.Parallel()

	def := besturenDef()
	if got, want := BuildDropTableSQL(def), `DROP TABLE IF EXISTS "dataset_onderwijs"."onderwijs_onderwijsbesturen_new"`; got != want {
		t.Fatalf("drop = %q, want %q", got, want)
	}

	got, err := BuildAddPrimaryKeySQL(def)
	if err != nil {
		t.Fatalf("BuildAddPrimaryKeySQL: %v", err)
	}
	if want := `ALTER TABLE "dataset_onderwijs"."onderwijs_onderwijsbesturen_new" ADD PRIMARY KEY ("id")`; got != want {
		t.Fatalf("pk = %q, want %q", got, want)
	}

	def.Columns[0].PrimaryKey = false
	if _, err := BuildAddPrimaryKeySQL(def); err == nil {
		t.Fatal("no pk columns: want error")
	}
}
