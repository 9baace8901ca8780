package generator

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/ridoystarlord/modelforge/diff"
	"github.com/ridoystarlord/modelforge/extractor"
	"github.com/ridoystarlord/modelforge/naming"
	"github.com/ridoystarlord/modelforge/schema"
	"github.com/ridoystarlord/modelforge/store"
)

// Statement is one forward change and its inverse. Up runs when Guard is
// false, Down when it is true.
type Statement struct {
	Guard string
	Up    []string
	Down  []string
}

func q(s string) string {
	return extractor.Quote(s)
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = q(it)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// ColumnLine renders the blueprint call declaring a field.
func ColumnLine(f schema.FieldDefinition) (string, error) {
	var stmt string
	switch f.Kind {
	case schema.Text:
		stmt = fmt.Sprintf("$table->string(%s)", q(f.Name))
	case schema.LongText:
		stmt = fmt.Sprintf("$table->longText(%s)", q(f.Name))
	case schema.Integer:
		stmt = fmt.Sprintf("$table->integer(%s)", q(f.Name))
	case schema.BigInteger:
		stmt = fmt.Sprintf("$table->bigInteger(%s)", q(f.Name))
	case schema.Boolean:
		stmt = fmt.Sprintf("$table->boolean(%s)", q(f.Name))
	case schema.Float:
		stmt = fmt.Sprintf("$table->float(%s)", q(f.Name))
	case schema.Double:
		stmt = fmt.Sprintf("$table->double(%s)", q(f.Name))
	case schema.Decimal:
		stmt = fmt.Sprintf("$table->decimal(%s, 10, 2)", q(f.Name))
	case schema.Date:
		stmt = fmt.Sprintf("$table->date(%s)", q(f.Name))
	case schema.DateTime:
		stmt = fmt.Sprintf("$table->dateTime(%s)", q(f.Name))
	case schema.JSON:
		stmt = fmt.Sprintf("$table->json(%s)", q(f.Name))
	case schema.UUID:
		stmt = fmt.Sprintf("$table->uuid(%s)", q(f.Name))
	case schema.Enum:
		if len(f.EnumValues) == 0 {
			return "", fmt.Errorf("enum field %s has no values", f.Name)
		}
		stmt = fmt.Sprintf("$table->enum(%s, %s)", q(f.Name), quoteList(f.EnumValues))
	default:
		return "", fmt.Errorf("unsupported field kind %q for %s", f.Kind, f.Name)
	}

	if f.Nullable {
		stmt += "->nullable()"
	}
	if f.Unique {
		stmt += "->unique()"
	}
	return stmt + ";", nil
}

func foreignLine(fk diff.ForeignKey) string {
	return fmt.Sprintf("$table->foreignId(%s)->constrained(%s)->cascadeOnDelete();", q(fk.Column), q(fk.ReferencesTable))
}

func hasColumn(table, column string) string {
	return fmt.Sprintf("Schema::hasColumn(%s, %s)", q(table), q(column))
}

// GenerateStatements converts column-level operations into guarded
// statements. CREATE_TABLE markers are skipped; junction tables are rendered
// separately by RenderJunction.
func GenerateStatements(ops []diff.Operation) ([]Statement, error) {
	var statements []Statement

	for _, op := range ops {
		switch op.Type {
		case diff.CreateTable:
			continue

		case diff.AddColumn:
			line, err := ColumnLine(*op.Column)
			if err != nil {
				return nil, fmt.Errorf("generate ADD COLUMN: %w", err)
			}
			statements = append(statements, Statement{
				Guard: hasColumn(op.TableName, op.Column.Name),
				Up:    []string{line},
				Down:  []string{fmt.Sprintf("$table->dropColumn(%s);", q(op.Column.Name))},
			})

		case diff.AddForeignKey:
			col := op.ForeignKey.Column
			statements = append(statements, Statement{
				Guard: hasColumn(op.TableName, col),
				Up:    []string{foreignLine(*op.ForeignKey)},
				// the constraint has to go before its column
				Down: []string{
					fmt.Sprintf("$table->dropForeign(%s);", quoteList([]string{col})),
					fmt.Sprintf("$table->dropColumn(%s);", q(col)),
				},
			})

		case diff.AddMorphs:
			id, _ := naming.MorphColumns(op.Morph)
			statements = append(statements, Statement{
				Guard: hasColumn(op.TableName, id),
				Up:    []string{fmt.Sprintf("$table->morphs(%s);", q(op.Morph))},
				Down:  []string{fmt.Sprintf("$table->dropMorphs(%s);", q(op.Morph))},
			})

		case diff.CreateIndex:
			if op.Index == nil {
				return nil, fmt.Errorf("generate CREATE INDEX: index is nil")
			}
			statements = append(statements, Statement{
				Guard: fmt.Sprintf("Schema::hasIndex(%s, %s)", q(op.TableName), q(op.Index.Name)),
				Up:    []string{fmt.Sprintf("$table->index(%s, %s);", quoteList(op.Index.Columns), q(op.Index.Name))},
				Down:  []string{fmt.Sprintf("$table->dropIndex(%s);", q(op.Index.Name))},
			})

		default:
			return nil, fmt.Errorf("unsupported operation: %s", op.Type)
		}
	}

	return statements, nil
}

// Reverse returns statements in rollback order.
func Reverse(statements []Statement) []Statement {
	out := make([]Statement, len(statements))
	for i, s := range statements {
		out[len(statements)-1-i] = s
	}
	return out
}

const migrationHeader = `<?php

use Illuminate\Database\Migrations\Migration;
use Illuminate\Database\Schema\Blueprint;
use Illuminate\Support\Facades\Schema;

return new class extends Migration
{
    /**
     * Run the migrations.
     */
    public function up(): void
    {`

const migrationMiddle = `
    }

    /**
     * Reverse the migrations.
     */
    public function down(): void
    {`

const migrationFooter = `
    }
};
`

var createTemplate = template.Must(template.New("create").Parse(migrationHeader + `
        if (! Schema::hasTable('{{.Table}}')) {
            Schema::create('{{.Table}}', function (Blueprint $table) {
                $table->id();
{{- range .Lines}}
                {{.}}
{{- end}}
                $table->timestamps();
            });
        }` + migrationMiddle + `
        Schema::dropIfExists('{{.Table}}');` + migrationFooter))

var alterTemplate = template.Must(template.New("alter").Parse(migrationHeader + `
        Schema::table('{{.Table}}', function (Blueprint $table) {
{{- range .Statements}}
            if (! {{.Guard}}) {
{{- range .Up}}
                {{.}}
{{- end}}
            }
{{- end}}
        });` + migrationMiddle + `
        Schema::table('{{.Table}}', function (Blueprint $table) {
{{- range .Reversed}}
            if ({{.Guard}}) {
{{- range .Down}}
                {{.}}
{{- end}}
            }
{{- end}}
        });` + migrationFooter))

var junctionTemplate = template.Must(template.New("junction").Parse(migrationHeader + `
        if (! Schema::hasTable('{{.Table}}')) {
            Schema::create('{{.Table}}', function (Blueprint $table) {
{{- range .Lines}}
                {{.}}
{{- end}}
            });
        }` + migrationMiddle + `
        Schema::dropIfExists('{{.Table}}');` + migrationFooter))

type migrationData struct {
	Table      string
	Lines      []string
	Statements []Statement
	Reversed   []Statement
}

func execute(t *template.Template, data migrationData) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering %s migration: %w", t.Name(), err)
	}
	return b.String(), nil
}

// RenderCreate renders a create migration. ops must start with CREATE_TABLE.
func RenderCreate(ops []diff.Operation) (string, error) {
	if !diff.Creates(ops) {
		return "", fmt.Errorf("create migration needs a %s operation first", diff.CreateTable)
	}
	statements, err := GenerateStatements(ops)
	if err != nil {
		return "", err
	}
	var lines []string
	for _, s := range statements {
		lines = append(lines, s.Up...)
	}
	return execute(createTemplate, migrationData{Table: ops[0].TableName, Lines: lines})
}

// RenderAlter renders a guarded alter migration whose down block undoes the
// up block in reverse order.
func RenderAlter(ops []diff.Operation) (string, error) {
	if len(ops) == 0 {
		return "", fmt.Errorf("alter migration needs at least one operation")
	}
	statements, err := GenerateStatements(ops)
	if err != nil {
		return "", err
	}
	return execute(alterTemplate, migrationData{
		Table:      ops[0].TableName,
		Statements: statements,
		Reversed:   Reverse(statements),
	})
}

// RenderJunction renders the create migration of a junction table.
func RenderJunction(op diff.Operation) (string, error) {
	if op.Type != diff.CreateJunctionTable || op.Junction == nil {
		return "", fmt.Errorf("unsupported operation: %s", op.Type)
	}
	j := op.Junction

	var lines, primary []string
	for _, fk := range j.Keys {
		lines = append(lines, foreignLine(fk))
		primary = append(primary, fk.Column)
	}
	if j.Morph != "" {
		lines = append(lines, fmt.Sprintf("$table->morphs(%s);", q(j.Morph)))
		id, typ := naming.MorphColumns(j.Morph)
		primary = append(primary, id, typ)
	}
	lines = append(lines, fmt.Sprintf("$table->primary(%s);", quoteList(primary)))

	return execute(junctionTemplate, migrationData{Table: j.Table, Lines: lines})
}

// RenderMigration renders the table operations as a create migration when
// they start a new table and as an alter migration otherwise.
func RenderMigration(ops []diff.Operation) (string, naming.Action, error) {
	if diff.Creates(ops) {
		src, err := RenderCreate(ops)
		return src, naming.Create, err
	}
	src, err := RenderAlter(ops)
	return src, naming.Update, err
}

// WriteMigrationFile saves a rendered migration under dir with a timestamped name.
func WriteMigrationFile(st *store.Store, dir string, at time.Time, action naming.Action, table, content string) (string, error) {
	filename := strings.TrimRight(dir, "/") + "/" + naming.MigrationFile(at, action, table)
	if err := st.Write(filename, content); err != nil {
		return "", fmt.Errorf("writing migration file: %w", err)
	}
	return filename, nil
}
