package diff

import (
	"log/slog"

	"github.com/ridoystarlord/modelforge/introspect"
	"github.com/ridoystarlord/modelforge/naming"
	"github.com/ridoystarlord/modelforge/schema"
)

type OperationType string

const (
	CreateTable         OperationType = "CREATE_TABLE"
	AddColumn           OperationType = "ADD_COLUMN"
	AddForeignKey       OperationType = "ADD_FOREIGN_KEY"
	AddMorphs           OperationType = "ADD_MORPHS"
	CreateIndex         OperationType = "CREATE_INDEX"
	CreateJunctionTable OperationType = "CREATE_JUNCTION_TABLE"
)

type ForeignKey struct {
	Column          string
	ReferencesTable string
}

type Index struct {
	Name    string
	Columns []string
}

// Junction describes the pivot table backing a many-to-many relation.
type Junction struct {
	Table string
	Kind  schema.RelationKind
	Keys  []ForeignKey // one per side for belongsToMany, the target side for morphToMany
	Morph string       // polymorphic base for morphToMany
}

type Operation struct {
	Type       OperationType
	TableName  string
	Column     *schema.FieldDefinition // for ADD_COLUMN
	ForeignKey *ForeignKey             // for ADD_FOREIGN_KEY
	Morph      string                  // for ADD_MORPHS
	Index      *Index                  // for CREATE_INDEX
	Junction   *Junction               // for CREATE_JUNCTION_TABLE
}

// Columns returns the columns an operation adds to its table.
func (op Operation) Columns() []string {
	switch op.Type {
	case AddColumn:
		return []string{op.Column.Name}
	case AddForeignKey:
		return []string{op.ForeignKey.Column}
	case AddMorphs:
		id, typ := naming.MorphColumns(op.Morph)
		return []string{id, typ}
	}
	return nil
}

// Plan lists the operations needed to bring the record's table in line with
// the batch. When history shows the table exists, anything history already
// declares is left out so an alter migration only touches what is new.
// junctionExists reports whether a junction table already has a create
// migration; nil means none do.
func Plan(batch schema.Batch, history introspect.History, junctionExists func(table string) bool) []Operation {
	table := naming.TableName(batch.Record)
	var ops []Operation

	if !history.Created {
		ops = append(ops, Operation{Type: CreateTable, TableName: table})
	}

	planned := schema.NewKnownColumnSet()
	present := func(cols ...string) bool {
		for _, c := range cols {
			if history.Columns.Has(c) || planned.Has(c) {
				return true
			}
		}
		return false
	}

	for i := range batch.Fields {
		f := batch.Fields[i]
		if present(f.Name) {
			slog.Debug("column already declared", "table", table, "column", f.Name)
			continue
		}
		planned.Add(f.Name)
		ops = append(ops, Operation{Type: AddColumn, TableName: table, Column: &f})
	}

	for _, rel := range batch.Relations {
		switch rel.Kind {
		case schema.BelongsTo:
			col := naming.ForeignKey(rel.Method)
			if present(col) {
				continue
			}
			planned.Add(col)
			ops = append(ops, Operation{
				Type:      AddForeignKey,
				TableName: table,
				ForeignKey: &ForeignKey{
					Column:          col,
					ReferencesTable: naming.TableName(rel.Target),
				},
			})
		case schema.MorphOne, schema.MorphMany, schema.MorphTo:
			base := morphBase(rel)
			id, typ := naming.MorphColumns(base)
			if present(id, typ) {
				continue
			}
			planned.Add(id)
			planned.Add(typ)
			ops = append(ops, Operation{Type: AddMorphs, TableName: table, Morph: base})
		}
	}

	seen := map[string]bool{}
	for _, idx := range batch.Indexes {
		name := naming.IndexName(table, idx.Columns...)
		if seen[name] || history.HasIndex(name) {
			continue
		}
		seen[name] = true
		ops = append(ops, Operation{
			Type:      CreateIndex,
			TableName: table,
			Index:     &Index{Name: name, Columns: idx.Columns},
		})
	}

	for _, rel := range batch.Relations {
		if !rel.NeedsJunction() {
			continue
		}
		j := junction(batch.Record, rel)
		if seen[j.Table] || (junctionExists != nil && junctionExists(j.Table)) {
			slog.Debug("junction table already planned or migrated", "table", j.Table)
			continue
		}
		seen[j.Table] = true
		ops = append(ops, Operation{Type: CreateJunctionTable, TableName: j.Table, Junction: j})
	}

	return ops
}

// morphBase is the polymorphic column base a relation owns on its table.
func morphBase(rel schema.RelationDefinition) string {
	if rel.Kind == schema.MorphTo {
		return naming.Snake(rel.Method)
	}
	return naming.MorphName(rel.Method)
}

func junction(record string, rel schema.RelationDefinition) *Junction {
	target := ForeignKey{
		Column:          naming.Singular(naming.Snake(naming.Base(rel.Target))) + "_id",
		ReferencesTable: naming.TableName(rel.Target),
	}
	j := &Junction{Table: naming.JunctionTable(record, rel.Target), Kind: rel.Kind}
	if rel.Kind == schema.MorphToMany {
		j.Keys = []ForeignKey{target}
		j.Morph = naming.Singular(naming.Snake(naming.Base(rel.Target))) + "able"
		return j
	}
	owner := ForeignKey{
		Column:          naming.Singular(naming.Snake(naming.Base(record))) + "_id",
		ReferencesTable: naming.TableName(record),
	}
	j.Keys = []ForeignKey{owner, target}
	return j
}

// Split separates table operations from junction table creations.
func Split(ops []Operation) (table, junctions []Operation) {
	for _, op := range ops {
		if op.Type == CreateJunctionTable {
			junctions = append(junctions, op)
		} else {
			table = append(table, op)
		}
	}
	return table, junctions
}

// Creates reports whether ops start a new table.
func Creates(ops []Operation) bool {
	return len(ops) > 0 && ops[0].Type == CreateTable
}
