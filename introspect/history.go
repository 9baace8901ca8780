// Package introspect recovers what is already known about a record type's
// storage: the columns and indexes its migration history declares, the names
// its model file declares, and optionally the live database columns.
package introspect

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/ridoystarlord/modelforge/extractor"
	"github.com/ridoystarlord/modelforge/naming"
	"github.com/ridoystarlord/modelforge/schema"
	"github.com/ridoystarlord/modelforge/store"
)

// History is the schema knowledge recovered from migration files.
type History struct {
	Files   []string
	Created bool // a create migration exists for the table
	Columns schema.KnownColumnSet
	Indexes map[string]bool
}

// NewHistory returns an empty history.
func NewHistory() History {
	return History{Columns: schema.NewKnownColumnSet(), Indexes: map[string]bool{}}
}

// Merge folds other into h.
func (h *History) Merge(other History) {
	h.Files = append(h.Files, other.Files...)
	h.Created = h.Created || other.Created
	for c := range other.Columns {
		h.Columns.Add(c)
	}
	for i := range other.Indexes {
		h.Indexes[i] = true
	}
}

// HasIndex reports whether an index with the given name is known.
func (h History) HasIndex(name string) bool {
	return h.Indexes[name]
}

var (
	tablePattern  = regexp.MustCompile(`Schema::(?:create|table)\(\s*['"]([^'"]+)['"]`)
	columnPattern = regexp.MustCompile(`\$table->(\w+)\(\s*['"]([^'"]+)['"]`)
	indexPattern  = regexp.MustCompile(`\$table->index\(\s*(\[[^\]]*\]|'[^']*'|"[^"]*")\s*(?:,\s*['"]([^'"]+)['"])?`)
	barePattern   = regexp.MustCompile(`\$table->(id|timestamps|timestampsTz|nullableTimestamps|softDeletes|softDeletesTz|rememberToken)\(\s*\)`)
	quotedPattern = regexp.MustCompile(`['"]([^'"]+)['"]`)
)

// notColumns are table methods whose first argument is not a column being declared.
var notColumns = map[string]bool{
	"index": true, "unique": true, "primary": true, "fullText": true, "spatialIndex": true,
	"dropColumn": true, "dropIndex": true, "dropForeign": true, "dropUnique": true,
	"dropPrimary": true, "dropMorphs": true, "dropConstrainedForeignId": true,
	"dropIfExists": true, "renameColumn": true, "renameIndex": true, "comment": true,
	"engine": true, "charset": true, "collation": true,
}

var morphHelpers = map[string]bool{
	"morphs": true, "nullableMorphs": true,
	"uuidMorphs": true, "nullableUuidMorphs": true,
	"ulidMorphs": true, "nullableUlidMorphs": true,
}

var implicitColumns = map[string][]string{
	"id":                 {"id"},
	"timestamps":         {"created_at", "updated_at"},
	"timestampsTz":       {"created_at", "updated_at"},
	"nullableTimestamps": {"created_at", "updated_at"},
	"softDeletes":        {"deleted_at"},
	"softDeletesTz":      {"deleted_at"},
	"rememberToken":      {"remember_token"},
}

// ScanMigration collects the columns and index names a migration declares.
// Column declarations, polymorphic helpers (expanded to their _id/_type
// pair) and foreign key helpers all count as columns.
func ScanMigration(text string) History {
	h := NewHistory()

	table := ""
	if m := tablePattern.FindStringSubmatch(text); m != nil {
		table = m[1]
	}

	for _, m := range barePattern.FindAllStringSubmatch(text, -1) {
		for _, c := range implicitColumns[m[1]] {
			h.Columns.Add(c)
		}
	}

	for _, m := range columnPattern.FindAllStringSubmatch(text, -1) {
		method, arg := m[1], m[2]
		switch {
		case notColumns[method]:
		case morphHelpers[method]:
			id, typ := naming.MorphColumns(arg)
			h.Columns.Add(id)
			h.Columns.Add(typ)
		default:
			h.Columns.Add(arg)
		}
	}

	for _, m := range indexPattern.FindAllStringSubmatch(text, -1) {
		if m[2] != "" {
			h.Indexes[m[2]] = true
			continue
		}
		var cols []string
		for _, q := range quotedPattern.FindAllStringSubmatch(m[1], -1) {
			cols = append(cols, q[1])
		}
		if table != "" && len(cols) > 0 {
			h.Indexes[naming.IndexName(table, cols...)] = true
		}
	}
	return h
}

// KnownColumns unions the batch's field names, every column declared across
// the migration history, and every name declared in the model's slots.
func KnownColumns(fields []schema.FieldDefinition, modelSrc string, migrations []string) schema.KnownColumnSet {
	known := schema.NewKnownColumnSet()
	for _, f := range fields {
		known.Add(f.Name)
	}
	for _, text := range migrations {
		for c := range ScanMigration(text).Columns {
			known.Add(c)
		}
	}
	for _, name := range extractor.Extract(modelSrc).Names() {
		known.Add(name)
	}
	return known
}

// LoadHistory reads every create and update migration for table under dir,
// in filename order, and scans them.
func LoadHistory(st *store.Store, dir, table string) (History, []string, error) {
	creates, err := st.ListMatching(naming.MigrationGlob(dir, naming.Create, table))
	if err != nil {
		return History{}, nil, err
	}
	updates, err := st.ListMatching(naming.MigrationGlob(dir, naming.Update, table))
	if err != nil {
		return History{}, nil, err
	}

	files := append(append([]string{}, creates...), updates...)
	sort.Strings(files)

	h := NewHistory()
	h.Created = len(creates) > 0
	texts := make([]string, 0, len(files))
	for _, f := range files {
		text, err := st.Read(f)
		if err != nil {
			return History{}, nil, fmt.Errorf("loading migration history: %w", err)
		}
		scanned := ScanMigration(text)
		scanned.Files = []string{f}
		h.Merge(scanned)
		texts = append(texts, text)
		slog.Debug("scanned migration", "file", f, "columns", len(scanned.Columns), "indexes", len(scanned.Indexes))
	}
	return h, texts, nil
}
