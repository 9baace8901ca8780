package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ridoystarlord/modelforge/extractor"
	"github.com/ridoystarlord/modelforge/naming"
	"github.com/ridoystarlord/modelforge/schema"
)

// ErrInvalidBatch is wrapped by ValidationResult.Err when errors were found.
var ErrInvalidBatch = errors.New("invalid batch")

// ValidationError represents a validation error with details
type ValidationError struct {
	Type     string `json:"type"`
	Record   string `json:"record,omitempty"`
	Field    string `json:"field,omitempty"`
	Relation string `json:"relation,omitempty"`
	Index    string `json:"index,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // "error", "warning", "info"
}

// ValidationResult contains all validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings"`
	Info     []ValidationError `json:"info"`
}

// Err summarises the errors, or returns nil when the batch is valid.
func (r *ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	if len(r.Errors) == 1 {
		return fmt.Errorf("%w: %s", ErrInvalidBatch, r.Errors[0].Message)
	}
	return fmt.Errorf("%w: %s (and %d more)", ErrInvalidBatch, r.Errors[0].Message, len(r.Errors)-1)
}

// UnknownIndexColumns returns the unknown-column warnings, which need a
// per-index confirmation before the index is kept.
func (r *ValidationResult) UnknownIndexColumns() []ValidationError {
	var out []ValidationError
	for _, w := range r.Warnings {
		if w.Type == "unknown_column" {
			out = append(out, w)
		}
	}
	return out
}

// BatchValidator checks a batch against naming rules and what is already
// known about the record type.
type BatchValidator struct {
	known    schema.KnownColumnSet
	modelSrc string
	hasKnown bool
}

// NewBatchValidator creates a validator. known may be nil, in which case
// index columns are not checked; modelSrc is the current model file, if any.
func NewBatchValidator(known schema.KnownColumnSet, modelSrc string) *BatchValidator {
	return &BatchValidator{known: known, modelSrc: modelSrc, hasKnown: known != nil}
}

var (
	identPattern  = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	methodPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	classPattern  = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)
)

// implicit columns every create migration adds on its own
var implicitColumns = map[string]bool{"id": true, "created_at": true, "updated_at": true}

// ValidateBatch validates a complete batch.
func (v *BatchValidator) ValidateBatch(batch schema.Batch) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
		Info:     []ValidationError{},
	}

	if err := validateTypeRef(batch.Record); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Type:     "record_name",
			Record:   batch.Record,
			Message:  err.Error(),
			Severity: "error",
		})
	}

	v.validateFields(batch, result)
	v.validateRelations(batch, result)
	v.validateIndexes(batch, result)

	if batch.Empty() {
		result.Info = append(result.Info, ValidationError{
			Type:     "empty_batch",
			Record:   batch.Record,
			Message:  fmt.Sprintf("Batch for '%s' requests no fields, relations or indexes", batch.Record),
			Severity: "info",
		})
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// validateTypeRef checks a record or target ref such as Blog/Post or App\Models\User.
func validateTypeRef(ref string) error {
	if strings.TrimSpace(ref) == "" {
		return fmt.Errorf("type name cannot be empty")
	}
	parts := strings.FieldsFunc(ref, func(r rune) bool { return r == '/' || r == '\\' })
	if len(parts) == 0 {
		return fmt.Errorf("type name '%s' has no class segment", ref)
	}
	for _, p := range parts {
		if !classPattern.MatchString(p) {
			return fmt.Errorf("type name '%s' has invalid segment '%s' (expected StudlyCase)", ref, p)
		}
	}
	return nil
}

// validateColumnName validates column name format
func validateColumnName(name string) error {
	if name == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if len(name) > 63 {
		return fmt.Errorf("column name '%s' is too long (max 63 characters)", name)
	}
	if !identPattern.MatchString(name) {
		return fmt.Errorf("column name '%s' must be snake_case", name)
	}
	return nil
}

func (v *BatchValidator) validateFields(batch schema.Batch, result *ValidationResult) {
	seen := map[string]bool{}
	for _, f := range batch.Fields {
		fail := func(typ, format string, args ...any) {
			result.Errors = append(result.Errors, ValidationError{
				Type: typ, Record: batch.Record, Field: f.Name,
				Message: fmt.Sprintf(format, args...), Severity: "error",
			})
		}

		if seen[f.Name] {
			fail("duplicate_field", "Duplicate field name '%s'", f.Name)
			continue
		}
		seen[f.Name] = true

		if err := validateColumnName(f.Name); err != nil {
			fail("field_name", "%s", err.Error())
		}
		if implicitColumns[f.Name] {
			result.Warnings = append(result.Warnings, ValidationError{
				Type: "implicit_column", Record: batch.Record, Field: f.Name,
				Message:  fmt.Sprintf("Field '%s' is added automatically to new tables", f.Name),
				Severity: "warning",
			})
		}
		if _, err := schema.ParseFieldKind(string(f.Kind)); err != nil {
			fail("field_kind", "Field '%s': %s", f.Name, err.Error())
		}

		switch {
		case f.Kind == schema.Enum && len(f.EnumValues) == 0:
			fail("enum_values", "Enum field '%s' needs at least one value", f.Name)
		case f.Kind != schema.Enum && len(f.EnumValues) > 0:
			fail("enum_values", "Field '%s' is not an enum but lists values", f.Name)
		}
		values := map[string]bool{}
		for _, val := range f.EnumValues {
			if values[val] {
				result.Warnings = append(result.Warnings, ValidationError{
					Type: "duplicate_enum_value", Record: batch.Record, Field: f.Name,
					Message:  fmt.Sprintf("Enum field '%s' lists '%s' twice", f.Name, val),
					Severity: "warning",
				})
			}
			values[val] = true
		}

		if f.Cast != nil {
			if _, err := schema.ParseCoercion(string(*f.Cast)); err != nil {
				fail("cast", "Field '%s': %s", f.Name, err.Error())
			}
		}
	}
}

func (v *BatchValidator) validateRelations(batch schema.Batch, result *ValidationResult) {
	fields := map[string]bool{}
	for _, f := range batch.Fields {
		fields[f.Name] = true
	}

	seen := map[string]bool{}
	for _, rel := range batch.Relations {
		fail := func(typ, format string, args ...any) {
			result.Errors = append(result.Errors, ValidationError{
				Type: typ, Record: batch.Record, Relation: rel.Method,
				Message: fmt.Sprintf(format, args...), Severity: "error",
			})
		}
		warn := func(typ, format string, args ...any) {
			result.Warnings = append(result.Warnings, ValidationError{
				Type: typ, Record: batch.Record, Relation: rel.Method,
				Message: fmt.Sprintf(format, args...), Severity: "warning",
			})
		}

		key := strings.ToLower(rel.Method)
		if seen[key] {
			fail("duplicate_relation", "Duplicate relation method '%s'", rel.Method)
			continue
		}
		seen[key] = true

		if !methodPattern.MatchString(rel.Method) {
			fail("relation_name", "Relation method '%s' is not a valid identifier", rel.Method)
		}
		if _, err := schema.ParseRelationKind(string(rel.Kind)); err != nil {
			fail("relation_kind", "Relation '%s': %s", rel.Method, err.Error())
		}
		if rel.Kind != schema.MorphTo {
			if err := validateTypeRef(rel.Target); err != nil {
				fail("relation_target", "Relation '%s': %s", rel.Method, err.Error())
			}
		}
		if rel.Junction && !rel.Kind.ManyToMany() {
			fail("junction", "Relation '%s' is %s; junction tables only apply to %s and %s",
				rel.Method, rel.Kind, schema.BelongsToMany, schema.MorphToMany)
		}

		if v.modelSrc != "" && extractor.HasFunction(v.modelSrc, rel.Method) {
			warn("name_collision", "Model already declares %s(); the relation will be skipped", rel.Method)
		}
		if fields[rel.Method] {
			warn("name_collision", "Relation '%s' shares its name with a field", rel.Method)
		}
		if rel.Kind == schema.BelongsTo && fields[naming.ForeignKey(rel.Method)] {
			warn("name_collision", "Field '%s' is also the foreign key of relation '%s'", naming.ForeignKey(rel.Method), rel.Method)
		}
	}
}

// indexColumns are the columns the batch itself adds: its fields, the
// implicit columns and the columns its relations own.
func indexColumns(batch schema.Batch) schema.KnownColumnSet {
	cols := schema.NewKnownColumnSet()
	for _, f := range batch.Fields {
		cols.Add(f.Name)
	}
	for c := range implicitColumns {
		cols.Add(c)
	}
	for _, rel := range batch.Relations {
		switch rel.Kind {
		case schema.BelongsTo:
			cols.Add(naming.ForeignKey(rel.Method))
		case schema.MorphOne, schema.MorphMany:
			id, typ := naming.MorphColumns(naming.MorphName(rel.Method))
			cols.Add(id)
			cols.Add(typ)
		case schema.MorphTo:
			id, typ := naming.MorphColumns(naming.Snake(rel.Method))
			cols.Add(id)
			cols.Add(typ)
		}
	}
	return cols
}

func (v *BatchValidator) validateIndexes(batch schema.Batch, result *ValidationResult) {
	table := naming.TableName(batch.Record)
	derived := indexColumns(batch)
	seen := map[string]bool{}

	for _, idx := range batch.Indexes {
		name := naming.IndexName(table, idx.Columns...)
		if len(idx.Columns) == 0 {
			result.Errors = append(result.Errors, ValidationError{
				Type: "index_columns", Record: batch.Record,
				Message: "Index must list at least one column", Severity: "error",
			})
			continue
		}
		if seen[name] {
			result.Warnings = append(result.Warnings, ValidationError{
				Type: "duplicate_index", Record: batch.Record, Index: name,
				Message:  fmt.Sprintf("Index '%s' is listed twice", name),
				Severity: "warning",
			})
			continue
		}
		seen[name] = true

		for _, col := range idx.Columns {
			if err := validateColumnName(col); err != nil {
				result.Errors = append(result.Errors, ValidationError{
					Type: "index_column", Record: batch.Record, Index: name,
					Message: err.Error(), Severity: "error",
				})
				continue
			}
			if v.hasKnown && !v.known.Has(col) && !derived.Has(col) {
				result.Warnings = append(result.Warnings, ValidationError{
					Type: "unknown_column", Record: batch.Record, Field: col, Index: name,
					Message:  fmt.Sprintf("Index '%s' references unknown column '%s'", name, col),
					Severity: "warning",
				})
			}
		}
	}
}
