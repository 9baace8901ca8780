package schema

import (
	"fmt"
	"strings"
)

// FieldKind is the storage type requested for a field.
type FieldKind string

const (
	Text       FieldKind = "text"
	LongText   FieldKind = "long_text"
	Integer    FieldKind = "integer"
	BigInteger FieldKind = "big_integer"
	Boolean    FieldKind = "boolean"
	Float      FieldKind = "float"
	Double     FieldKind = "double"
	Decimal    FieldKind = "decimal"
	Date       FieldKind = "date"
	DateTime   FieldKind = "datetime"
	JSON       FieldKind = "json"
	UUID       FieldKind = "uuid"
	Enum       FieldKind = "enum"
)

// FieldKinds lists every kind in the order they are offered to the user.
var FieldKinds = []FieldKind{
	Text, LongText, Integer, BigInteger, Boolean, Float, Double,
	Decimal, Date, DateTime, JSON, UUID, Enum,
}

// ParseFieldKind accepts the canonical kind names plus a few common aliases.
func ParseFieldKind(s string) (FieldKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "string":
		return Text, nil
	case "long_text", "longtext":
		return LongText, nil
	case "integer", "int":
		return Integer, nil
	case "big_integer", "biginteger", "bigint":
		return BigInteger, nil
	case "boolean", "bool":
		return Boolean, nil
	case "float":
		return Float, nil
	case "double":
		return Double, nil
	case "decimal":
		return Decimal, nil
	case "date":
		return Date, nil
	case "datetime", "date_time", "timestamp":
		return DateTime, nil
	case "json":
		return JSON, nil
	case "uuid":
		return UUID, nil
	case "enum", "enumerated":
		return Enum, nil
	}
	return "", fmt.Errorf("unknown field kind %q", s)
}

// Coercion is a cast rule declared on the model for a field.
type Coercion string

const (
	CastInt        Coercion = "int"
	CastFloat      Coercion = "float"
	CastDouble     Coercion = "double"
	CastString     Coercion = "string"
	CastBool       Coercion = "bool"
	CastArray      Coercion = "array"
	CastJSON       Coercion = "json"
	CastDate       Coercion = "date"
	CastDateTime   Coercion = "datetime"
	CastCollection Coercion = "collection"
)

// Coercions lists every cast in the order they are offered to the user.
var Coercions = []Coercion{
	CastInt, CastFloat, CastDouble, CastString, CastBool,
	CastArray, CastJSON, CastDate, CastDateTime, CastCollection,
}

// ParseCoercion validates a cast name.
func ParseCoercion(s string) (Coercion, error) {
	c := Coercion(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Coercions {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown cast %q", s)
}

// FieldDefinition is one column requested in a batch.
type FieldDefinition struct {
	Name       string
	Kind       FieldKind
	EnumValues []string
	Nullable   bool
	Unique     bool
	Fillable   bool
	Hidden     bool
	Appended   bool
	Cast       *Coercion
}

// RelationKind names an Eloquent relation method.
type RelationKind string

const (
	HasOne        RelationKind = "hasOne"
	HasMany       RelationKind = "hasMany"
	BelongsTo     RelationKind = "belongsTo"
	BelongsToMany RelationKind = "belongsToMany"
	MorphOne      RelationKind = "morphOne"
	MorphMany     RelationKind = "morphMany"
	MorphTo       RelationKind = "morphTo"
	MorphToMany   RelationKind = "morphToMany"
)

// RelationKinds lists every relation kind in the order they are offered.
var RelationKinds = []RelationKind{
	HasOne, HasMany, BelongsTo, BelongsToMany,
	MorphOne, MorphMany, MorphTo, MorphToMany,
}

// ParseRelationKind is case-insensitive and accepts snake_case spellings.
func ParseRelationKind(s string) (RelationKind, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	for _, k := range RelationKinds {
		if strings.ToLower(string(k)) == norm {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown relation kind %q", s)
}

// ManyToMany reports whether the relation is backed by a junction table.
func (k RelationKind) ManyToMany() bool {
	return k == BelongsToMany || k == MorphToMany
}

// RelationDefinition is one accessor method requested in a batch.
type RelationDefinition struct {
	Method   string
	Target   string // User, Blog/Author or App\Models\User
	Kind     RelationKind
	Junction bool // only honoured for many-to-many kinds
}

// NeedsJunction reports whether a junction table migration should be created.
func (r RelationDefinition) NeedsJunction() bool {
	return r.Junction && r.Kind.ManyToMany()
}

// IndexDefinition is a plain (non-unique) index over one or more columns.
type IndexDefinition struct {
	Columns []string
}

// Batch is everything collected for one record type in a single run.
type Batch struct {
	Record    string // Post or Blog/Post
	Fields    []FieldDefinition
	Relations []RelationDefinition
	Indexes   []IndexDefinition
}

// Empty reports whether the batch requests nothing at all.
func (b Batch) Empty() bool {
	return len(b.Fields) == 0 && len(b.Relations) == 0 && len(b.Indexes) == 0
}

// FieldNames returns the batch's field names in declaration order.
func (b Batch) FieldNames() []string {
	names := make([]string, 0, len(b.Fields))
	for _, f := range b.Fields {
		names = append(names, f.Name)
	}
	return names
}
