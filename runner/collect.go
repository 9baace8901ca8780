package runner

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/modelforge/prompt"
	"github.com/ridoystarlord/modelforge/schema"
)

const noCast = "none"

// Collect asks for a batch interactively: fields, then relations, then
// indexes. A blank name ends each section.
func Collect(p prompt.Prompter, record string) (schema.Batch, error) {
	batch := schema.Batch{Record: record}

	for {
		f, ok, err := collectField(p)
		if err != nil {
			return batch, err
		}
		if !ok {
			break
		}
		batch.Fields = append(batch.Fields, f)
	}

	for {
		rel, ok, err := collectRelation(p)
		if err != nil {
			return batch, err
		}
		if !ok {
			break
		}
		batch.Relations = append(batch.Relations, rel)
	}

	for {
		cols, err := p.Ask("Index columns, comma separated (blank to finish)", "")
		if err != nil {
			return batch, err
		}
		list := splitList(cols)
		if len(list) == 0 {
			break
		}
		batch.Indexes = append(batch.Indexes, schema.IndexDefinition{Columns: list})
	}

	return batch, nil
}

func collectField(p prompt.Prompter) (schema.FieldDefinition, bool, error) {
	var f schema.FieldDefinition

	name, err := p.Ask("Field name (blank to finish)", "")
	if err != nil || name == "" {
		return f, false, err
	}
	f.Name = name

	kinds := make([]string, len(schema.FieldKinds))
	for i, k := range schema.FieldKinds {
		kinds[i] = string(k)
	}
	kind, err := p.Select(fmt.Sprintf("Type of %s", name), kinds)
	if err != nil {
		return f, false, err
	}
	if f.Kind, err = schema.ParseFieldKind(kind); err != nil {
		return f, false, err
	}

	if f.Kind == schema.Enum {
		values, err := p.Ask(fmt.Sprintf("Values of %s, comma separated", name), "")
		if err != nil {
			return f, false, err
		}
		f.EnumValues = splitList(values)
	}

	flags := []struct {
		label string
		def   bool
		dst   *bool
	}{
		{"Nullable?", false, &f.Nullable},
		{"Unique?", false, &f.Unique},
		{"Fillable?", true, &f.Fillable},
		{"Hidden from output?", false, &f.Hidden},
		{"Appended to output?", false, &f.Appended},
	}
	for _, fl := range flags {
		v, err := p.Confirm(fl.label, fl.def)
		if err != nil {
			return f, false, err
		}
		*fl.dst = v
	}

	casts := []string{noCast}
	for _, c := range schema.Coercions {
		casts = append(casts, string(c))
	}
	cast, err := p.Select(fmt.Sprintf("Cast for %s", name), casts)
	if err != nil {
		return f, false, err
	}
	if cast != noCast {
		c, err := schema.ParseCoercion(cast)
		if err != nil {
			return f, false, err
		}
		f.Cast = &c
	}

	return f, true, nil
}

func collectRelation(p prompt.Prompter) (schema.RelationDefinition, bool, error) {
	var rel schema.RelationDefinition

	method, err := p.Ask("Relation method (blank to finish)", "")
	if err != nil || method == "" {
		return rel, false, err
	}
	rel.Method = method

	kinds := make([]string, len(schema.RelationKinds))
	for i, k := range schema.RelationKinds {
		kinds[i] = string(k)
	}
	kind, err := p.Select(fmt.Sprintf("Kind of %s", method), kinds)
	if err != nil {
		return rel, false, err
	}
	if rel.Kind, err = schema.ParseRelationKind(kind); err != nil {
		return rel, false, err
	}

	if rel.Kind != schema.MorphTo {
		if rel.Target, err = p.Ask(fmt.Sprintf("Target of %s (e.g. User or Blog/Tag)", method), ""); err != nil {
			return rel, false, err
		}
	}
	if rel.Kind.ManyToMany() {
		if rel.Junction, err = p.Confirm("Create the junction table migration?", true); err != nil {
			return rel, false, err
		}
	}

	return rel, true, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
