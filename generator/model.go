package generator

import (
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/ridoystarlord/modelforge/extractor"
	"github.com/ridoystarlord/modelforge/merger"
	"github.com/ridoystarlord/modelforge/naming"
	"github.com/ridoystarlord/modelforge/schema"
)

// ModelOptions carries the host facts a new model depends on.
type ModelOptions struct {
	RootNamespace string
	ModernCasts   bool
}

const (
	modelBase  = `Illuminate\Database\Eloquent\Model`
	factoryUse = `Illuminate\Database\Eloquent\Factories\HasFactory`
)

var modelTemplate = template.Must(template.New("model").Parse(`<?php

namespace {{.Namespace}};
{{if .Imports}}
{{range .Imports}}use {{.}};
{{end}}{{end}}
class {{.Class}} extends Model
{
    use HasFactory;
{{range .Members}}
    {{.}}
{{end}}}
`))

type modelData struct {
	Namespace string
	Imports   []string
	Class     string
	Members   []string
}

// BuildModel renders a complete model source for a record type that has no
// file yet. Existing files are updated through merger.MergeAndRender.
func BuildModel(opts ModelOptions, batch schema.Batch) (string, error) {
	ns := naming.ModelNamespace(opts.RootNamespace, batch.Record)
	class := naming.Base(batch.Record)
	imports := importsFor(ns, class, opts.RootNamespace, batch.Relations)

	var members []string
	fillable := contributions(batch.Fields, func(f schema.FieldDefinition) bool { return f.Fillable })
	if len(fillable) == 0 {
		members = append(members, "protected $guarded = ['*'];")
	} else {
		members = append(members, merger.RenderList(extractor.Fillable, fillable, merger.MemberLayout()))
	}
	if hidden := contributions(batch.Fields, func(f schema.FieldDefinition) bool { return f.Hidden }); len(hidden) > 0 {
		members = append(members, merger.RenderList(extractor.Hidden, hidden, merger.MemberLayout()))
	}
	if appends := contributions(batch.Fields, func(f schema.FieldDefinition) bool { return f.Appended }); len(appends) > 0 {
		members = append(members, merger.RenderList(extractor.Appends, appends, merger.MemberLayout()))
	}

	casts := schema.NewOrderedMap()
	for _, f := range batch.Fields {
		if f.Cast != nil {
			casts.SetIfAbsent(f.Name, string(*f.Cast))
		}
	}
	if casts.Len() > 0 {
		members = append(members, merger.CastsBlock(casts, merger.ChooseDialect(opts.ModernCasts, ""), merger.MemberLayout()))
	}

	aliases := map[string]string{}
	for _, imp := range imports {
		aliases[naming.Base(imp)] = imp
	}
	seen := map[string]bool{}
	for _, rel := range batch.Relations {
		key := strings.ToLower(rel.Method)
		if seen[key] {
			continue
		}
		seen[key] = true
		target := merger.ClassRef(naming.QualifiedClass(opts.RootNamespace, rel.Target), ns, aliases)
		method := merger.RenderRelation(rel, batch.Record, target, merger.DefaultIndent)
		members = append(members, strings.TrimPrefix(strings.TrimSuffix(method, "\n"), merger.DefaultIndent))
	}

	var b strings.Builder
	err := modelTemplate.Execute(&b, modelData{
		Namespace: ns,
		Imports:   imports,
		Class:     class,
		Members:   members,
	})
	if err != nil {
		return "", fmt.Errorf("rendering model %s: %w", batch.Record, err)
	}
	return b.String(), nil
}

func contributions(fields []schema.FieldDefinition, pick func(schema.FieldDefinition) bool) []string {
	var out []string
	seen := map[string]bool{}
	for _, f := range fields {
		if pick(f) && !seen[f.Name] {
			seen[f.Name] = true
			out = append(out, f.Name)
		}
	}
	return out
}

// importsFor lists the use statements of a new model: the framework classes
// plus every relation target living outside the model's namespace, unless
// its short name would clash with another class in scope.
func importsFor(ns, class, root string, relations []schema.RelationDefinition) []string {
	byShort := map[string]string{
		"Model":      modelBase,
		"HasFactory": factoryUse,
		class:        ns + `\` + class,
	}
	clash := map[string]bool{}
	for _, rel := range relations {
		if rel.Kind == schema.MorphTo {
			continue
		}
		full := naming.QualifiedClass(root, rel.Target)
		if strings.EqualFold(naming.ClassNamespace(full), ns) {
			continue
		}
		short := naming.Base(full)
		if existing, ok := byShort[short]; ok && !strings.EqualFold(existing, full) {
			// framework imports and the model itself keep their short name
			if existing != modelBase && existing != factoryUse && short != class {
				clash[short] = true
			}
			continue
		}
		byShort[short] = full
	}

	var out []string
	for short, full := range byShort {
		if short == class || clash[short] {
			continue
		}
		out = append(out, full)
	}
	sort.Strings(out)
	return out
}
