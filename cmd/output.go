package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/ridoystarlord/modelforge/diff"
	"github.com/ridoystarlord/modelforge/runner"
	"github.com/ridoystarlord/modelforge/validator"
)

func successf(format string, args ...any) {
	color.Green("✅ "+format, args...)
}

func warnf(format string, args ...any) {
	color.Yellow("⚠️  "+format, args...)
}

func infof(format string, args ...any) {
	color.Cyan("ℹ️  "+format, args...)
}

func printValidation(result *validator.ValidationResult) {
	if result.Valid {
		color.Green("✅ Batch validation passed!")
	} else {
		color.Red("❌ Batch validation failed!")
	}

	sections := []struct {
		title string
		items []validator.ValidationError
	}{
		{"🔴 Errors", result.Errors},
		{"🟡 Warnings", result.Warnings},
		{"🔵 Info", result.Info},
	}
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		fmt.Printf("\n%s (%d):\n", s.title, len(s.items))
		for i, item := range s.items {
			fmt.Printf("  %d. %s: %s\n", i+1, location(item), item.Message)
		}
	}

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("  • Errors: %d\n", len(result.Errors))
	fmt.Printf("  • Warnings: %d\n", len(result.Warnings))
	fmt.Printf("  • Info: %d\n", len(result.Info))
}

func location(v validator.ValidationError) string {
	loc := "[" + v.Record + "]"
	switch {
	case v.Field != "":
		loc += "." + v.Field
	case v.Relation != "":
		loc += "." + v.Relation + "()"
	}
	if v.Index != "" {
		loc += fmt.Sprintf(" (index: %s)", v.Index)
	}
	return loc
}

func describe(op diff.Operation) string {
	switch op.Type {
	case diff.CreateTable:
		return fmt.Sprintf("CREATE TABLE %s", op.TableName)
	case diff.AddColumn:
		s := fmt.Sprintf("ADD COLUMN %s.%s (%s)", op.TableName, op.Column.Name, op.Column.Kind)
		if op.Column.Nullable {
			s += " NULLABLE"
		}
		if op.Column.Unique {
			s += " UNIQUE"
		}
		return s
	case diff.AddForeignKey:
		return fmt.Sprintf("ADD FOREIGN KEY %s.%s → %s.id", op.TableName, op.ForeignKey.Column, op.ForeignKey.ReferencesTable)
	case diff.AddMorphs:
		return fmt.Sprintf("ADD MORPHS %s.%s", op.TableName, op.Morph)
	case diff.CreateIndex:
		return fmt.Sprintf("CREATE INDEX %s ON %s (%s)", op.Index.Name, op.TableName, strings.Join(op.Index.Columns, ", "))
	case diff.CreateJunctionTable:
		return fmt.Sprintf("CREATE JUNCTION TABLE %s (%s)", op.TableName, strings.Join(op.Columns(), ", "))
	}
	return string(op.Type)
}

func printOperations(ops []diff.Operation) {
	fmt.Println("📋 Planned Changes")
	fmt.Println(strings.Repeat("=", 40))
	for i, op := range ops {
		fmt.Printf("%d. %s\n", i+1, describe(op))
	}
}

// printVisualOperations groups operations per table, colored by kind.
func printVisualOperations(ops []diff.Operation) {
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	blue := color.New(color.FgBlue, color.Bold)

	fmt.Println("🌳 Planned Changes (Visual Diff)")
	fmt.Println(strings.Repeat("=", 50))

	var tables []string
	byTable := map[string][]diff.Operation{}
	for _, op := range ops {
		if _, ok := byTable[op.TableName]; !ok {
			tables = append(tables, op.TableName)
		}
		byTable[op.TableName] = append(byTable[op.TableName], op)
	}

	for _, table := range tables {
		tableOps := byTable[table]
		switch tableOps[0].Type {
		case diff.CreateTable, diff.CreateJunctionTable:
			green.Printf("\n  ➕ CREATE %s\n", table)
		default:
			yellow.Printf("\n  ⚡ MODIFY %s\n", table)
		}
		for _, op := range tableOps {
			switch op.Type {
			case diff.AddColumn:
				green.Printf("    ➕ %s (%s)\n", op.Column.Name, op.Column.Kind)
			case diff.AddForeignKey:
				green.Printf("    🔗 %s → %s\n", op.ForeignKey.Column, op.ForeignKey.ReferencesTable)
			case diff.AddMorphs:
				green.Printf("    🔗 %s_id, %s_type\n", op.Morph, op.Morph)
			case diff.CreateIndex:
				blue.Printf("    🔍 %s\n", op.Index.Name)
			case diff.CreateJunctionTable:
				for _, c := range op.Columns() {
					green.Printf("    ➕ %s\n", c)
				}
			}
		}
	}
}

func printPlan(plan *runner.Plan) {
	for _, rel := range plan.Skipped {
		warnf("%s() already exists on %s, relation skipped", rel.Method, plan.Batch.Record)
	}
	for _, w := range plan.Warnings {
		warnf("%s", w)
	}
	for _, name := range plan.DroppedIndexes {
		infof("Index %s dropped", name)
	}
}

func printReport(report *runner.Report) {
	if report.Plan != nil {
		printPlan(report.Plan)
	}

	if report.DryRun {
		fmt.Println("\n================ DRY RUN: Preview ================")
		for _, f := range report.Plan.Files {
			fmt.Printf("-- %s (%s) --\n", f.Path, f.Kind)
			fmt.Println(f.Content)
		}
		fmt.Println("==================================================")
		fmt.Println("(Dry run only. No files were written.)")
		return
	}

	for _, f := range report.Written {
		switch {
		case f.Kind == runner.ModelFile && !f.New:
			successf("Model updated: %s", f.Path)
		case f.Kind == runner.ModelFile:
			successf("Model created: %s", f.Path)
		default:
			successf("Migration generated: %s", f.Path)
		}
	}
}
