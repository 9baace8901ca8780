// Package runner drives one batch through the pipeline: validate, gather
// what is already known, plan, render, confirm, and only then write.
package runner

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ridoystarlord/modelforge/config"
	"github.com/ridoystarlord/modelforge/diff"
	"github.com/ridoystarlord/modelforge/generator"
	"github.com/ridoystarlord/modelforge/introspect"
	"github.com/ridoystarlord/modelforge/merger"
	"github.com/ridoystarlord/modelforge/naming"
	"github.com/ridoystarlord/modelforge/prompt"
	"github.com/ridoystarlord/modelforge/schema"
	"github.com/ridoystarlord/modelforge/store"
	"github.com/ridoystarlord/modelforge/validator"
)

var (
	// ErrEmptyBatch means the batch adds nothing the files do not already declare.
	ErrEmptyBatch = errors.New("nothing to generate")
	// ErrDeclined means the user turned down a confirmation; nothing was written.
	ErrDeclined = errors.New("declined")
)

// Options are the host facts and paths a run depends on.
type Options struct {
	ModelsDir     string
	MigrationsDir string
	Namespace     string
	ModernCasts   bool
	JunctionDelay time.Duration
	DryRun        bool
}

// OptionsFromConfig copies the relevant configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ModelsDir:     cfg.ModelsDir,
		MigrationsDir: cfg.MigrationsDir,
		Namespace:     cfg.Namespace,
		ModernCasts:   cfg.ModernCasts,
		JunctionDelay: cfg.JunctionDelay,
	}
}

// FileKind tells the reporter what a planned file is.
type FileKind string

const (
	ModelFile     FileKind = "model"
	MigrationFile FileKind = "migration"
	JunctionFile  FileKind = "junction"
)

// File is one artifact a run produces. Migration paths are only known once
// the file has been stamped.
type File struct {
	Kind     FileKind
	Path     string
	Table    string
	Action   naming.Action
	Content  string
	New      bool
	Checksum string
}

// Plan is everything a run would write, computed without touching the disk.
type Plan struct {
	Batch          schema.Batch
	Table          string
	History        introspect.History
	Known          schema.KnownColumnSet
	Validation     *validator.ValidationResult
	Operations     []diff.Operation
	Skipped        []schema.RelationDefinition
	Warnings       []string
	DroppedIndexes []string
	Files          []File
}

// Report is the outcome of Run.
type Report struct {
	Plan    *Plan
	Written []File
	DryRun  bool
}

// Runner executes batches against a file store.
type Runner struct {
	store  *store.Store
	prompt prompt.Prompter
	clock  Clock
	opts   Options
	live   introspect.Querier
}

// New creates a runner using the system clock.
func New(st *store.Store, p prompt.Prompter, opts Options) *Runner {
	return &Runner{store: st, prompt: p, clock: SystemClock(), opts: opts}
}

// WithClock replaces the clock, for tests.
func (r *Runner) WithClock(c Clock) *Runner {
	r.clock = c
	return r
}

// WithLive merges the live database columns and indexes into the history.
func (r *Runner) WithLive(q introspect.Querier) *Runner {
	r.live = q
	return r
}

// Knowledge is what the files, and optionally the database, already say
// about a record type.
type Knowledge struct {
	ModelPath   string
	ModelExists bool
	ModelSource string
	History     introspect.History
	Migrations  []string
}

// Known is the known-column set for a batch adding fields.
func (k *Knowledge) Known(fields []schema.FieldDefinition) schema.KnownColumnSet {
	known := introspect.KnownColumns(fields, k.ModelSource, k.Migrations)
	known.Add(k.History.Columns.Sorted()...)
	return known
}

// Load reads the model file and migration history of record.
func (r *Runner) Load(ctx context.Context, record string) (*Knowledge, error) {
	k := &Knowledge{ModelPath: naming.ModelPath(r.opts.ModelsDir, record)}
	k.ModelExists = r.store.Exists(k.ModelPath)
	if k.ModelExists {
		src, err := r.store.Read(k.ModelPath)
		if err != nil {
			return nil, err
		}
		k.ModelSource = src
	}

	table := naming.TableName(record)
	history, texts, err := introspect.LoadHistory(r.store, r.opts.MigrationsDir, table)
	if err != nil {
		return nil, err
	}
	if r.live != nil {
		live, err := introspect.Live(ctx, r.live, table)
		if err != nil {
			return nil, err
		}
		history.Merge(live)
	}
	k.History = history
	k.Migrations = texts
	return k, nil
}

// Prepare validates batch and computes its plan. Index columns unknown to
// the files are confirmed one index at a time; declined indexes are dropped.
func (r *Runner) Prepare(ctx context.Context, batch schema.Batch) (*Plan, error) {
	table := naming.TableName(batch.Record)
	plan := &Plan{Batch: batch, Table: table}

	k, err := r.Load(ctx, batch.Record)
	if err != nil {
		return nil, err
	}
	modelPath, modelExists, modelSrc, history := k.ModelPath, k.ModelExists, k.ModelSource, k.History
	plan.History = history
	plan.Known = k.Known(batch.Fields)

	plan.Validation = validator.NewBatchValidator(plan.Known, modelSrc).ValidateBatch(batch)
	if err := plan.Validation.Err(); err != nil {
		return plan, err
	}

	batch, dropped, err := r.confirmIndexes(batch, plan.Validation.UnknownIndexColumns())
	if err != nil {
		return plan, err
	}
	plan.Batch = batch
	plan.DroppedIndexes = dropped

	plan.Operations = diff.Plan(batch, history, r.junctionExists)
	tableOps, junctions := diff.Split(plan.Operations)
	slog.Debug("planned operations", "table", table, "table_ops", len(tableOps), "junctions", len(junctions))

	if len(tableOps) > 0 {
		src, action, err := generator.RenderMigration(tableOps)
		if err != nil {
			return plan, err
		}
		plan.Files = append(plan.Files, File{Kind: MigrationFile, Table: table, Action: action, Content: src, New: true})
	}
	for _, op := range junctions {
		src, err := generator.RenderJunction(op)
		if err != nil {
			return plan, err
		}
		plan.Files = append(plan.Files, File{Kind: JunctionFile, Table: op.TableName, Action: naming.Create, Content: src, New: true})
	}

	if !modelExists {
		src, err := generator.BuildModel(generator.ModelOptions{
			RootNamespace: r.opts.Namespace,
			ModernCasts:   r.opts.ModernCasts,
		}, batch)
		if err != nil {
			return plan, err
		}
		plan.Files = append(plan.Files, File{Kind: ModelFile, Path: modelPath, Content: src, New: true})
	} else {
		res := merger.MergeAndRender(modelSrc, batch.Fields, batch.Relations, merger.Options{
			ModernCasts:   r.opts.ModernCasts,
			RootNamespace: r.opts.Namespace,
			Record:        batch.Record,
		})
		plan.Skipped = res.Skipped
		plan.Warnings = append(plan.Warnings, res.Warnings...)
		if res.Changed {
			plan.Files = append(plan.Files, File{Kind: ModelFile, Path: modelPath, Content: res.Source})
		}
	}

	if len(plan.Files) == 0 {
		return plan, fmt.Errorf("%w for %s", ErrEmptyBatch, batch.Record)
	}
	return plan, nil
}

// confirmIndexes asks once per index that references unknown columns.
func (r *Runner) confirmIndexes(batch schema.Batch, unknown []validator.ValidationError) (schema.Batch, []string, error) {
	if len(unknown) == 0 {
		return batch, nil, nil
	}

	missing := map[string][]string{}
	for _, w := range unknown {
		missing[w.Index] = append(missing[w.Index], w.Field)
	}

	table := naming.TableName(batch.Record)
	var kept []schema.IndexDefinition
	var dropped []string
	asked := map[string]bool{}
	for _, idx := range batch.Indexes {
		name := naming.IndexName(table, idx.Columns...)
		cols, ok := missing[name]
		if !ok {
			kept = append(kept, idx)
			continue
		}
		if asked[name] {
			continue
		}
		asked[name] = true

		label := fmt.Sprintf("Index %s references unknown column(s) %v. Keep it?", name, cols)
		keep, err := r.prompt.Confirm(label, true)
		if err != nil {
			return batch, nil, err
		}
		if keep {
			kept = append(kept, idx)
		} else {
			dropped = append(dropped, name)
		}
	}

	out := batch
	out.Indexes = kept
	return out, dropped, nil
}

func (r *Runner) junctionExists(table string) bool {
	files, err := r.store.ListMatching(naming.MigrationGlob(r.opts.MigrationsDir, naming.Create, table))
	return err == nil && len(files) > 0
}

// Run prepares batch, asks for the final confirmation, and writes every file.
// In dry-run mode nothing is confirmed or written.
func (r *Runner) Run(ctx context.Context, batch schema.Batch) (*Report, error) {
	plan, err := r.Prepare(ctx, batch)
	if err != nil {
		return &Report{Plan: plan, DryRun: r.opts.DryRun}, err
	}

	if r.opts.DryRun {
		r.stamp(plan.Files, false)
		return &Report{Plan: plan, DryRun: true}, nil
	}

	ok, err := r.prompt.Confirm(fmt.Sprintf("Write %d file(s) for %s?", len(plan.Files), batch.Record), true)
	if err != nil {
		return &Report{Plan: plan}, err
	}
	if !ok {
		return &Report{Plan: plan}, ErrDeclined
	}

	written, err := r.Write(plan)
	return &Report{Plan: plan, Written: written}, err
}

// Write stamps and saves every file of plan. Junction migrations are stamped
// strictly after the table migration.
func (r *Runner) Write(plan *Plan) ([]File, error) {
	files := r.stamp(plan.Files, true)

	var written []File
	for _, f := range files {
		if err := r.store.Write(f.Path, f.Content); err != nil {
			return written, fmt.Errorf("writing %s: %w", f.Path, err)
		}
		f.Checksum = calculateChecksum(f.Content)
		written = append(written, f)
		slog.Debug("wrote file", "kind", f.Kind, "path", f.Path)
	}
	return written, nil
}

// stamp fills in migration paths. When wait is false the delay is added to
// the clock reading instead of slept, which is enough to preview names.
func (r *Runner) stamp(files []File, wait bool) []File {
	var prev time.Time
	first := true
	for i := range files {
		f := &files[i]
		if f.Kind == ModelFile {
			continue
		}
		var at time.Time
		switch {
		case first:
			at = r.clock.Now()
		case wait:
			at = stampAfter(r.clock, prev, r.opts.JunctionDelay)
		default:
			at = prev.Add(max(r.opts.JunctionDelay, time.Second))
		}
		first = false
		prev = at
		f.Path = strings.TrimRight(r.opts.MigrationsDir, "/") + "/" + naming.MigrationFile(at, f.Action, f.Table)
	}
	return files
}

func calculateChecksum(content string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
}

// Tables lists the tables a plan's migrations touch, sorted.
func (p *Plan) Tables() []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range p.Files {
		if f.Kind != ModelFile && !seen[f.Table] {
			seen[f.Table] = true
			out = append(out, f.Table)
		}
	}
	sort.Strings(out)
	return out
}
