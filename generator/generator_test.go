package generator

import (
	"strings"
	"testing"
	"time"

	"github.com/ridoystarlord/modelforge/diff"
	"github.com/ridoystarlord/modelforge/introspect"
	"github.com/ridoystarlord/modelforge/naming"
	"github.com/ridoystarlord/modelforge/schema"
	"github.com/ridoystarlord/modelforge/store"
)

func blogPost() schema.Batch {
	return schema.Batch{
		Record: "Blog/Post",
		Fields: []schema.FieldDefinition{
			{Name: "title", Kind: schema.Text, Fillable: true},
			{Name: "status", Kind: schema.Enum, EnumValues: []string{"draft", "published"}, Fillable: true},
		},
		Relations: []schema.RelationDefinition{
			{Method: "author", Target: "User", Kind: schema.BelongsTo},
		},
		Indexes: []schema.IndexDefinition{{Columns: []string{"status"}}},
	}
}

func TestColumnLine(t *testing.T) {
	tests := []struct {
		field schema.FieldDefinition
		want  string
	}{
		{schema.FieldDefinition{Name: "title", Kind: schema.Text}, "$table->string('title');"},
		{schema.FieldDefinition{Name: "body", Kind: schema.LongText, Nullable: true}, "$table->longText('body')->nullable();"},
		{schema.FieldDefinition{Name: "price", Kind: schema.Decimal}, "$table->decimal('price', 10, 2);"},
		{schema.FieldDefinition{Name: "slug", Kind: schema.Text, Unique: true}, "$table->string('slug')->unique();"},
		{schema.FieldDefinition{Name: "published_at", Kind: schema.DateTime, Nullable: true}, "$table->dateTime('published_at')->nullable();"},
		{schema.FieldDefinition{Name: "status", Kind: schema.Enum, EnumValues: []string{"draft", "published"}},
			"$table->enum('status', ['draft', 'published']);"},
	}
	for _, tt := range tests {
		t.Run(tt.field.Name, func(t *testing.T) {
			got, err := ColumnLine(tt.field)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ColumnLine = %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := ColumnLine(schema.FieldDefinition{Name: "x", Kind: schema.Enum}); err == nil {
		t.Error("enum without values should fail")
	}
}

func TestRenderCreateScenario(t *testing.T) {
	ops := diff.Plan(blogPost(), introspect.NewHistory(), nil)
	src, action, err := RenderMigration(ops)
	if err != nil {
		t.Fatal(err)
	}
	if action != naming.Create {
		t.Errorf("action = %s", action)
	}

	want := `<?php

use Illuminate\Database\Migrations\Migration;
use Illuminate\Database\Schema\Blueprint;
use Illuminate\Support\Facades\Schema;

return new class extends Migration
{
    /**
     * Run the migrations.
     */
    public function up(): void
    {
        if (! Schema::hasTable('posts')) {
            Schema::create('posts', function (Blueprint $table) {
                $table->id();
                $table->string('title');
                $table->enum('status', ['draft', 'published']);
                $table->foreignId('author_id')->constrained('users')->cascadeOnDelete();
                $table->index(['status'], 'posts_status_index');
                $table->timestamps();
            });
        }
    }

    /**
     * Reverse the migrations.
     */
    public function down(): void
    {
        Schema::dropIfExists('posts');
    }
};
`
	if src != want {
		t.Errorf("unexpected migration:\n%s", src)
	}

	// the rendered file feeds the next run's history
	h := introspect.ScanMigration(src)
	for _, c := range []string{"id", "title", "status", "author_id", "created_at", "updated_at"} {
		if !h.Columns.Has(c) {
			t.Errorf("history missing %s", c)
		}
	}
	if !h.HasIndex("posts_status_index") {
		t.Error("history missing posts_status_index")
	}
}

func TestRenderAlterUpdateScenario(t *testing.T) {
	history := introspect.NewHistory()
	history.Created = true
	for _, c := range []string{"id", "title", "status", "author_id"} {
		history.Columns.Add(c)
	}
	history.Indexes["posts_status_index"] = true

	batch := blogPost()
	batch.Fields = append(batch.Fields, schema.FieldDefinition{Name: "published_at", Kind: schema.DateTime, Nullable: true})

	src, action, err := RenderMigration(diff.Plan(batch, history, nil))
	if err != nil {
		t.Fatal(err)
	}
	if action != naming.Update {
		t.Errorf("action = %s", action)
	}

	up := `        Schema::table('posts', function (Blueprint $table) {
            if (! Schema::hasColumn('posts', 'published_at')) {
                $table->dateTime('published_at')->nullable();
            }
        });`
	down := `        Schema::table('posts', function (Blueprint $table) {
            if (Schema::hasColumn('posts', 'published_at')) {
                $table->dropColumn('published_at');
            }
        });`
	if !strings.Contains(src, up) || !strings.Contains(src, down) {
		t.Errorf("unexpected migration:\n%s", src)
	}
	if strings.Contains(src, "'title'") {
		t.Error("alter migration touches an existing column")
	}
}

func TestAlterGuardSymmetry(t *testing.T) {
	ops := []diff.Operation{
		{Type: diff.AddColumn, TableName: "posts", Column: &schema.FieldDefinition{Name: "a", Kind: schema.Integer}},
		{Type: diff.AddForeignKey, TableName: "posts", ForeignKey: &diff.ForeignKey{Column: "editor_id", ReferencesTable: "users"}},
		{Type: diff.AddMorphs, TableName: "posts", Morph: "commentable"},
		{Type: diff.CreateIndex, TableName: "posts", Index: &diff.Index{Name: "posts_a_index", Columns: []string{"a"}}},
	}
	statements, err := GenerateStatements(ops)
	if err != nil {
		t.Fatal(err)
	}
	src, err := RenderAlter(ops)
	if err != nil {
		t.Fatal(err)
	}

	upAt := strings.Index(src, "public function up()")
	downAt := strings.Index(src, "public function down()")
	upBlock, downBlock := src[upAt:downAt], src[downAt:]

	prevUp, prevDown := -1, len(downBlock)
	for _, s := range statements {
		u := strings.Index(upBlock, "if (! "+s.Guard+")")
		d := strings.Index(downBlock, "if ("+s.Guard+")")
		if u < 0 || d < 0 {
			t.Fatalf("guard %s missing from one side", s.Guard)
		}
		if u < prevUp {
			t.Errorf("up statements out of order at %s", s.Guard)
		}
		if d > prevDown {
			t.Errorf("down statements not reversed at %s", s.Guard)
		}
		prevUp, prevDown = u, d
	}

	fk := statements[1]
	if fk.Down[0] != "$table->dropForeign(['editor_id']);" || fk.Down[1] != "$table->dropColumn('editor_id');" {
		t.Errorf("foreign key inverse = %v", fk.Down)
	}
	if statements[3].Down[0] != "$table->dropIndex('posts_a_index');" {
		t.Errorf("index inverse = %v", statements[3].Down)
	}
}

func TestRenderJunction(t *testing.T) {
	batch := schema.Batch{
		Record: "Post",
		Relations: []schema.RelationDefinition{
			{Method: "tags", Target: "Tag", Kind: schema.BelongsToMany, Junction: true},
			{Method: "labels", Target: "Label", Kind: schema.MorphToMany, Junction: true},
		},
	}
	_, junctions := diff.Split(diff.Plan(batch, introspect.NewHistory(), nil))

	src, err := RenderJunction(junctions[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range []string{
		"Schema::create('post_tag', function (Blueprint $table) {",
		"$table->foreignId('post_id')->constrained('posts')->cascadeOnDelete();",
		"$table->foreignId('tag_id')->constrained('tags')->cascadeOnDelete();",
		"$table->primary(['post_id', 'tag_id']);",
		"Schema::dropIfExists('post_tag');",
	} {
		if !strings.Contains(src, line) {
			t.Errorf("junction missing %q:\n%s", line, src)
		}
	}
	if strings.Contains(src, "timestamps") {
		t.Error("junction tables carry no timestamps")
	}

	morph, err := RenderJunction(junctions[1])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(morph, "$table->morphs('labelable');") ||
		!strings.Contains(morph, "$table->primary(['label_id', 'labelable_id', 'labelable_type']);") {
		t.Errorf("unexpected morph junction:\n%s", morph)
	}
}

func TestWriteMigrationFile(t *testing.T) {
	st := store.Memory()
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	path, err := WriteMigrationFile(st, "database/migrations/", at, naming.Create, "posts", "<?php")
	if err != nil {
		t.Fatal(err)
	}
	if path != "database/migrations/2024_03_09_140507_create_posts_table.php" {
		t.Errorf("path = %s", path)
	}
	if got, _ := st.Read(path); got != "<?php" {
		t.Errorf("content = %q", got)
	}
}
