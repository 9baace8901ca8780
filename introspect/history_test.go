package introspect

import (
	"reflect"
	"testing"

	"github.com/ridoystarlord/modelforge/schema"
	"github.com/ridoystarlord/modelforge/store"
)

const createPosts = `<?php

use Illuminate\Database\Migrations\Migration;
use Illuminate\Database\Schema\Blueprint;
use Illuminate\Support\Facades\Schema;

return new class extends Migration
{
    public function up(): void
    {
        if (! Schema::hasTable('posts')) {
            Schema::create('posts', function (Blueprint $table) {
                $table->id();
                $table->string('title');
                $table->enum('status', ['draft', 'published']);
                $table->foreignId('author_id')->constrained('users')->cascadeOnDelete();
                $table->morphs('owner');
                $table->index(['status'], 'posts_status_index');
                $table->timestamps();
            });
        }
    }

    public function down(): void
    {
        Schema::dropIfExists('posts');
    }
};
`

const updatePosts = `<?php

return new class extends Migration
{
    public function up(): void
    {
        Schema::table('posts', function (Blueprint $table) {
            if (! Schema::hasColumn('posts', 'published_at')) {
                $table->dateTime('published_at')->nullable();
            }
            $table->index(['title', 'status']);
        });
    }

    public function down(): void
    {
        Schema::table('posts', function (Blueprint $table) {
            $table->dropIndex('posts_title_status_index');
            $table->dropColumn('published_at');
        });
    }
};
`

func TestScanMigration(t *testing.T) {
	h := ScanMigration(createPosts)

	want := []string{"author_id", "created_at", "id", "owner_id", "owner_type", "status", "title", "updated_at"}
	if got := h.Columns.Sorted(); !reflect.DeepEqual(got, want) {
		t.Errorf("columns = %v, want %v", got, want)
	}
	if !h.HasIndex("posts_status_index") {
		t.Errorf("indexes = %v", h.Indexes)
	}
}

func TestScanMigrationDerivesIndexNames(t *testing.T) {
	h := ScanMigration(updatePosts)
	if !h.HasIndex("posts_title_status_index") {
		t.Errorf("indexes = %v", h.Indexes)
	}
	if h.Columns.Has("posts") {
		t.Error("table name leaked into the column set")
	}
	if got := h.Columns.Sorted(); !reflect.DeepEqual(got, []string{"published_at"}) {
		t.Errorf("columns = %v", got)
	}
}

func TestScanMigrationMorphFamily(t *testing.T) {
	tests := []struct {
		stmt string
		want []string
	}{
		{`$table->morphs('owner');`, []string{"owner_id", "owner_type"}},
		{`$table->nullableUuidMorphs('taggable');`, []string{"taggable_id", "taggable_type"}},
		{`$table->foreign('user_id')->references('id')->on('users');`, []string{"user_id"}},
		{`$table->softDeletes(); $table->rememberToken();`, []string{"deleted_at", "remember_token"}},
	}
	for _, tt := range tests {
		t.Run(tt.stmt, func(t *testing.T) {
			if got := ScanMigration(tt.stmt).Columns.Sorted(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("columns = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKnownColumnsUnion(t *testing.T) {
	model := `<?php class Post extends Model {
    protected $fillable = ['title', 'legacy_slug'];
    protected $casts = ['flags' => 'array'];
}`
	fields := []schema.FieldDefinition{{Name: "published_at", Kind: schema.DateTime}}

	known := KnownColumns(fields, model, []string{`$table->morphs('owner');`})
	for _, c := range []string{"published_at", "owner_id", "owner_type", "title", "legacy_slug", "flags"} {
		if !known.Has(c) {
			t.Errorf("known columns missing %q: %v", c, known.Sorted())
		}
	}
}

func TestLoadHistory(t *testing.T) {
	st := store.Memory()
	files := map[string]string{
		"db/2024_01_01_000000_create_posts_table.php": createPosts,
		"db/2024_02_01_000000_update_posts_table.php": updatePosts,
		"db/2024_02_01_000001_create_post_tag_table.php": `Schema::create('post_tag', function ($table) { $table->string('stray'); });`,
	}
	for name, text := range files {
		if err := st.Write(name, text); err != nil {
			t.Fatal(err)
		}
	}

	h, texts, err := LoadHistory(st, "db", "posts")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if !h.Created {
		t.Error("Created should be true")
	}
	if len(texts) != 2 || len(h.Files) != 2 {
		t.Fatalf("files = %v", h.Files)
	}
	if h.Files[0] != "db/2024_01_01_000000_create_posts_table.php" {
		t.Errorf("files out of order: %v", h.Files)
	}
	if !h.Columns.Has("published_at") || h.Columns.Has("stray") {
		t.Errorf("columns = %v", h.Columns.Sorted())
	}

	empty, _, err := LoadHistory(st, "db", "comments")
	if err != nil || empty.Created || len(empty.Columns) != 0 {
		t.Errorf("unexpected history for an unknown table: %+v, %v", empty, err)
	}
}
