package database

import (
	"testing"
	"testing/fstest"

	"gestion-backend/migrations"
)

func TestPendingFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/002_b.sql":        {Data: []byte("SELECT 2;")},
		"sql/001_a.sql":        {Data: []byte("SELECT 1;")},
		"sql/003_reset_db.sql": {Data: []byte("DROP TABLE x;")},
		"sql/README.md":        {Data: []byte("notes")},
		"sql/004_c.sql":        {Data: []byte("SELECT 4;")},
	}

	got, err := PendingFiles(fsys, "sql", map[string]bool{"004_c.sql": true})
	if err != nil {
		t.Fatalf("PendingFiles: %v", err)
	}
	want := []string{"001_a.sql", "002_b.sql"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := PendingFiles(migrations.FS, ".", nil)
	if err != nil {
		t.Fatalf("PendingFiles: %v", err)
	}
	if len(files) < 2 || files[0] != "001_schema.sql" {
		t.Fatalf("unexpected embedded migrations %v", files)
	}
}
