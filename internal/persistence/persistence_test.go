package persistence

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

func TestMigrationFilesSortedSQLOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_views.sql", "001_init.sql", "README.md", "003_indexes.sql.bak"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("-- x"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "old.sql"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := migrationFiles(dir)
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}
	want := []string{"001_init.sql", "002_views.sql"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	if _, err := migrationFiles(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for a missing directory")
	}
}

func TestPostgresDisabledWithoutDSN(t *testing.T) {
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	defer pg.Close()

	if pg.Enabled() {
		t.Fatal("postgres should be disabled without a DSN")
	}
	if err := pg.Ping(context.Background()); err != nil {
		t.Fatalf("Ping on disabled postgres: %v", err)
	}
	if err := pg.Reset(context.Background()); err != nil {
		t.Fatalf("Reset on disabled postgres: %v", err)
	}
}

func TestBundledMigrationIsValidFile(t *testing.T) {
	files, err := migrationFiles(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}
	if len(files) == 0 || files[0] != "001_init.sql" {
		t.Fatalf("unexpected bundled migrations %v", files)
	}
}
