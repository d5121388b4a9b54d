package db

import (
	"io/fs"
	"strings"
	"testing"
)

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"app.db", "app.db?_foreign_keys=on&_busy_timeout=5000"},
		{"file:app.db?cache=shared", "file:app.db?cache=shared&_foreign_keys=on&_busy_timeout=5000"},
		{"app.db?_fk=1&_busy_timeout=100", "app.db?_fk=1&_busy_timeout=100"},
	}
	for _, tt := range tests {
		if got := sqliteDSN(tt.in); got != tt.want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	for _, driver := range []string{DriverPostgres, DriverSQLite} {
		entries, err := fs.ReadDir(migrationsFS, "migrations/"+driver)
		if err != nil {
			t.Fatalf("read %s migrations: %v", driver, err)
		}
		var up, down int
		for _, e := range entries {
			switch {
			case strings.HasSuffix(e.Name(), ".up.sql"):
				up++
			case strings.HasSuffix(e.Name(), ".down.sql"):
				down++
			}
		}
		if up == 0 || up != down {
			t.Errorf("%s: got %d up and %d down migrations", driver, up, down)
		}
	}
}

func TestMigrate_UnsupportedDriver(t *testing.T) {
	if err := Migrate(nil, "mysql"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
