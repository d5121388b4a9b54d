package dbcmd

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
)

// captureOutput helps capture stdout during command execution.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	return buf.String()
}

func TestMigrate_CreatesTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_DSN", path)
	t.Setenv("SECRET_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	root := &cobra.Command{Use: "dermalens"}
	InitDB(root)
	root.SetArgs([]string{"db", "migrate"})

	for i := 0; i < 2; i++ {
		var err error
		out := captureOutput(t, func() { err = root.Execute() })
		if err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
		if !strings.Contains(out, "Database ready (sqlite3).") {
			t.Errorf("run %d output: %s", i+1, out)
		}
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	for _, table := range []string{"users", "history"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestMigrate_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "mysql")

	root := &cobra.Command{Use: "dermalens", SilenceUsage: true, SilenceErrors: true}
	InitDB(root)
	root.SetArgs([]string{"db", "migrate"})

	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "unsupported DB_DRIVER") {
		t.Errorf("got %v", err)
	}
}
