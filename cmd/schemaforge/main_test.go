package main

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"log"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemaforge/internal/export"
	"github.com/tordrt/schemaforge/internal/formatter"
	"github.com/tordrt/schemaforge/internal/schema"
	"github.com/tordrt/schemaforge/internal/server"
)

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the CLI with args against a config file that does not exist
// unless args name one
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))

	err := rootCmd.Execute()
	return out.String(), err
}

func writeExample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blog.yaml")
	data, err := schema.Marshal(schema.Example())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestParseTableList(t *testing.T) {
	tests := []struct {
		name       string
		tablesStr  string
		wantTables []string
	}{
		{
			name:       "single table",
			tablesStr:  "users",
			wantTables: []string{"users"},
		},
		{
			name:       "multiple tables",
			tablesStr:  "users,posts,comments",
			wantTables: []string{"users", "posts", "comments"},
		},
		{
			name:       "tables with spaces",
			tablesStr:  "users, posts, comments",
			wantTables: []string{"users", "posts", "comments"},
		},
		{
			name:       "empty string",
			tablesStr:  "",
			wantTables: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotTables := parseTableList(tt.tablesStr)

			if len(gotTables) != len(tt.wantTables) {
				t.Errorf("parseTableList() returned %d tables, want %d", len(gotTables), len(tt.wantTables))
				return
			}

			for i, table := range gotTables {
				if table != tt.wantTables[i] {
					t.Errorf("parseTableList() table[%d] = %s, want %s", i, table, tt.wantTables[i])
				}
			}
		})
	}
}

func TestExampleAndDBMLCommands(t *testing.T) {
	out, err := execute(t, "example")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "example.yaml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0644))

	out, err = execute(t, "dbml", path)
	require.NoError(t, err)
	assert.Equal(t, formatter.ToDBML(schema.Example()), out)

	out, err = execute(t, "example", "--format", "dbml")
	require.NoError(t, err)
	assert.Equal(t, formatter.ToDBML(schema.Example()), out)
}

func TestDBMLCommandOutputFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "blog.dbml")

	out, err := execute(t, "dbml", writeExample(t), "-o", target)
	require.NoError(t, err)
	assert.Empty(t, out)

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, formatter.ToDBML(schema.Example()), string(content))
}

func TestDBMLCommandMissingFile(t *testing.T) {
	_, err := execute(t, "dbml", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyCommand(t *testing.T) {
	edits := filepath.Join(t.TempDir(), "edits.yaml")
	require.NoError(t, os.WriteFile(edits, []byte(`
- type: RENAME_TABLE
  oldTableName: users
  newTableName: members
- type: ADD_FIELD
  tableName: members
  field: {name: bio, type: text}
- type: REMOVE_TABLE
  tableName: likes
- type: REMOVE_FIELD
  tableName: nowhere
  fieldName: nothing
`), 0644))

	out, err := execute(t, "apply", writeExample(t), "--edits", edits)
	require.NoError(t, err)

	s, err := schema.Parse([]byte(out))
	require.NoError(t, err)
	assert.Nil(t, s.FindTable("users"))
	assert.Nil(t, s.FindTable("likes"))

	members := s.FindTable("members")
	require.NotNil(t, members)
	assert.NotNil(t, members.FindField("bio"))

	posts := s.FindTable("posts")
	require.NotNil(t, posts)
	assert.Equal(t, "members.id", posts.FindField("user_id").References.String())
}

func TestApplyCommandErrors(t *testing.T) {
	_, err := execute(t, "apply", writeExample(t))
	assert.ErrorContains(t, err, "--edits is required")

	edits := filepath.Join(t.TempDir(), "edits.yaml")
	require.NoError(t, os.WriteFile(edits, []byte("- type: TRUNCATE\n"), 0644))
	_, err = execute(t, "apply", writeExample(t), "--edits", edits)
	assert.ErrorIs(t, err, schema.ErrUnknownEdit)
}

func TestStatsCommand(t *testing.T) {
	out, err := execute(t, "stats", writeExample(t))
	require.NoError(t, err)

	assert.Contains(t, out, "Tables:        4\n")
	assert.Contains(t, out, "Fields:        18\n")
	assert.Contains(t, out, "Foreign keys:  5\n")
	assert.Contains(t, out, "  int          9\n")
}

func TestDocsCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "docs")

	_, err := execute(t, "docs", writeExample(t), "-d", dir, "-f", "text")
	require.NoError(t, err)
	for _, name := range []string{"_overview.txt", "users.txt", "comments.txt", "schema.dbml"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	out, err := execute(t, "docs", writeExample(t))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Database Schema"))

	_, err = execute(t, "docs", writeExample(t), "-d", dir, "-o", "x.md")
	assert.Error(t, err)
}

func TestImportCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`
CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL UNIQUE);
CREATE TABLE sessions (id INTEGER PRIMARY KEY, user_id INTEGER REFERENCES users(id));
CREATE TABLE schema_migrations (version TEXT);
`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	out, err := execute(t, "import", "sqlite://"+path, "--exclude", "schema_migrations", "-f", "dbml")
	require.NoError(t, err)
	assert.Contains(t, out, "Table sessions {")
	assert.Contains(t, out, "Table users {")
	assert.NotContains(t, out, "schema_migrations")
	assert.Contains(t, out, "Ref: users.id < sessions.user_id")

	out, err = execute(t, "import", "sqlite://"+path, "--tables", "users")
	require.NoError(t, err)
	s, err := schema.Parse([]byte(out))
	require.NoError(t, err)
	require.Len(t, s.Tables, 1)
	assert.Equal(t, "users", s.Tables[0].Name)
}

func TestSQLCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}

	// fake dbml2sql: prints the engine flag and the input
	dir := t.TempDir()
	script := filepath.Join(dir, "dbml2sql")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"-- $2\"\ncat \"$1\"\n"), 0755))

	config := filepath.Join(dir, "schemaforge.yaml")
	require.NoError(t, os.WriteFile(config, []byte("engine: mssql\nexporter:\n  command: "+script+"\n"), 0644))

	out, err := execute(t, "--config", config, "sql", writeExample(t))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "-- --mssql\nTable users {"))

	out, err = execute(t, "--config", config, "sql", writeExample(t), "-e", "mysql")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "-- --mysql\n"))

	_, err = execute(t, "--config", config, "sql", writeExample(t), "-e", "oracle")
	assert.ErrorIs(t, err, export.ErrUnsupportedEngine)
}

type stubRenderer struct{}

func (stubRenderer) Render(_ context.Context, dbml string) ([]byte, error) {
	return []byte("<svg>" + strings.Split(dbml, "\n")[0] + "</svg>"), nil
}

func TestDiagramCommandAgainstServer(t *testing.T) {
	api := server.New(stubRenderer{}, nil, log.New(io.Discard, "", 0))
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	out, err := execute(t, "diagram", writeExample(t), "--server", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<svg>Table users {</svg>", out)
}
