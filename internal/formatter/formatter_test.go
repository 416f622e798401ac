package formatter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemaforge/internal/schema"
)

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	s := usersPosts()
	s.Tables[0].Note = "accounts"
	s.Tables[0].Fields = append(s.Tables[0].Fields, schema.Field{
		Name: "email", Type: "text", Unique: true, NotNull: true, Default: "''",
	})

	require.NoError(t, NewTextFormatter(&buf).Format(&s))

	want := `TABLE users (PK: id)
  -- accounts
  id: int
  email: text UNIQUE NOT NULL DEFAULT ''

TABLE posts (PK: id)
  id: int
  user_id: int

  RELATIONS:
    user_id → users.id (1:N)
`
	assert.Equal(t, want, buf.String())
}

func TestCardinality(t *testing.T) {
	assert.Equal(t, "1:1", Cardinality(schema.OneToOne))
	assert.Equal(t, "1:N", Cardinality(schema.OneToMany))
	assert.Equal(t, "N:1", Cardinality(schema.ManyToOne))
	assert.Equal(t, "N:M", Cardinality(schema.ManyToMany))
	assert.Equal(t, "1:N", Cardinality(""))
}

func TestMarkdownFormatter(t *testing.T) {
	var buf bytes.Buffer
	s := usersPosts()
	s.Relationships = []schema.Relationship{{
		From: schema.Endpoint{Table: "users", Field: "id"}, To: schema.Endpoint{Table: "posts", Field: "id"},
		Type: schema.OneToOne, OnDelete: schema.Cascade,
	}}

	require.NoError(t, NewMarkdownFormatter(&buf).Format(&s))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Database Schema\n\n## users\n\n### Columns\n\n- **id:** int, PK\n"))
	assert.Contains(t, out, "### Referenced by\n\n- posts.user_id → id (1:N)\n- posts.id → id (1:1)\n")
	assert.Contains(t, out, "### References\n\n- user_id → users.id (1:N)\n- id → users.id (1:1), ON DELETE CASCADE\n")
}

func TestMultiFileFormatter(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		wantFiles []string
	}{
		{name: "markdown", format: "markdown", wantFiles: []string{"_overview.md", "users.md", "posts.md", "schema.dbml"}},
		{name: "text", format: "text", wantFiles: []string{"_overview.txt", "users.txt", "posts.txt", "schema.dbml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			s := usersPosts()
			require.NoError(t, NewMultiFileFormatter(dir, tt.format).Format(&s))

			for _, name := range tt.wantFiles {
				_, err := os.Stat(filepath.Join(dir, name))
				assert.NoError(t, err, name)
			}

			dbml, err := os.ReadFile(filepath.Join(dir, "schema.dbml"))
			require.NoError(t, err)
			assert.Equal(t, ToDBML(s), string(dbml))

			overview, err := os.ReadFile(filepath.Join(dir, tt.wantFiles[0]))
			require.NoError(t, err)
			assert.Contains(t, string(overview), "(references: users)")
			assert.Equal(t, 1, strings.Count(string(overview), "references:"))
		})
	}
}

func TestMultiFileFormatterRejectsUnknownFormat(t *testing.T) {
	s := usersPosts()
	err := NewMultiFileFormatter(t.TempDir(), "html").Format(&s)
	assert.Error(t, err)
}

func TestMultiFileFormatterRejectsUnsafeTableNames(t *testing.T) {
	tests := []struct {
		name   string
		format string
		table  string
	}{
		{name: "parent directory", format: "markdown", table: "../escaped"},
		{name: "nested path", format: "text", table: "a/b"},
		{name: "backslash", format: "text", table: `..\escaped`},
		{name: "dot dot", format: "markdown", table: ".."},
		{name: "empty", format: "markdown", table: ""},
		{name: "overview markdown", format: "markdown", table: "_overview"},
		{name: "overview text", format: "text", table: "_overview"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent := t.TempDir()
			dir := filepath.Join(parent, "docs")
			s := schema.Schema{Tables: []schema.Table{{Name: "users"}, {Name: tt.table}}}

			err := NewMultiFileFormatter(dir, tt.format).Format(&s)
			require.ErrorIs(t, err, ErrInvalidTableFileName)

			assert.NoDirExists(t, dir)
			entries, err := os.ReadDir(parent)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestMultiFileFormatterRejectsDuplicateTables(t *testing.T) {
	s := schema.Schema{Tables: []schema.Table{{Name: "users"}, {Name: "users"}}}
	err := NewMultiFileFormatter(t.TempDir(), "markdown").Format(&s)
	assert.ErrorIs(t, err, ErrInvalidTableFileName)
}
