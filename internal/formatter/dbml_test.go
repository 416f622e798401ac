package formatter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemaforge/internal/schema"
)

func usersPosts() schema.Schema {
	return schema.Schema{
		Tables: []schema.Table{
			{Name: "users", Fields: []schema.Field{{Name: "id", Type: "int", PK: true}}},
			{Name: "posts", Fields: []schema.Field{
				{Name: "id", Type: "int", PK: true},
				{Name: "user_id", Type: "int", References: &schema.Endpoint{Table: "users", Field: "id"}},
			}},
		},
	}
}

func TestToDBMLUsersPosts(t *testing.T) {
	want := `Table users {
  id int [pk]
  Note: ''
}

Table posts {
  id int [pk]
  user_id int
  Note: ''
}

Ref: users.id < posts.user_id`

	assert.Equal(t, want, ToDBML(usersPosts()))
}

func TestToDBMLEmptySchema(t *testing.T) {
	assert.Equal(t, "\n\n", ToDBML(schema.Schema{}))
}

func TestToDBMLNoRelationships(t *testing.T) {
	s := schema.Schema{Tables: []schema.Table{{Name: "tags", Note: "labels"}}}
	assert.Equal(t, "Table tags {\n  Note: 'labels'\n}\n\n", ToDBML(s))
}

func TestFieldSettings(t *testing.T) {
	tests := []struct {
		name  string
		field schema.Field
		want  string
	}{
		{name: "plain", field: schema.Field{Name: "title", Type: "text"}, want: "title text"},
		{name: "pk", field: schema.Field{Name: "id", Type: "int", PK: true}, want: "id int [pk]"},
		{name: "not null", field: schema.Field{Name: "a", Type: "int", NotNull: true}, want: "a int [not null]"},
		{name: "unique", field: schema.Field{Name: "a", Type: "int", Unique: true}, want: "a int [unique]"},
		{name: "increment", field: schema.Field{Name: "a", Type: "int", AutoIncrement: true}, want: "a int [increment]"},
		{name: "default", field: schema.Field{Name: "at", Type: "timestamp", Default: "now()"}, want: "at timestamp [default: 'now()']"},
		{
			name: "all in fixed order",
			field: schema.Field{
				Name: "id", Type: "int", Default: "1", AutoIncrement: true, Unique: true, NotNull: true, PK: true,
			},
			want: "id int [pk, not null, unique, increment, default: '1']",
		},
		{
			name:  "note and reference are not settings",
			field: schema.Field{Name: "user_id", Type: "int", Note: "owner", References: &schema.Endpoint{Table: "users", Field: "id"}},
			want:  "user_id int",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fieldDBML(tt.field))
		})
	}
}

func TestRelationSymbol(t *testing.T) {
	tests := []struct {
		relType schema.RelationType
		want    string
	}{
		{schema.OneToOne, "-"},
		{schema.OneToMany, "<"},
		{schema.ManyToOne, ">"},
		{schema.ManyToMany, "><"},
		{"", "<"},
		{"zero-to-many", "<"},
	}

	for _, tt := range tests {
		t.Run(string(tt.relType), func(t *testing.T) {
			assert.Equal(t, tt.want, RelationSymbol(tt.relType))
		})
	}
}

func TestRelationshipActions(t *testing.T) {
	base := schema.Relationship{
		From: schema.Endpoint{Table: "users", Field: "id"},
		To:   schema.Endpoint{Table: "posts", Field: "user_id"},
		Type: schema.ManyToOne,
	}

	tests := []struct {
		name     string
		onDelete schema.ReferentialAction
		onUpdate schema.ReferentialAction
		want     string
	}{
		{name: "none", want: "Ref: users.id > posts.user_id"},
		{name: "delete only", onDelete: schema.Cascade, want: "Ref: users.id > posts.user_id [on delete CASCADE]"},
		{name: "update only", onUpdate: schema.SetNull, want: "Ref: users.id > posts.user_id [on update SET NULL]"},
		{
			name:     "both",
			onDelete: schema.Restrict,
			onUpdate: schema.NoAction,
			want:     "Ref: users.id > posts.user_id [on delete RESTRICT, on update NO ACTION]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel := base
			rel.OnDelete = tt.onDelete
			rel.OnUpdate = tt.onUpdate
			assert.Equal(t, tt.want, relationshipDBML(rel))
		})
	}
}

func TestDerivedRelationshipsComeFirst(t *testing.T) {
	s := usersPosts()
	s.Relationships = []schema.Relationship{
		{From: schema.Endpoint{Table: "posts", Field: "id"}, To: schema.Endpoint{Table: "users", Field: "id"}, Type: schema.OneToOne},
		// same pair as the derived one; both are emitted
		{From: schema.Endpoint{Table: "users", Field: "id"}, To: schema.Endpoint{Table: "posts", Field: "user_id"}},
	}

	rels := AllRelationships(s)
	require.Len(t, rels, 3)
	assert.Equal(t, schema.Relationship{
		From: schema.Endpoint{Table: "users", Field: "id"},
		To:   schema.Endpoint{Table: "posts", Field: "user_id"},
		Type: schema.OneToMany,
	}, rels[0])

	out := ToDBML(s)
	_, refs, found := strings.Cut(out, "}\n\n")
	require.True(t, found)
	_, refs, found = strings.Cut(refs, "}\n\n")
	require.True(t, found)
	assert.Equal(t, "Ref: users.id < posts.user_id\nRef: posts.id - users.id\nRef: users.id < posts.user_id", refs)
}

func TestToDBMLDanglingReferencesPassThrough(t *testing.T) {
	s := schema.Schema{Tables: []schema.Table{{
		Name:   "orders",
		Fields: []schema.Field{{Name: "customer_id", Type: "int", References: &schema.Endpoint{Table: "ghost", Field: "id"}}},
	}}}
	assert.True(t, strings.HasSuffix(ToDBML(s), "\n\nRef: ghost.id < orders.customer_id"))
}

func TestToDBMLLineCount(t *testing.T) {
	s := schema.Example()
	out := ToDBML(s)

	tablePart, refPart, found := strings.Cut(out, "}\n\nRef: ")
	require.True(t, found)

	// header, fields, note and closing brace per table, blank line between tables
	wantLines := 0
	for _, table := range s.Tables {
		wantLines += len(table.Fields) + 3
	}
	wantLines += len(s.Tables) - 1
	assert.Equal(t, wantLines, len(strings.Split(tablePart+"}", "\n")))
	assert.Equal(t, 5, len(strings.Split("Ref: "+refPart, "\n")))
}

func TestToDBMLIsDeterministicAndPure(t *testing.T) {
	s := schema.Example()
	s.Relationships = []schema.Relationship{{
		From: schema.Endpoint{Table: "users", Field: "id"}, To: schema.Endpoint{Table: "likes", Field: "user_id"},
		OnDelete: schema.Cascade,
	}}

	first := ToDBML(s)
	assert.Equal(t, first, ToDBML(s))
	assert.Equal(t, schema.Example().Tables, s.Tables)
}

func TestDBMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	s := usersPosts()
	require.NoError(t, NewDBMLFormatter(&buf).Format(&s))
	assert.Equal(t, ToDBML(s), buf.String())
}
