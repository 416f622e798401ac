package schema

// Schema is the root document edited by the user: an ordered list of tables
// plus the relationships declared between them.
type Schema struct {
	Tables        []Table        `json:"tables" yaml:"tables"`
	Relationships []Relationship `json:"relationships,omitempty" yaml:"relationships,omitempty"`
}

// Table represents a database table
type Table struct {
	Name   string  `json:"name" yaml:"name"`
	Note   string  `json:"note,omitempty" yaml:"note,omitempty"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// Field represents a table column. Boolean attributes default to false and
// an empty Default means no default value.
type Field struct {
	Name          string    `json:"name" yaml:"name"`
	Type          string    `json:"type" yaml:"type"`
	PK            bool      `json:"pk,omitempty" yaml:"pk,omitempty"`
	Unique        bool      `json:"unique,omitempty" yaml:"unique,omitempty"`
	NotNull       bool      `json:"notNull,omitempty" yaml:"notNull,omitempty"`
	AutoIncrement bool      `json:"autoIncrement,omitempty" yaml:"autoIncrement,omitempty"`
	Default       string    `json:"default,omitempty" yaml:"default,omitempty"`
	Note          string    `json:"note,omitempty" yaml:"note,omitempty"`
	References    *Endpoint `json:"references,omitempty" yaml:"references,omitempty"`
}

// Endpoint addresses a single field of a table
type Endpoint struct {
	Table string `json:"table" yaml:"table"`
	Field string `json:"field" yaml:"field"`
}

// String returns the dotted table.field form
func (e Endpoint) String() string {
	return e.Table + "." + e.Field
}

// RelationType is the cardinality of a relationship. The zero value means
// the relationship carries no explicit type.
type RelationType string

const (
	OneToOne   RelationType = "one-to-one"
	OneToMany  RelationType = "one-to-many"
	ManyToOne  RelationType = "many-to-one"
	ManyToMany RelationType = "many-to-many"
)

// ReferentialAction is an ON DELETE / ON UPDATE rule. The zero value means absent.
type ReferentialAction string

const (
	Cascade  ReferentialAction = "CASCADE"
	SetNull  ReferentialAction = "SET NULL"
	Restrict ReferentialAction = "RESTRICT"
	NoAction ReferentialAction = "NO ACTION"
)

// Relationship is an explicit, user-declared link between two fields,
// independent of any Field.References pointer.
type Relationship struct {
	From     Endpoint          `json:"from" yaml:"from"`
	To       Endpoint          `json:"to" yaml:"to"`
	Type     RelationType      `json:"type,omitempty" yaml:"type,omitempty"`
	OnDelete ReferentialAction `json:"onDelete,omitempty" yaml:"onDelete,omitempty"`
	OnUpdate ReferentialAction `json:"onUpdate,omitempty" yaml:"onUpdate,omitempty"`
}

// SameEndpoints reports whether r links the same from/to fields as other,
// ignoring type and referential actions.
func (r Relationship) SameEndpoints(other Relationship) bool {
	return r.From == other.From && r.To == other.To
}

// FindTable returns the table with the given name, or nil
func (s *Schema) FindTable(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// FindField returns the field with the given name, or nil
func (t *Table) FindField(name string) *Field {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}
