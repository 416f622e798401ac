package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemaforge/internal/schema"
)

// DBMLFormatter formats schema as DBML
type DBMLFormatter struct {
	writer io.Writer
}

// NewDBMLFormatter creates a new DBML formatter
func NewDBMLFormatter(w io.Writer) *DBMLFormatter {
	return &DBMLFormatter{writer: w}
}

// Format writes the DBML rendition of s
func (f *DBMLFormatter) Format(s *schema.Schema) error {
	if _, err := io.WriteString(f.writer, ToDBML(*s)); err != nil {
		return fmt.Errorf("failed to write dbml: %w", err)
	}
	return nil
}

// ToDBML renders s as DBML: every table block, a blank line, then one Ref
// line per relationship. Relationships derived from field references come
// first, followed by the schema's explicit relationships. Names are emitted
// verbatim; the output is a pure function of s.
func ToDBML(s schema.Schema) string {
	return tablesDBML(s.Tables) + "\n\n" + relationshipsDBML(AllRelationships(s))
}

func tablesDBML(tables []schema.Table) string {
	blocks := make([]string, 0, len(tables))
	for _, table := range tables {
		var b strings.Builder
		fmt.Fprintf(&b, "Table %s {\n", table.Name)
		for _, field := range table.Fields {
			b.WriteString("  ")
			b.WriteString(fieldDBML(field))
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "  Note: '%s'\n}", table.Note)
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// fieldDBML renders "name type [settings]". References are not rendered
// here; they become Ref lines instead.
func fieldDBML(field schema.Field) string {
	settings := FieldSettings(field)
	if len(settings) == 0 {
		return field.Name + " " + field.Type
	}
	return fmt.Sprintf("%s %s [%s]", field.Name, field.Type, strings.Join(settings, ", "))
}

// FieldSettings returns the DBML column settings of field in fixed order:
// pk, not null, unique, increment, default.
func FieldSettings(field schema.Field) []string {
	var settings []string
	if field.PK {
		settings = append(settings, "pk")
	}
	if field.NotNull {
		settings = append(settings, "not null")
	}
	if field.Unique {
		settings = append(settings, "unique")
	}
	if field.AutoIncrement {
		settings = append(settings, "increment")
	}
	if field.Default != "" {
		settings = append(settings, fmt.Sprintf("default: '%s'", field.Default))
	}
	return settings
}

// DerivedRelationships synthesizes a one-to-many relationship for every
// field that references another field. The referenced field is the "one"
// side, so it becomes From and the referencing field becomes To.
func DerivedRelationships(s schema.Schema) []schema.Relationship {
	var rels []schema.Relationship
	for _, table := range s.Tables {
		for _, field := range table.Fields {
			if field.References == nil {
				continue
			}
			rels = append(rels, schema.Relationship{
				From: *field.References,
				To:   schema.Endpoint{Table: table.Name, Field: field.Name},
				Type: schema.OneToMany,
			})
		}
	}
	return rels
}

// AllRelationships returns the derived relationships followed by the
// explicit ones. Pairs described both ways appear twice.
func AllRelationships(s schema.Schema) []schema.Relationship {
	derived := DerivedRelationships(s)
	all := make([]schema.Relationship, 0, len(derived)+len(s.Relationships))
	all = append(all, derived...)
	return append(all, s.Relationships...)
}

// RelationSymbol maps a relationship type to its DBML operator.
// Absent or unknown types are treated as one-to-many.
func RelationSymbol(t schema.RelationType) string {
	switch t {
	case schema.OneToOne:
		return "-"
	case schema.OneToMany:
		return "<"
	case schema.ManyToOne:
		return ">"
	case schema.ManyToMany:
		return "><"
	default:
		return "<"
	}
}

func relationshipsDBML(rels []schema.Relationship) string {
	lines := make([]string, 0, len(rels))
	for _, rel := range rels {
		lines = append(lines, relationshipDBML(rel))
	}
	return strings.Join(lines, "\n")
}

func relationshipDBML(rel schema.Relationship) string {
	line := fmt.Sprintf("Ref: %s %s %s", rel.From, RelationSymbol(rel.Type), rel.To)

	var actions []string
	if rel.OnDelete != "" {
		actions = append(actions, "on delete "+string(rel.OnDelete))
	}
	if rel.OnUpdate != "" {
		actions = append(actions, "on update "+string(rel.OnUpdate))
	}
	if len(actions) == 0 {
		return line
	}
	return line + " [" + strings.Join(actions, ", ") + "]"
}
