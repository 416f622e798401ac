package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemaforge/internal/schema"
)

// TextFormatter formats schema as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the schema in compact text format
func (f *TextFormatter) Format(s *schema.Schema) error {
	outgoing := groupByTable(AllRelationships(*s), func(r schema.Relationship) string { return r.To.Table })

	for i, table := range s.Tables {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}

		if err := f.formatTable(table, outgoing[table.Name]); err != nil {
			return err
		}
	}
	return nil
}

func (f *TextFormatter) formatTable(table schema.Table, rels []schema.Relationship) error {
	// Table header with primary key
	pkStr := ""
	if pk := primaryKey(table); len(pk) > 0 {
		pkStr = fmt.Sprintf(" (PK: %s)", strings.Join(pk, ", "))
	}
	if _, err := fmt.Fprintf(f.writer, "TABLE %s%s\n", table.Name, pkStr); err != nil {
		return err
	}
	if table.Note != "" {
		_, _ = fmt.Fprintf(f.writer, "  -- %s\n", table.Note)
	}

	for _, field := range table.Fields {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", f.formatField(field))
	}

	if len(rels) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, rel := range rels {
			_, _ = fmt.Fprintf(f.writer, "    %s → %s (%s)\n", rel.To.Field, rel.From, Cardinality(rel.Type))
		}
	}

	return nil
}

func (f *TextFormatter) formatField(field schema.Field) string {
	parts := []string{field.Name + ":", field.Type}

	if field.AutoIncrement {
		parts = append(parts, "AUTO_INCREMENT")
	}
	if field.Unique {
		parts = append(parts, "UNIQUE")
	}
	if field.NotNull {
		parts = append(parts, "NOT NULL")
	}
	if field.Default != "" {
		parts = append(parts, fmt.Sprintf("DEFAULT %s", field.Default))
	}

	return strings.Join(parts, " ")
}

// Cardinality returns the short 1:N form of a relationship type, read from
// the referenced side.
func Cardinality(t schema.RelationType) string {
	switch t {
	case schema.OneToOne:
		return "1:1"
	case schema.ManyToOne:
		return "N:1"
	case schema.ManyToMany:
		return "N:M"
	default:
		return "1:N"
	}
}

func primaryKey(table schema.Table) []string {
	var pk []string
	for _, field := range table.Fields {
		if field.PK {
			pk = append(pk, field.Name)
		}
	}
	return pk
}

func groupByTable(rels []schema.Relationship, key func(schema.Relationship) string) map[string][]schema.Relationship {
	grouped := make(map[string][]schema.Relationship)
	for _, rel := range rels {
		k := key(rel)
		grouped[k] = append(grouped[k], rel)
	}
	return grouped
}
