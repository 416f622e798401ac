package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemaforge/internal/schema"
)

// MarkdownFormatter formats schema as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the schema in markdown format
func (f *MarkdownFormatter) Format(s *schema.Schema) error {
	if _, err := fmt.Fprintln(f.writer, "# Database Schema"); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(f.writer)

	rels := AllRelationships(*s)
	outgoing := groupByTable(rels, func(r schema.Relationship) string { return r.To.Table })
	incoming := groupByTable(rels, func(r schema.Relationship) string { return r.From.Table })

	for _, table := range s.Tables {
		f.FormatTable(table, outgoing[table.Name], incoming[table.Name])
	}
	return nil
}

// FormatTable formats a single table (exported for use by multifile formatter).
// outgoing are relationships whose To side is in the table, incoming those
// whose From side is.
func (f *MarkdownFormatter) FormatTable(table schema.Table, outgoing, incoming []schema.Relationship) {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", table.Name)
	if table.Note != "" {
		_, _ = fmt.Fprintf(f.writer, "%s\n\n", table.Note)
	}

	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)
	for _, field := range table.Fields {
		constraintStr := f.formatConstraints(field)
		switch {
		case constraintStr != "" && field.Note != "":
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s. %s\n", field.Name, field.Type, constraintStr, field.Note)
		case constraintStr != "":
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", field.Name, field.Type, constraintStr)
		case field.Note != "":
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s. %s\n", field.Name, field.Type, field.Note)
		default:
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", field.Name, field.Type)
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	if len(outgoing) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### References")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range outgoing {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s (%s)%s\n", rel.To.Field, rel.From, Cardinality(rel.Type), actionsSuffix(rel))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if len(incoming) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Referenced by")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range incoming {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s (%s)\n", rel.To, rel.From.Field, Cardinality(rel.Type))
		}
		_, _ = fmt.Fprintln(f.writer)
	}
}

func (f *MarkdownFormatter) formatConstraints(field schema.Field) string {
	var constraints []string

	if field.PK {
		constraints = append(constraints, "PK")
	}
	if field.AutoIncrement {
		constraints = append(constraints, "AUTO_INCREMENT")
	}
	if field.Unique {
		constraints = append(constraints, "UNIQUE")
	}
	if field.NotNull {
		constraints = append(constraints, "NOT NULL")
	}
	if field.Default != "" {
		constraints = append(constraints, fmt.Sprintf("DEFAULT %s", field.Default))
	}

	return strings.Join(constraints, ", ")
}

func actionsSuffix(rel schema.Relationship) string {
	var parts []string
	if rel.OnDelete != "" {
		parts = append(parts, "ON DELETE "+string(rel.OnDelete))
	}
	if rel.OnUpdate != "" {
		parts = append(parts, "ON UPDATE "+string(rel.OnUpdate))
	}
	if len(parts) == 0 {
		return ""
	}
	return ", " + strings.Join(parts, ", ")
}
