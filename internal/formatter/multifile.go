package formatter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tordrt/schemaforge/internal/schema"
)

const (
	formatMarkdown = "markdown"
	formatText     = "text"

	overviewName = "_overview"
	dbmlFileName = "schema.dbml"
)

// ErrInvalidTableFileName is returned when a table name cannot be used as a
// file name inside the output directory
var ErrInvalidTableFileName = errors.New("table name cannot be used as a file name")

// MultiFileFormatter writes schema to multiple files in a directory
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes an overview file plus one file per table, and schema.dbml
// with the full DBML rendition.
func (f *MultiFileFormatter) Format(s *schema.Schema) error {
	if f.OutputFormat != formatMarkdown && f.OutputFormat != formatText {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'markdown')", f.OutputFormat)
	}

	if err := f.checkTableNames(s.Tables); err != nil {
		return err
	}

	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	rels := AllRelationships(*s)
	outgoing := groupByTable(rels, func(r schema.Relationship) string { return r.To.Table })
	incoming := groupByTable(rels, func(r schema.Relationship) string { return r.From.Table })

	if err := f.writeFile(overviewName+f.getFileExtension(), func(w io.Writer) error {
		return f.writeOverview(w, s, outgoing)
	}); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, table := range s.Tables {
		err := f.writeFile(table.Name+f.getFileExtension(), func(w io.Writer) error {
			if f.OutputFormat == formatMarkdown {
				NewMarkdownFormatter(w).FormatTable(table, outgoing[table.Name], incoming[table.Name])
				return nil
			}
			return NewTextFormatter(w).formatTable(table, outgoing[table.Name])
		})
		if err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", table.Name, err)
		}
	}

	if err := f.writeFile(dbmlFileName, func(w io.Writer) error {
		return NewDBMLFormatter(w).Format(s)
	}); err != nil {
		return fmt.Errorf("failed to write dbml: %w", err)
	}

	return nil
}

// checkTableNames rejects names that would leave the output directory or
// overwrite another generated file
func (f *MultiFileFormatter) checkTableNames(tables []schema.Table) error {
	ext := f.getFileExtension()
	seen := map[string]bool{overviewName + ext: true}

	for _, table := range tables {
		name := table.Name
		if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
			return fmt.Errorf("%w: %q", ErrInvalidTableFileName, name)
		}
		file := name + ext
		if seen[file] {
			return fmt.Errorf("%w: %s would be written twice", ErrInvalidTableFileName, file)
		}
		seen[file] = true
	}
	return nil
}

func (f *MultiFileFormatter) writeFile(name string, write func(io.Writer) error) error {
	file, err := os.Create(filepath.Join(f.OutputDir, name))
	if err != nil {
		return err
	}

	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func (f *MultiFileFormatter) writeOverview(w io.Writer, s *schema.Schema, outgoing map[string][]schema.Relationship) error {
	if f.OutputFormat == formatMarkdown {
		_, _ = fmt.Fprintf(w, "# Schema Overview\n\n")
		_, _ = fmt.Fprintf(w, "Each table has a corresponding file: `<table_name>%s`\n\n", f.getFileExtension())
		_, _ = fmt.Fprintf(w, "## Tables\n\n")
	} else {
		_, _ = fmt.Fprintf(w, "SCHEMA OVERVIEW\n")
		_, _ = fmt.Fprintf(w, "Each table has a file: <table_name>%s\n\n", f.getFileExtension())
	}

	// Sort tables alphabetically
	sortedTables := make([]schema.Table, len(s.Tables))
	copy(sortedTables, s.Tables)
	sort.Slice(sortedTables, func(i, j int) bool {
		return sortedTables[i].Name < sortedTables[j].Name
	})

	for _, table := range sortedTables {
		if f.OutputFormat == formatMarkdown {
			_, _ = fmt.Fprintf(w, "- **%s**", table.Name)
		} else {
			_, _ = fmt.Fprintf(w, "%s", table.Name)
		}

		if targets := referencedTables(outgoing[table.Name]); len(targets) > 0 {
			_, _ = fmt.Fprintf(w, " (references: %s)", strings.Join(targets, ", "))
		}
		if _, err := fmt.Fprintf(w, "\n"); err != nil {
			return err
		}
	}

	return nil
}

// referencedTables lists the distinct From tables of rels in first-seen order
func referencedTables(rels []schema.Relationship) []string {
	seen := make(map[string]bool)
	var targets []string
	for _, rel := range rels {
		if !seen[rel.From.Table] {
			seen[rel.From.Table] = true
			targets = append(targets, rel.From.Table)
		}
	}
	return targets
}

func (f *MultiFileFormatter) getFileExtension() string {
	if f.OutputFormat == formatMarkdown {
		return ".md"
	}
	return ".txt"
}
