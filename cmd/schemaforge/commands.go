package main

import (
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tordrt/schemaforge"
	"github.com/tordrt/schemaforge/internal/export"
	"github.com/tordrt/schemaforge/internal/formatter"
	"github.com/tordrt/schemaforge/internal/schema"
)

var (
	outputFile     string
	outputDir      string
	importFormat   string
	applyFormat    string
	docFormat      string
	exampleFormat  string
	engineName     string
	tables         string
	excludeTables  string
	schemaName     string
	splitThreshold int
	editsFile      string
)

var dbmlCmd = &cobra.Command{
	Use:   "dbml [schema-file]",
	Short: "Convert a schema document to DBML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadInput(args)
		if err != nil {
			return err
		}
		return withOutput(cmd, outputFile, func(w io.Writer) error {
			return formatter.NewDBMLFormatter(w).Format(&s)
		})
	},
}

var sqlCmd = &cobra.Command{
	Use:   "sql [schema-file]",
	Short: "Export a schema document as SQL DDL via dbml2sql",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := engineName
		if name == "" {
			name = cfg.Engine
		}
		engine, err := export.ParseEngine(name)
		if err != nil {
			return err
		}

		s, err := loadInput(args)
		if err != nil {
			return err
		}

		sql, err := schemaforge.ExportSQL(cmd.Context(), export.NewCommandExporter(cfg.Exporter.Command), s, engine)
		if err != nil {
			color.Red("Could not export %s", engine)
			return err
		}

		return withOutput(cmd, outputFile, func(w io.Writer) error {
			_, err := io.WriteString(w, sql)
			return err
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <database-url|name>",
	Short: "Import a schema from PostgreSQL, MySQL or SQLite",
	Long: `Import reads the catalog of a live database. The argument is either a URL
(postgres://, mysql://, sqlite://) or the name of an entry under databases: in the config file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputDir != "" && outputFile != "" {
			return fmt.Errorf("cannot use both --output-dir and --output flags")
		}

		url, configuredSchema := cfg.DatabaseURL(args[0])
		opts := &schemaforge.Options{
			Tables:        parseTableList(tables),
			ExcludeTables: append(append([]string{}, cfg.Import.Exclude...), parseTableList(excludeTables)...),
			SchemaName:    configuredSchema,
		}
		if schemaName != "" {
			opts.SchemaName = schemaName
		}

		color.Blue("Importing schema from %s", args[0])
		s, err := schemaforge.ImportSchema(cmd.Context(), url, opts)
		if err != nil {
			return fmt.Errorf("failed to extract schema: %w", err)
		}
		color.Green("Imported %d tables", len(s.Tables))

		shouldSplit := outputDir != "" && (splitThreshold == 0 || len(s.Tables) > splitThreshold)
		if shouldSplit {
			return schemaforge.FormatSchema(s, &schemaforge.OutputOptions{OutputDir: outputDir, Format: dirFormat(importFormat)})
		}
		if outputDir != "" {
			color.Yellow("%d tables do not exceed --split-threshold %d, writing a single file", len(s.Tables), splitThreshold)
		}

		return withOutput(cmd, outputFile, func(w io.Writer) error {
			return schemaforge.FormatSchema(s, &schemaforge.OutputOptions{Writer: w, Format: importFormat})
		})
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply <schema-file>",
	Short: "Apply an edit script to a schema document",
	Long: `Apply reads a list of edits (ADD_FIELD, RENAME_TABLE, UPDATE_RELATIONSHIP, ...)
from --edits and writes the resulting schema document.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if editsFile == "" {
			return fmt.Errorf("--edits is required")
		}

		s, err := loadInput(args)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(editsFile)
		if err != nil {
			return fmt.Errorf("failed to read edit script: %w", err)
		}
		edits, err := schema.DecodeEdits(data)
		if err != nil {
			return err
		}

		store := schema.NewStore(s)
		applied := 0
		store.Subscribe(func(schema.Schema) { applied++ })

		for i, e := range edits {
			before := store.Schema()
			if after := store.Dispatch(e); reflect.DeepEqual(before, after) {
				fmt.Fprintf(os.Stderr, "warning: edit %d (%s) changed nothing\n", i, e.EditType())
			}
		}
		color.Green("Applied %d edits", applied)

		result := store.Schema()
		return withOutput(cmd, outputFile, func(w io.Writer) error {
			return schemaforge.FormatSchema(&result, &schemaforge.OutputOptions{Writer: w, Format: applyFormat})
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats [schema-file]",
	Short: "Summarize a schema document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadInput(args)
		if err != nil {
			return err
		}
		writeStats(cmd.OutOrStdout(), schema.Stats(s))
		return nil
	},
}

func writeStats(w io.Writer, st schema.SchemaStats) {
	fmt.Fprintf(w, "Tables:        %d\n", st.Tables)
	fmt.Fprintf(w, "Fields:        %d\n", st.Fields)
	fmt.Fprintf(w, "Relationships: %d\n", st.Relationships)
	fmt.Fprintf(w, "Foreign keys:  %d\n", st.ForeignKeys)
	fmt.Fprintf(w, "Primary keys:  %d\n", st.PrimaryKeys)
	fmt.Fprintf(w, "Unique:        %d\n", st.UniqueFields)
	fmt.Fprintf(w, "Not null:      %d\n", st.NotNullFields)

	if types := st.SortedTypes(); len(types) > 0 {
		fmt.Fprintln(w, "Types:")
		for _, tc := range types {
			fmt.Fprintf(w, "  %-12s %d\n", tc.Type, tc.Count)
		}
	}
}

var docsCmd = &cobra.Command{
	Use:   "docs [schema-file]",
	Short: "Write text or markdown documentation for a schema document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputDir != "" && outputFile != "" {
			return fmt.Errorf("cannot use both --output-dir and --output flags")
		}

		s, err := loadInput(args)
		if err != nil {
			return err
		}

		if outputDir != "" {
			if err := schemaforge.FormatSchema(&s, &schemaforge.OutputOptions{OutputDir: outputDir, Format: docFormat}); err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			color.Green("Wrote %d tables to %s", len(s.Tables), outputDir)
			return nil
		}

		return withOutput(cmd, outputFile, func(w io.Writer) error {
			return schemaforge.FormatSchema(&s, &schemaforge.OutputOptions{Writer: w, Format: docFormat})
		})
	},
}

// dirFormat maps an import format onto the ones a documentation directory
// supports
func dirFormat(f string) string {
	switch f {
	case schemaforge.FormatText, schemaforge.FormatMarkdown:
		return f
	default:
		return schemaforge.FormatMarkdown
	}
}

var exampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Print the example blog schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := schema.Example()
		return withOutput(cmd, outputFile, func(w io.Writer) error {
			return schemaforge.FormatSchema(&s, &schemaforge.OutputOptions{Writer: w, Format: exampleFormat})
		})
	},
}

func init() {
	dbmlCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	sqlCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	sqlCmd.Flags().StringVarP(&engineName, "engine", "e", "", "SQL engine: postgres, mysql or mssql (default: from config)")

	importCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	importCmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Output directory for multi-file documentation")
	importCmd.Flags().StringVarP(&tables, "tables", "t", "", "Specific tables (comma-separated, optional)")
	importCmd.Flags().StringVar(&excludeTables, "exclude", "", "Tables to skip (comma-separated, added to import.exclude)")
	importCmd.Flags().StringVarP(&schemaName, "schema", "s", "", "Database schema name (default: public for PostgreSQL, the DSN database for MySQL)")
	importCmd.Flags().StringVarP(&importFormat, "format", "f", schemaforge.FormatYAML, "Output format: yaml, dbml, text or markdown")
	importCmd.Flags().IntVar(&splitThreshold, "split-threshold", 0, "Split into multiple files when table count exceeds this (requires --output-dir)")

	applyCmd.Flags().StringVar(&editsFile, "edits", "", "Edit script (YAML or JSON list)")
	applyCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	applyCmd.Flags().StringVarP(&applyFormat, "format", "f", schemaforge.FormatYAML, "Output format: yaml, dbml, text or markdown")

	docsCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	docsCmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Output directory: _overview, one file per table and schema.dbml")
	docsCmd.Flags().StringVarP(&docFormat, "format", "f", schemaforge.FormatMarkdown, "Output format: text or markdown")

	exampleCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	exampleCmd.Flags().StringVarP(&exampleFormat, "format", "f", schemaforge.FormatYAML, "Output format: yaml, dbml, text or markdown")
}
