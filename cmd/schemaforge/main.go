package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tordrt/schemaforge"
	"github.com/tordrt/schemaforge/internal/schema"
)

var (
	configPath string
	cfg        *schemaforge.Config
)

var rootCmd = &cobra.Command{
	Use:   "schemaforge",
	Short: "Build relational schemas and turn them into DBML, SQL and diagrams",
	Long: `schemaforge reads schema documents (YAML or JSON) or imports them from PostgreSQL,
MySQL or SQLite, applies edit scripts, and emits DBML. SQL DDL and SVG diagrams are
produced by the external dbml2sql and dbml-renderer tools.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := schemaforge.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", schemaforge.DefaultConfigFile, "Config file")

	rootCmd.AddCommand(dbmlCmd, sqlCmd, importCmd, applyCmd, statsCmd, docsCmd, diagramCmd, serveCmd, exampleCmd)
}

// inputPath returns the schema document named on the command line, or "-"
// for standard input
func inputPath(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}

func loadInput(args []string) (schema.Schema, error) {
	path := inputPath(args)
	s, err := schemaforge.LoadSchema(path)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return s, nil
}

// withOutput calls write with the command's stdout, or with outputFile when
// it is set
func withOutput(cmd *cobra.Command, outputFile string, write func(w io.Writer) error) error {
	if outputFile == "" {
		return write(cmd.OutOrStdout())
	}

	f, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close output file: %v\n", err)
		}
	}()

	return write(f)
}

// parseTableList splits a comma-separated table list
func parseTableList(tables string) []string {
	if tables == "" {
		return nil
	}
	list := strings.Split(tables, ",")
	for i, t := range list {
		list[i] = strings.TrimSpace(t)
	}
	return list
}

func main() {
	// status lines go to stderr so stdout stays pipeable
	color.Output = os.Stderr

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
