// Package export turns DBML into SQL DDL by delegating to an external
// DBML exporter.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
)

// ErrUnsupportedEngine is returned for an engine name the exporter does not know
var ErrUnsupportedEngine = errors.New("unsupported SQL engine")

// Engine is a target SQL dialect
type Engine string

const (
	Postgres Engine = "postgres"
	MySQL    Engine = "mysql"
	MSSQL    Engine = "mssql"
)

// Engines lists the supported engines in display order
var Engines = []Engine{Postgres, MySQL, MSSQL}

// ParseEngine validates an engine name
func ParseEngine(name string) (Engine, error) {
	switch e := Engine(strings.ToLower(strings.TrimSpace(name))); e {
	case Postgres, MySQL, MSSQL:
		return e, nil
	default:
		return "", fmt.Errorf("%w: %q (must be postgres, mysql or mssql)", ErrUnsupportedEngine, name)
	}
}

// Exporter converts DBML to SQL for an engine
type Exporter interface {
	Export(ctx context.Context, dbml string, engine Engine) (string, error)
}

// CommandExporter runs the dbml2sql command line tool
type CommandExporter struct {
	// Command is the executable, "dbml2sql" when empty
	Command string
}

// NewCommandExporter creates an exporter running command
func NewCommandExporter(command string) *CommandExporter {
	return &CommandExporter{Command: command}
}

// Export writes dbml to a temporary file and returns what dbml2sql prints
func (e *CommandExporter) Export(ctx context.Context, dbml string, engine Engine) (string, error) {
	if _, err := ParseEngine(string(engine)); err != nil {
		return "", err
	}

	input, err := os.CreateTemp("", "schemaforge-*.dbml")
	if err != nil {
		return "", fmt.Errorf("failed to create input file: %w", err)
	}
	defer func() { _ = os.Remove(input.Name()) }()

	if _, err := input.WriteString(dbml); err != nil {
		_ = input.Close()
		return "", fmt.Errorf("failed to write input file: %w", err)
	}
	if err := input.Close(); err != nil {
		return "", fmt.Errorf("failed to write input file: %w", err)
	}

	command := e.Command
	if command == "" {
		command = "dbml2sql"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, input.Name(), "--"+string(engine))
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("failed to export %s: %w: %s", engine, err, msg)
		}
		return "", fmt.Errorf("failed to export %s: %w", engine, err)
	}

	return stdout.String(), nil
}

// ToSQL exports dbml and reports failure as an absent result: the error is
// logged and ok is false.
func ToSQL(ctx context.Context, exp Exporter, logger *log.Logger, dbml string, engine Engine) (sql string, ok bool) {
	sql, err := exp.Export(ctx, dbml, engine)
	if err != nil {
		if logger != nil {
			logger.Printf("error converting DBML to SQL: %v", err)
		}
		return "", false
	}
	return sql, true
}
