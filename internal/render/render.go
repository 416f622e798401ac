// Package render produces SVG diagrams from DBML, either by running the
// dbml-renderer tool locally or by calling a diagram endpoint over HTTP.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Renderer turns DBML into an SVG document
type Renderer interface {
	Render(ctx context.Context, dbml string) ([]byte, error)
}

// CommandRenderer runs the dbml-renderer command line tool
type CommandRenderer struct {
	// Command is the executable, "dbml-renderer" when empty
	Command string
}

// NewCommandRenderer creates a renderer running command
func NewCommandRenderer(command string) *CommandRenderer {
	return &CommandRenderer{Command: command}
}

// Render writes dbml to a scratch directory and reads back the SVG
func (r *CommandRenderer) Render(ctx context.Context, dbml string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "schemaforge-render-")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	in := filepath.Join(dir, "schema.dbml")
	out := filepath.Join(dir, "schema.svg")
	if err := os.WriteFile(in, []byte(dbml), 0644); err != nil {
		return nil, fmt.Errorf("failed to write input file: %w", err)
	}

	command := r.Command
	if command == "" {
		command = "dbml-renderer"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, "-i", in, "-o", out)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("failed to render diagram: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("failed to render diagram: %w", err)
	}

	svg, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("failed to read diagram: %w", err)
	}
	return svg, nil
}
