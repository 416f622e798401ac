package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tordrt/schemaforge/internal/export"
	"github.com/tordrt/schemaforge/internal/formatter"
	"github.com/tordrt/schemaforge/internal/render"
	"github.com/tordrt/schemaforge/internal/server"
)

var (
	listenAddr string
	serverURL  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the diagram, DBML and SQL endpoints over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := listenAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}

		logger := log.New(os.Stderr, "schemaforge ", log.LstdFlags)
		api := server.New(
			render.NewCommandRenderer(cfg.Renderer.Command),
			export.NewCommandExporter(cfg.Exporter.Command),
			logger,
		)

		srv := &http.Server{
			Addr:              addr,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			color.Green("Listening on %s", addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("failed to serve: %w", err)
		case <-ctx.Done():
		}

		color.Blue("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	},
}

var diagramCmd = &cobra.Command{
	Use:   "diagram [schema-file]",
	Short: "Render a schema document as an SVG diagram",
	Long: `Diagram renders through dbml-renderer, or through a running "schemaforge serve"
instance when --server is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadInput(args)
		if err != nil {
			return err
		}

		var renderer render.Renderer = render.NewCommandRenderer(cfg.Renderer.Command)
		if serverURL != "" {
			renderer = render.NewClient(serverURL)
		}

		svg, err := renderer.Render(cmd.Context(), formatter.ToDBML(s))
		if err != nil {
			color.Red("Could not render diagram")
			return err
		}

		return withOutput(cmd, outputFile, func(w io.Writer) error {
			_, err := w.Write(svg)
			return err
		})
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (default: server.addr from config)")

	diagramCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	diagramCmd.Flags().StringVar(&serverURL, "server", "", "Base URL of a schemaforge server")
}
