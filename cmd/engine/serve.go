package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/artificer-ai/artificer/internal/config"
	"github.com/artificer-ai/artificer/internal/telemetry"
)

func buildServeCmd() *cobra.Command {
	var (
		configPath string
		dev        bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Artificer engine server",
		Long: `Start the Artificer engine: the HTTP chat entry point, the
background job worker, and the event bus they share.

The server:
1. Loads configuration (or defaults, if --config is unset)
2. Opens the sqlite store and applies the schema
3. Starts the background worker's poll loop
4. Starts the HTTP listener (chat entry point, /healthz, /metrics)

Graceful shutdown is handled on SIGINT/SIGTERM: the worker finishes its
in-flight job, drains the queue, and the HTTP listener closes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, dev)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file (defaults applied when unset)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable text logging and a stdout trace exporter")

	return cmd
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func runServe(ctx context.Context, configPath string, dev bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if dev {
		cfg.Logging.Format = "text"
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, dev)
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	defer shutdownTracing(context.Background())

	a, cleanup, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	workerErrCh := make(chan error, 1)
	go func() { workerErrCh <- a.worker.Run(ctx) }()

	handler := &chatTransport{engine: a.eng, bus: a.bus, logger: a.logger}
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler.mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	serveErrCh := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
			return
		}
		serveErrCh <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErrCh:
		stop()
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Worker.DrainTimeout)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	return <-workerErrCh
}
