package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/rl1809/inventory-ledger/internal/adapter/handler"
)

const (
	healthInterval  = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and gRPC health service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts.app)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	log := a.log

	// Open the connection up front so a bad DSN fails fast.
	if _, err := a.conn.Acquire(ctx); err != nil {
		return err
	}
	log.Info("connected to database", "driver", a.cfg.Driver, "environment", a.cfg.Environment)

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	healthSvc := handler.NewGRPCHealth(a.conn, healthInterval, log)
	healthSvc.Register(grpcServer)

	lis, err := net.Listen("tcp", a.cfg.GRPCAddr)
	if err != nil {
		return err
	}

	healthCtx, cancelHealth := context.WithCancel(ctx)
	defer cancelHealth()
	go healthSvc.Run(healthCtx)

	go func() {
		log.Info("gRPC server listening", "addr", a.cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC server error", "error", err)
		}
	}()

	// Initialize HTTP server
	httpServer := &http.Server{
		Addr:    a.cfg.HTTPAddr,
		Handler: handler.NewHTTPHandler(a.svc, log).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", a.cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		log.Error("HTTP server error", "error", serveErr)
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown", "error", err)
	}
	log.Info("HTTP server stopped")

	cancelHealth()
	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")

	return serveErr
}
