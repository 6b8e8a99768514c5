package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/assetflow-backend/internal/adapter/grpc"
	"github.com/simaogato/assetflow-backend/internal/app"
	"github.com/simaogato/assetflow-backend/internal/config"
	"github.com/simaogato/assetflow-backend/internal/logging"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration")
	flag.Parse()

	// 1. Configuration and logging
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logging.NewLogger("error", "console").Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	// 2. Database, seeding and services
	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialise services")
	}
	defer a.Close()

	state, err := a.Portfolio.Load(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load portfolio")
	}
	logger.Info().Int("assets", len(state.Assets)).Int("issues", len(state.Issues)).Msg("Portfolio loaded")

	// 3. gRPC server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(logger.Component("grpc")),
			grpcadapter.AuthInterceptor(cfg.Server.APIToken),
		),
	)
	grpcadapter.RegisterAssetFlowServiceServer(grpcServer, grpcadapter.NewServer(
		a.Portfolio, a.Correction, a.Reconcile, a.Ingestion, a.Retirement,
	))
	reflection.Register(grpcServer)

	addr := cfg.Server.Addr()
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", addr).Msg("Failed to listen")
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			logger.Fatal().Err(err).Msg("Failed to serve gRPC server")
		}
	}()

	waitForShutdown(grpcServer, logger)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(grpcServer *grpclib.Server, logger *logging.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")

	grpcServer.GracefulStop()
	logger.Info().Msg("gRPC server stopped")
}
