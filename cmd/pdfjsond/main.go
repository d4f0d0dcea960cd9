package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/pdfjson/internal/app"
	"github.com/joseph-ayodele/pdfjson/internal/common"
	"github.com/joseph-ayodele/pdfjson/internal/ocr/tesseract"
	svc "github.com/joseph-ayodele/pdfjson/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	logger := app.NewLogger(os.Stdout, cfg.SlogLevel(), true)
	slog.SetDefault(logger)

	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := tesseract.NewEngine(tesseract.Config{Lang: cfg.OCR.Lang, TessdataDir: cfg.OCR.TessdataDir})
	a, err := app.Build(ctx, cfg, engine, logger)
	if err != nil {
		logger.Error("failed to build extraction pipeline", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if a.DB != nil {
		if err := a.DB.HealthCheck(ctx, cfg.Ledger.DialTimeout); err != nil {
			logger.Error("failed to ping ledger database", "error", err)
			os.Exit(1)
		}
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(svc.UnaryLogging(logger)))

	extraction := svc.NewExtractionService(a.Driver, logger)
	svc.RegisterExtractionServer(grpcServer, extraction)

	// Register gRPC health service
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	// Set the service as serving (empty string means overall server health)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(svc.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	logger.Info("pdfjsond listening", "addr", addr, "ledger", a.DB != nil)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	healthServer.Shutdown()
	grpcServer.GracefulStop()
}
