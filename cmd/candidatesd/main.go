package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/candidate-search/internal/common"
	"github.com/joseph-ayodele/candidate-search/internal/entity"
	"github.com/joseph-ayodele/candidate-search/internal/notify"
	"github.com/joseph-ayodele/candidate-search/internal/repository"
	"github.com/joseph-ayodele/candidate-search/internal/server"
	"github.com/joseph-ayodele/candidate-search/internal/table"
)

func main() {
	// Setup structured logger that outputs messages with variables but no time/level
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.ValidateServer(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Candidate table: SQL store when configured, exported CSV otherwise
	var store server.RowLister
	if cfg.Database.DSN != "" || cfg.Database.SQLitePath != "" {
		s, err := repository.Open(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer s.Close()
		if err := s.HealthCheck(ctx, cfg.Database.DialTimeout); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		store = s
	}
	tbl := table.New(nil)
	loader := server.NewLoader(tbl, store, filepath.Join(cfg.Output.Dir, cfg.Output.CSVName), logger)
	if _, err := loader.Reload(ctx); err != nil {
		// an empty dashboard until the first batch run lands
		logger.Warn("no candidate table loaded yet", "error", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// HTTP dashboard API
	router := server.NewRouter(server.NewDashboard(tbl, loader, logger), server.RouterConfig{
		CORSOrigin: cfg.Server.CORSOrigin,
		Registry:   reg,
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC server
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(server.UnaryLogging(logger)))
	server.RegisterCandidatesServer(grpcServer, server.NewCandidatesService(tbl, loader, logger))

	// Register gRPC health service
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	// Set the service as serving (empty string means overall server health)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(server.CandidatesServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	// Reflection for grpcurl
	reflection.Register(grpcServer)

	// Reload on refresh events from the batch
	if cfg.Broker.URL != "" {
		conn, ch, err := notify.Dial(cfg.Broker.URL, cfg.Broker.Exchange)
		if err != nil {
			logger.Warn("refresh subscription disabled", "error", err)
		} else {
			defer conn.Close()
			defer ch.Close()
			sub := notify.NewSubscriber(ch, cfg.Broker.Exchange, "", logger)
			go func() {
				err := sub.Run(ctx, func(ctx context.Context, ev entity.RefreshEvent) {
					if _, err := loader.Reload(ctx); err != nil {
						logger.Error("reload after refresh failed", "run_id", ev.RunID, "error", err)
					}
				})
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("refresh subscription stopped", "error", err)
				}
			}()
		}
	}

	logger.Info("candidatesd listening", "http", cfg.Server.HTTPAddr, "grpc", cfg.Server.GRPCAddr)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	grpcServer.GracefulStop()
}
