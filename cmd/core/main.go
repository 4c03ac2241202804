package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	grpc_adapter "github.com/JoeShih716/go-stake-ledger/internal/app/core/adapter/in/grpc"
	memory_adapter "github.com/JoeShih716/go-stake-ledger/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-stake-ledger/internal/app/core/adapter/out/mysql"
	nats_adapter "github.com/JoeShih716/go-stake-ledger/internal/app/core/adapter/out/nats"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/adapter/out/transfer"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-stake-ledger/internal/observability"
	pkggrpc "github.com/JoeShih716/go-stake-ledger/pkg/grpc"
	"github.com/JoeShih716/go-stake-ledger/pkg/mysql"
	"github.com/JoeShih716/go-stake-ledger/pkg/wal"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. 載入設定
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := observability.NewLogger("core", cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("core exited with error")
	}
	logger.Info().Msg("core exited")
}

func run(ctx context.Context, cfg Config, logger zerolog.Logger) error {
	// 2. Metrics 與 /healthz
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)
	healthChecker := observability.NewHealthChecker()

	httpServer := &http.Server{
		Addr:              cfg.Server.MetricsAddr,
		Handler:           observability.NewHTTPHandler(registry, healthChecker),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 3. 快照 (可選)
	var snapshots *mysql_adapter.SnapshotRepository
	var snap *domain.Snapshot
	if cfg.MySQL.Enabled {
		dbClient, err := mysql.NewClient(cfg.MySQL.Config, logger)
		if err != nil {
			return err
		}
		defer dbClient.Close()
		healthChecker.AddCheck("mysql", dbClient.Ping)
		logger.Info().Str("host", cfg.MySQL.Host).Msg("connected to mysql")

		snapshots = mysql_adapter.NewSnapshotRepository(dbClient)
		if err := snapshots.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate snapshot tables: %w", err)
		}
		if snap, err = snapshots.LoadSnapshot(ctx); err != nil {
			return err
		}
		if snap != nil {
			logger.Info().
				Int("accounts", len(snap.Accounts)).
				Uint64("sequence", snap.Sequence).
				Msg("loaded snapshot")
		}
	}

	// 4. WAL + 記憶體帳本
	walFile, err := wal.Open(cfg.Ledger.WALPath)
	if err != nil {
		return fmt.Errorf("open wal: %w", err)
	}
	defer walFile.Close()

	engineCtx, stopEngine := context.WithCancel(context.Background())
	defer stopEngine()

	var store usecase.LedgerStore
	var engineDone <-chan struct{}
	switch cfg.Ledger.Engine {
	case engineLMAX:
		lmax, err := memory_adapter.NewLMAXLedger(snap, walFile, cfg.Ledger.BufferSize)
		if err != nil {
			return fmt.Errorf("init lmax ledger: %w", err)
		}
		lmax.Start(engineCtx)
		store, engineDone = lmax, lmax.Done()
	default:
		mutexLedger, err := memory_adapter.NewMutexLedger(snap, walFile)
		if err != nil {
			return fmt.Errorf("init mutex ledger: %w", err)
		}
		store = mutexLedger
	}
	logger.Info().
		Str("engine", cfg.Ledger.Engine).
		Str("wal", walFile.Path()).
		Uint64("wal_records", walFile.Records()).
		Msg("ledger recovered")

	// 5. 外部轉帳服務
	pool := pkggrpc.NewPool(pkggrpc.WithInterceptor(
		transfer.CallLogger(logger.With().Str("component", "transfer").Logger()),
	))
	defer pool.Close()
	transferClient, err := transfer.NewClient(pool, cfg.Transfer,
		logger.With().Str("component", "transfer").Logger())
	if err != nil {
		return err
	}

	// 6. UseCase
	subaccount, err := cfg.Ledger.subaccount()
	if err != nil {
		return err
	}
	opts := []usecase.Option{
		usecase.WithMetrics(metrics),
		usecase.WithLogger(logger.With().Str("component", "usecase").Logger()),
		usecase.WithLedgerSubaccount(subaccount),
	}

	if cfg.NATS.Enabled {
		nc, err := nats_adapter.Connect(cfg.NATS, logger)
		if err != nil {
			return err
		}
		defer drainNATS(nc, logger)

		js, err := jetstream.New(nc)
		if err != nil {
			return fmt.Errorf("create jetstream: %w", err)
		}
		if err := nats_adapter.EnsureStream(ctx, js, cfg.NATS); err != nil {
			return err
		}
		opts = append(opts, usecase.WithPublisher(nats_adapter.NewPublisher(js, cfg.NATS)))
		logger.Info().Str("stream", cfg.NATS.Stream).Msg("publishing ledger events")
	}

	coreUseCase := usecase.NewCoreUseCase(store, transferClient, domain.Identity(cfg.Ledger.Account), opts...)
	if totals, err := store.GetTotals(ctx); err == nil {
		metrics.SetTotals(totals.Staked, totals.Borrowed)
	}

	// 7. gRPC Server
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpc_adapter.CallerInterceptor(),
		grpc_adapter.LoggingInterceptor(logger.With().Str("component", "grpc").Logger()),
	))
	grpc_adapter.RegisterLedgerServiceServer(s, grpc_adapter.NewGrpcServer(coreUseCase))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus(grpc_adapter.ServiceName, healthpb.HealthCheckResponse_SERVING)

	// 8. 啟動
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.Server.GRPCAddr).Msg("starting grpc server")
		return s.Serve(lis)
	})

	g.Go(func() error {
		logger.Info().Str("addr", cfg.Server.MetricsAddr).Msg("starting metrics server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if snapshots != nil {
		g.Go(func() error {
			runSnapshots(gctx, store, snapshots, cfg.Ledger.SnapshotInterval, logger)
			return nil
		})
	}

	// Graceful Shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		healthChecker.SetReady(false)
		healthServer.Shutdown()
		s.GracefulStop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	healthChecker.SetReady(true)
	runErr := g.Wait()

	// 已無進行中的請求，狀態不會再變動
	if snapshots != nil {
		saveSnapshot(context.Background(), store, snapshots, logger)
	}
	stopEngine()
	if engineDone != nil {
		<-engineDone
	}
	return runErr
}

// runSnapshots 每隔 interval 將帳本寫入 MySQL，直到 ctx 結束
func runSnapshots(ctx context.Context, store usecase.LedgerStore, repo *mysql_adapter.SnapshotRepository, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			saveSnapshot(ctx, store, repo, logger)
		}
	}
}

func saveSnapshot(ctx context.Context, store usecase.LedgerStore, repo *mysql_adapter.SnapshotRepository, logger zerolog.Logger) {
	snap, err := store.Snapshot(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("take snapshot failed")
		return
	}
	if err := repo.SaveSnapshot(ctx, snap); err != nil {
		logger.Error().Err(err).Uint64("sequence", snap.Sequence).Msg("save snapshot failed")
		return
	}
	logger.Debug().
		Int("accounts", len(snap.Accounts)).
		Uint64("sequence", snap.Sequence).
		Msg("snapshot saved")
}

func drainNATS(nc *nats.Conn, logger zerolog.Logger) {
	if err := nc.Drain(); err != nil {
		logger.Warn().Err(err).Msg("drain nats connection")
	}
}
