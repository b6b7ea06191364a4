package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zekka-tech/Klubz-sub003/internal/cache"
	"github.com/zekka-tech/Klubz-sub003/internal/config"
	"github.com/zekka-tech/Klubz-sub003/internal/engine"
	"github.com/zekka-tech/Klubz-sub003/internal/ingest"
	"github.com/zekka-tech/Klubz-sub003/internal/logging"
	"github.com/zekka-tech/Klubz-sub003/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadServiceConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.NewLogger("ride-pooling-dispatcher", cfg.LogLevel)

	var store storage.TripStore
	if cfg.PGDSN != "" {
		if cfg.RunMigrations {
			runMigrations(cfg.PGDSN)
		}
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer ps.Close()
		store = ps
	} else {
		logger.Warn("PG_DSN not set, using in-memory trip store")
		store = storage.NewMemoryStore()
	}

	var plCache cache.PolylineCache
	if cfg.RedisAddr != "" {
		rc := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		defer rc.Close()
		plCache = rc
	} else {
		plCache = cache.NewMemoryCache()
	}

	var publisher *ingest.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = ingest.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
	}

	matchCfg := config.Merge(config.DefaultMatchConfig(), cfg.MatchOverrides())
	eng := engine.New(store, plCache, matchCfg, logger)
	eng.PrefilterLimit = cfg.PrefilterLimit
	eng.CacheTTL = cfg.PolylineCacheTTL

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opsServer := startOpsServer(cfg.MetricsAddr, logger)
	defer shutdownOpsServer(opsServer, cfg.ShutdownTimeout)

	logger.Info("dispatcher started",
		"tick", cfg.TickInterval.String(),
		"prefilter_limit", cfg.PrefilterLimit,
		"kafka", len(cfg.KafkaBrokers) > 0)

	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down dispatcher")
			return
		case <-ticker.C:
			runRound(ctx, eng, store, publisher, cfg.PrefilterLimit)
		}
	}
}

func runRound(ctx context.Context, eng *engine.Engine, store storage.TripStore, publisher *ingest.KafkaPublisher, limit int) {
	riders, err := store.ListPendingRiders(ctx, limit)
	if err != nil {
		eng.Logger.Error("listing pending riders failed", "error", err)
		return
	}
	if len(riders) == 0 {
		return
	}

	assignments := eng.RunDispatch(ctx, riders)
	if publisher == nil {
		return
	}
	published := make(map[string]struct{})
	for _, a := range assignments {
		if _, done := published[a.Pool.TripID]; done {
			continue
		}
		published[a.Pool.TripID] = struct{}{}
		if err := publisher.PublishAssignment(a.Pool); err != nil {
			eng.Logger.Error("publishing assignment failed",
				"trip_id", a.Pool.TripID, "error", err)
		}
	}
}

func startOpsServer(addr string, logger *slog.Logger) *http.Server {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods("GET")

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		logger.Info("ops server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("ops server stopped: %v", err)
		}
	}()
	return srv
}

func shutdownOpsServer(srv *http.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func runMigrations(dsn string) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Printf("migration db open error: %v", err)
		return
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_trips.sql"))
	if err != nil {
		log.Printf("migration read error: %v", err)
		return
	}
	if _, err := db.Exec(string(b)); err != nil {
		log.Printf("migration exec error: %v", err)
		return
	}
	log.Printf("migration applied: 001_create_trips.sql")
}
