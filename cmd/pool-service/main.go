package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	pcache "github.com/radieske/office-pool-platform/internal/pool-service/cache"
	phttp "github.com/radieske/office-pool-platform/internal/pool-service/http"
	kpub "github.com/radieske/office-pool-platform/internal/pool-service/producer"
	"github.com/radieske/office-pool-platform/internal/pool-service/repo"
	sharedcache "github.com/radieske/office-pool-platform/internal/shared/cache"
	"github.com/radieske/office-pool-platform/internal/shared/config"
	"github.com/radieske/office-pool-platform/internal/shared/db"
	sharedkafka "github.com/radieske/office-pool-platform/internal/shared/kafka"
	"github.com/radieske/office-pool-platform/internal/shared/logger"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres: único estado mutável compartilhado do ledger
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis: só cache de exibição (leaderboard); totais nunca passam por cache
	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writers: um por tópico de evento do ledger
	wagerWriter := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWagerPlaced)
	defer wagerWriter.Close()
	settledWriter := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchSettled)
	defer settledWriter.Close()
	resetWriter := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchReset)
	defer resetWriter.Close()

	// deps
	store := repo.NewPostgres(pg)
	publ := kpub.NewKafkaPublisher(wagerWriter, settledWriter, resetWriter)
	lb := pcache.NewLeaderboard(rdb)

	// HTTP público
	api := phttp.NewServer(log, store, publ, lb)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pg.PingContext(r.Context()); err != nil {
			http.Error(w, "pg", http.StatusServiceUnavailable)
			return
		}
		if err := rdb.Ping(r.Context()).Err(); err != nil {
			http.Error(w, "redis", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	go func() {
		addr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("metrics/health", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, metricsMux)
	}()

	log.Info("pool-service listening", zap.String("addr", fmt.Sprintf(":%s", cfg.HTTPPort)))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
