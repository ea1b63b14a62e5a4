package app

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/ledgerbooks/internal/analytics"
	"github.com/odyssey-erp/ledgerbooks/internal/ledger"
)

// NewReportService wires the analytics service shared by the HTTP server
// and the worker. A zero REPORT_CACHE_TTL disables the Redis cache.
func NewReportService(cfg *Config, source ledger.Source, redisClient *redis.Client, reg prometheus.Registerer, logger *slog.Logger) (*analytics.Service, error) {
	metrics, err := analytics.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	var cache *analytics.Cache
	if redisClient != nil && cfg.ReportCacheTTL > 0 {
		cache = analytics.NewCache(redisClient, cfg.ReportCacheTTL)
	} else {
		logger.Info("report cache disabled")
	}
	return analytics.NewService(source, cache, analytics.Options{
		Chart:        cfg.Chart(),
		Metrics:      metrics,
		Logger:       logger,
		BuildTimeout: cfg.AppRequestTimeout,
	}), nil
}
