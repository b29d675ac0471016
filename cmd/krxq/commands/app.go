package commands

import (
	"context"
	"fmt"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/external/krx"
	"github.com/wonny/krxquery/internal/external/naver"
	"github.com/wonny/krxquery/internal/query"
	"github.com/wonny/krxquery/pkg/config"
	"github.com/wonny/krxquery/pkg/database"
	"github.com/wonny/krxquery/pkg/httputil"
	"github.com/wonny/krxquery/pkg/logger"
	"github.com/wonny/krxquery/pkg/redis"
)

const redisPrefix = "krxquery"

// app holds the wired dependencies shared by every command
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	redis   *redis.Client
	service *query.Service
}

// newApp loads config and wires config → logger → redis → http → sources → query
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if noCache {
		cfg.Redis.Enabled = false
	}

	log := logger.New(cfg)

	rc, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	krxHTTP := httputil.New(cfg, log).WithRate(cfg.KRX.RatePerSec)
	naverHTTP := httputil.New(cfg, log).WithRate(cfg.Naver.RatePerSec)

	krxClient := krx.NewClient(krxHTTP, log, cfg.KRX.BaseURL)
	naverClient := naver.NewClient(naverHTTP, log, cfg.Naver.BaseURL, cfg.Naver.ChartURL)

	if rc.Enabled() {
		// several krxq processes share one KRX budget through Redis
		limiter := redis.NewRateLimiter(rc, redisPrefix)
		krxHTTP.WithRateLimiter(limiter, redis.KRXRateLimit.PerSecond(cfg.KRX.RatePerSec))
		naverHTTP.WithRateLimiter(limiter, redis.NaverRateLimit.PerSecond(cfg.Naver.RatePerSec))
		krxClient.WithCache(redis.NewCache(rc, redisPrefix, cfg.Redis.CacheTTL))
		log.Debug("Redis cache and rate limiter enabled")
	}

	return &app{
		cfg:     cfg,
		log:     log,
		redis:   rc,
		service: query.NewService(krxClient, naverClient, dates.SystemClock{}),
	}, nil
}

// openDB connects to PostgreSQL for the store-backed commands
func (a *app) openDB(ctx context.Context) (*database.DB, error) {
	db, err := database.New(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.log.Info("Connected to database")
	return db, nil
}

func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
}
