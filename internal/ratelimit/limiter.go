package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/invoiced/internal/clock"
	"github.com/smallbiznis/invoiced/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyPaymentWrite = "payments:write:%s"

type LimiterParams struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Clock   clock.Clock
	Runtime *config.RuntimeConfigHolder
}

// PaymentLimiter throttles payment writes per client. Rate and burst come
// from the runtime config on every decision, so hot reloads apply
// immediately. With a Redis address configured the bucket is shared across
// instances; otherwise it is process-local.
type PaymentLimiter struct {
	bucket  Bucket
	log     *zap.Logger
	runtime *config.RuntimeConfigHolder
}

func NewPaymentLimiter(p LimiterParams) *PaymentLimiter {
	log := p.Log.Named("ratelimit")

	var bucket Bucket
	if addr := strings.TrimSpace(p.Cfg.RedisAddr); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: strings.TrimSpace(p.Cfg.RedisPassword),
		})
		bucket = NewRedisBucket(client)
		log.Info("payment rate limiter backed by redis", zap.String("addr", addr))
	} else {
		bucket = NewMemoryBucket(p.Clock)
		log.Info("payment rate limiter is process-local")
	}

	return &PaymentLimiter{
		bucket:  bucket,
		log:     log,
		runtime: p.Runtime,
	}
}

// Allow decides whether the caller identified by clientKey may record a
// payment right now. Limiter failures fail open; rejecting writes because
// Redis is down would hurt more than a burst slipping through.
func (l *PaymentLimiter) Allow(ctx context.Context, clientKey string) Result {
	cfg := l.runtime.Get()
	key := fmt.Sprintf(keyPaymentWrite, strings.TrimSpace(clientKey))

	result, err := l.bucket.Allow(ctx, key, cfg.PaymentRatePerSec, cfg.PaymentBurst)
	if err != nil {
		l.log.Warn("rate limit check failed", zap.Error(err))
		return Result{Allowed: true}
	}
	return result
}
