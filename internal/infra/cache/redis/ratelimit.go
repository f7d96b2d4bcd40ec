package redis

import (
	"context"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "staybook:rl:"

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// FixedWindowLimiter counts hits per key in windows aligned to Window.
type FixedWindowLimiter struct {
	Client goredis.Cmdable
	Limit  int
	Window time.Duration
	Now    func() time.Time
}

func (l FixedWindowLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	window := l.Window
	if window <= 0 {
		window = time.Minute
	}
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	bucket := now.UnixNano() / int64(window)
	windowEnd := time.Unix(0, (bucket+1)*int64(window))
	redisKey := rateLimitPrefix + key + ":" + strconv.FormatInt(bucket, 10)

	var incr *goredis.IntCmd
	_, err := l.Client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		incr = p.Incr(ctx, redisKey)
		p.ExpireAt(ctx, redisKey, windowEnd.Add(time.Second))
		return nil
	})
	if err != nil {
		return Decision{}, err
	}
	count := int(incr.Val())
	d := Decision{Limit: l.Limit, Remaining: l.Limit - count}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	d.Allowed = count <= l.Limit
	if !d.Allowed {
		d.RetryAfter = windowEnd.Sub(now)
	}
	return d, nil
}
