package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"vesselpdp/internal/opt"
)

// Redis shares cached results between service replicas.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(url string, ttl time.Duration) (*Redis, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Redis{rdb: redis.NewClient(o), ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (opt.Result, bool, error) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return opt.Result{}, false, nil
	}
	if err != nil {
		return opt.Result{}, false, err
	}
	var res opt.Result
	if err := json.Unmarshal(b, &res); err != nil {
		return opt.Result{}, false, err
	}
	return res, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, res opt.Result) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, key, b, r.ttl).Err()
}

func (r *Redis) Ping(ctx context.Context) error { return r.rdb.Ping(ctx).Err() }
func (r *Redis) Close() error                   { return r.rdb.Close() }
