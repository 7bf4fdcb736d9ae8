package dataset

import (
	"context"
	"time"

	"github.com/go-redis/redis/v7"
)

// RedisLoader reads the dataset from a single Redis key holding a JSON array
// of observations.
type RedisLoader struct {
	client *redis.Client
	key    string
}

type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	Key         string
	DialTimeout time.Duration
}

func NewRedisLoader(options RedisOptions) *RedisLoader {
	return &RedisLoader{
		client: redis.NewClient(&redis.Options{
			Addr:        options.Addr,
			Password:    options.Password,
			DB:          options.DB,
			DialTimeout: options.DialTimeout,
		}),
		key: options.Key,
	}
}

func (l *RedisLoader) Load(ctx context.Context) ([]Observation, error) {
	b, err := l.client.WithContext(ctx).Get(l.key).Bytes()
	if err == redis.Nil {
		return nil, unavailable("redis key %q does not exist", l.key)
	} else if err != nil {
		return nil, unavailable("reading redis key %q: %v", l.key, err)
	}

	records, err := Decode(b, JSON)
	if err != nil {
		return nil, unavailable("redis key %q: %v", l.key, err)
	}
	return records, nil
}

func (l *RedisLoader) Close() error {
	return l.client.Close()
}
