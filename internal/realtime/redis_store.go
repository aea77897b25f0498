package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/washpoint/washpoint-backend/logger"
)

// ErrPathEmpty is returned by Read when nothing is stored at the path.
var ErrPathEmpty = errors.New("realtime: nothing stored at path")

const (
	// keyPrefix namespaces all mirror keys and channels in Redis.
	keyPrefix = "rt:"

	writeTimeout = 5 * time.Second
)

// RedisStore implements Store and Subscriber on Redis. Each path maps to a
// string key holding JSON; every write also publishes the payload on a
// channel of the same name so live listeners see changes without polling.
// Streams are Redis lists capped at maxStreamEntries.
type RedisStore struct {
	rdb              *redis.Client
	log              *zap.SugaredLogger
	maxStreamEntries int
}

func NewRedisStore(rdb *redis.Client, maxStreamEntries int) *RedisStore {
	return &RedisStore{
		rdb:              rdb,
		log:              logger.GetLogger().Named("realtime"),
		maxStreamEntries: maxStreamEntries,
	}
}

func (s *RedisStore) Write(ctx context.Context, path string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal mirror value: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	key := keyPrefix + path
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, key, data, 0)
	pipe.Publish(ctx, key, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror write %s: %w", path, err)
	}
	return nil
}

func (s *RedisStore) Read(ctx context.Context, path string, dest interface{}) error {
	data, err := s.rdb.Get(ctx, keyPrefix+path).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrPathEmpty
	}
	if err != nil {
		return fmt.Errorf("mirror read %s: %w", path, err)
	}
	return json.Unmarshal(data, dest)
}

func (s *RedisStore) Remove(ctx context.Context, path string) error {
	if err := s.rdb.Del(ctx, keyPrefix+path).Err(); err != nil {
		return fmt.Errorf("mirror remove %s: %w", path, err)
	}
	return nil
}

// Append pushes value onto the list at path, trims it to the configured cap
// (oldest entries dropped), and notifies listeners.
func (s *RedisStore) Append(ctx context.Context, path string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal stream value: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	key := keyPrefix + path
	pipe := s.rdb.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.maxStreamEntries), -1)
	pipe.Publish(ctx, key, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror append %s: %w", path, err)
	}
	return nil
}

func (s *RedisStore) BatchWrite(ctx context.Context, values map[string]interface{}) error {
	if len(values) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	pipe := s.rdb.Pipeline()
	for path, value := range values {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal mirror value for %s: %w", path, err)
		}
		key := keyPrefix + path
		pipe.Set(ctx, key, data, 0)
		pipe.Publish(ctx, key, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror batch write: %w", err)
	}
	return nil
}

// Subscribe delivers every payload published on the path's channel. The
// returned cancel function must be called to release the underlying pub/sub
// connection.
func (s *RedisStore) Subscribe(ctx context.Context, path string) (<-chan []byte, func(), error) {
	pubsub := s.rdb.Subscribe(ctx, keyPrefix+path)

	// Force the subscription to be established before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", path, err)
	}

	out := make(chan []byte, 64)
	done := make(chan struct{})

	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
					s.log.Warnw("Dropped live payload, listener too slow", "path", path)
				}
			}
		}
	}()

	cancel := func() {
		close(done)
		if err := pubsub.Close(); err != nil {
			s.log.Errorw("Error closing pubsub", "path", path, "error", err)
		}
	}
	return out, cancel, nil
}
