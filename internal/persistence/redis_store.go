package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/formflow/pkg/api"
)

// RedisBackend is a StorageBackend on Redis. Every session is one hash:
//
//	<prefix>session:<key>  => HASH
//	    current            => current step
//	    extra              => gob-encoded extra data
//	    data:<step>        => gob-encoded step data
//	    files:<step>       => gob-encoded file references
//
// Writes are single HSET commands, so each step is updated atomically. With
// a TTL the hash expires after that long without writes.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var (
	_ api.StorageBackend = (*RedisBackend)(nil)
	_ api.Storage        = (*redisStorage)(nil)
)

// NewRedisBackend creates a RedisBackend.
// prefix is optional but recommended (e.g. "formflow:").
func NewRedisBackend(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisBackend {
	if prefix == "" {
		prefix = "formflow:"
	}
	return &RedisBackend{client: client, prefix: prefix, ttl: ttl}
}

func (b *RedisBackend) Storage(key string) api.Storage {
	return &redisStorage{b: b, key: b.prefix + "session:" + key}
}

type redisStorage struct {
	b   *RedisBackend
	key string
}

const (
	fieldCurrent = "current"
	fieldExtra   = "extra"
)

func dataField(step string) string  { return "data:" + step }
func filesField(step string) string { return "files:" + step }

func (r *redisStorage) get(ctx context.Context, field string) ([]byte, error) {
	payload, err := r.b.client.HGet(ctx, r.key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return payload, err
}

func (r *redisStorage) set(ctx context.Context, field string, value any) error {
	if value == nil {
		return r.b.client.HDel(ctx, r.key, field).Err()
	}
	pipe := r.b.client.TxPipeline()
	pipe.HSet(ctx, r.key, field, value)
	if r.b.ttl > 0 {
		pipe.Expire(ctx, r.key, r.b.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisStorage) CurrentStep(ctx context.Context) (string, error) {
	payload, err := r.get(ctx, fieldCurrent)
	return string(payload), err
}

func (r *redisStorage) SetCurrentStep(ctx context.Context, step string) error {
	return r.set(ctx, fieldCurrent, step)
}

func (r *redisStorage) StepData(ctx context.Context, step string) (api.Values, error) {
	payload, err := r.get(ctx, dataField(step))
	if err != nil {
		return nil, err
	}
	return decodeStepData(payload)
}

func (r *redisStorage) SetStepData(ctx context.Context, step string, data api.Values) error {
	return r.setEncoded(ctx, dataField(step), valuesOrNil(data))
}

func (r *redisStorage) StepFiles(ctx context.Context, step string) (api.Files, error) {
	payload, err := r.get(ctx, filesField(step))
	if err != nil {
		return nil, err
	}
	return decodeStepFiles(payload)
}

func (r *redisStorage) SetStepFiles(ctx context.Context, step string, files api.Files) error {
	return r.setEncoded(ctx, filesField(step), filesOrNil(files))
}

func (r *redisStorage) ExtraData(ctx context.Context) (map[string]any, error) {
	payload, err := r.get(ctx, fieldExtra)
	if err != nil {
		return nil, err
	}
	return decodeExtra(payload)
}

func (r *redisStorage) SetExtraData(ctx context.Context, extra map[string]any) error {
	return r.setEncoded(ctx, fieldExtra, extraOrNil(extra))
}

func (r *redisStorage) setEncoded(ctx context.Context, field string, v any) error {
	payload, err := EncodeValue(v)
	if err != nil {
		return err
	}
	if payload == nil {
		return r.set(ctx, field, nil)
	}
	return r.set(ctx, field, payload)
}

func (r *redisStorage) Reset(ctx context.Context) error {
	return r.b.client.Del(ctx, r.key).Err()
}
