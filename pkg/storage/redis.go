package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dshills/flowedit/pkg/flow"
)

const (
	redisFlowKeyPrefix = "flowedit:flow:"
	redisFlowListKey   = "flowedit:flows"
)

// RedisOptions configures a Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisRepository implements FlowRepository using Redis. Each record is a
// JSON string; a set indexes the stored ids.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository connects to Redis and verifies the connection.
func NewRedisRepository(ctx context.Context, opts RedisOptions) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisRepository{client: client}, nil
}

// NewRedisRepositoryWithClient creates a repository using an existing client.
func NewRedisRepositoryWithClient(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) flowKey(id string) string {
	return redisFlowKeyPrefix + id
}

// Save writes the record and indexes its id in one transaction.
func (r *RedisRepository) Save(ctx context.Context, rec *flow.Record) error {
	if err := checkRecord(rec); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal flow: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.flowKey(rec.ID), data, 0)
	pipe.SAdd(ctx, redisFlowListKey, rec.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save flow: %w", err)
	}
	return nil
}

// Load retrieves a record by id.
func (r *RedisRepository) Load(ctx context.Context, id string) (*flow.Record, error) {
	data, err := r.client.Get(ctx, r.flowKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get flow: %w", err)
	}

	var rec flow.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal flow: %w", err)
	}
	return &rec, nil
}

// Delete removes a record and its index entry.
func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	exists, err := r.client.Exists(ctx, r.flowKey(id)).Result()
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.flowKey(id))
	pipe.SRem(ctx, redisFlowListKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete flow: %w", err)
	}
	return nil
}

// List summarizes every indexed record. Index entries whose record is gone
// are removed.
func (r *RedisRepository) List(ctx context.Context) ([]Summary, error) {
	ids, err := r.client.SMembers(ctx, redisFlowListKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list flow ids: %w", err)
	}

	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		rec, err := r.Load(ctx, id)
		if errors.Is(err, ErrFlowNotFound) {
			// Stale reference, clean up
			r.client.SRem(ctx, redisFlowListKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, summarize(rec))
	}

	sortSummaries(out)
	return out, nil
}

// Close releases the Redis connection.
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
