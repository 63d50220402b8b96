package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/orderdesk/pkg/catalog"
	"github.com/example/orderdesk/pkg/config"
	"github.com/example/orderdesk/pkg/models"
	"github.com/go-redis/redis/v8"
)

const (
	catalogKey = "orderdesk:snapshot:catalog"
	ordersKey  = "orderdesk:snapshot:orders"
)

// ErrCacheMiss is returned when no snapshot is cached.
var ErrCacheMiss = errors.New("snapshot not cached")

// RedisRepository keeps the last good catalog and order snapshots so a
// restarted dashboard has something to show before its first refresh.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		ttl: cfg.TTL,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func (r *RedisRepository) setJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

func (r *RedisRepository) getJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

type catalogSnapshot struct {
	Items      []models.MenuItem `json:"items"`
	Categories []models.Category `json:"categories"`
	SavedAt    time.Time         `json:"saved_at"`
}

type ordersSnapshot struct {
	Orders  []models.Order `json:"orders"`
	SavedAt time.Time      `json:"saved_at"`
}

func (r *RedisRepository) SaveCatalog(ctx context.Context, c catalog.Catalog) error {
	snap := catalogSnapshot{Items: c.Items(), Categories: c.Categories(), SavedAt: time.Now().UTC()}
	if err := r.setJSON(ctx, catalogKey, snap); err != nil {
		return fmt.Errorf("failed to cache catalog: %w", err)
	}
	return nil
}

func (r *RedisRepository) LoadCatalog(ctx context.Context) (catalog.Catalog, time.Time, error) {
	var snap catalogSnapshot
	if err := r.getJSON(ctx, catalogKey, &snap); err != nil {
		return catalog.Catalog{}, time.Time{}, err
	}
	return catalog.NewCatalog(snap.Items, snap.Categories), snap.SavedAt, nil
}

func (r *RedisRepository) SaveOrders(ctx context.Context, orders []models.Order) error {
	snap := ordersSnapshot{Orders: orders, SavedAt: time.Now().UTC()}
	if err := r.setJSON(ctx, ordersKey, snap); err != nil {
		return fmt.Errorf("failed to cache orders: %w", err)
	}
	return nil
}

func (r *RedisRepository) LoadOrders(ctx context.Context) ([]models.Order, time.Time, error) {
	var snap ordersSnapshot
	if err := r.getJSON(ctx, ordersKey, &snap); err != nil {
		return nil, time.Time{}, err
	}
	return snap.Orders, snap.SavedAt, nil
}
