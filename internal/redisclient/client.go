package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"agrimarket-ledger/internal/models"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/reserve_stock.lua
var reserveStockScript string

//go:embed scripts/release_stock.lua
var releaseStockScript string

// Client wraps Redis access for the ledger: a stock mirror that
// fast-rejects doomed reservations before they hit Postgres, and a
// cache-aside layer for predictions.
type Client struct {
	rdb           *redis.Client
	reserveScript *redis.Script
	releaseScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		reserveScript: redis.NewScript(reserveStockScript),
		releaseScript: redis.NewScript(releaseStockScript),
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(cropID int64) string {
	return fmt.Sprintf("crop_stock:%d", cropID)
}

func predictionKey(cropName, region string) string {
	return fmt.Sprintf("prediction:%s:%s", cropName, region)
}

// ReserveStock atomically decrements the mirrored quantity. Returns false
// only when the mirror knows the crop and its quantity cannot cover the
// request; an uninitialized mirror defers to the database.
func (c *Client) ReserveStock(ctx context.Context, cropID int64, quantity int) (bool, error) {
	result, err := c.reserveScript.Run(ctx, c.rdb, []string{stockKey(cropID)}, quantity).Result()
	if err != nil {
		return false, fmt.Errorf("reserve stock script failed: %w", err)
	}

	allowed, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type %T", result)
	}
	return allowed == 1, nil
}

// ReleaseStock atomically returns quantity to the mirror
func (c *Client) ReleaseStock(ctx context.Context, cropID int64, quantity int) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{stockKey(cropID)}, quantity).Result()
	if err != nil {
		return fmt.Errorf("release stock script failed: %w", err)
	}
	return nil
}

// InitStock seeds or resyncs the mirror from the authoritative quantity
func (c *Client) InitStock(ctx context.Context, cropID int64, available int) error {
	return c.rdb.HSet(ctx, stockKey(cropID), "available", available).Err()
}

// DropStock removes the mirror entry for a deleted listing
func (c *Client) DropStock(ctx context.Context, cropID int64) error {
	return c.rdb.Del(ctx, stockKey(cropID)).Err()
}

// SetPrediction caches a prediction with a TTL
func (c *Client) SetPrediction(ctx context.Context, p *models.Prediction, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, predictionKey(p.CropName, p.Region), data, ttl).Err()
}

// GetPrediction reads a cached prediction. Returns nil on a cache miss.
func (c *Client) GetPrediction(ctx context.Context, cropName, region string) (*models.Prediction, error) {
	data, err := c.rdb.Get(ctx, predictionKey(cropName, region)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p models.Prediction
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
