package ledger

import (
	"context"
	"fmt"
	"time"

	"agrimarket-ledger/internal/models"
	"agrimarket-ledger/internal/redisclient"
	"agrimarket-ledger/internal/store"
	"agrimarket-ledger/internal/util"

	"go.uber.org/zap"
)

// PredictionService stores price/demand estimates keyed by (crop name,
// region), Postgres-backed with Redis cache-aside.
type PredictionService struct {
	store    *store.Store
	redis    *redisclient.Client
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewPredictionService creates a new prediction service
func NewPredictionService(st *store.Store, redis *redisclient.Client, cacheTTL time.Duration) *PredictionService {
	return &PredictionService{
		store:    st,
		redis:    redis,
		logger:   util.GetLogger(),
		cacheTTL: cacheTTL,
	}
}

// UpsertPredictionRequest represents a prediction upsert
type UpsertPredictionRequest struct {
	CropName        string `json:"crop_name" binding:"required"`
	Region          string `json:"region" binding:"required"`
	PredictedPrice  int64  `json:"predicted_price" binding:"required,min=1"`
	PredictedDemand int    `json:"predicted_demand" binding:"min=0"`
}

// Upsert overwrites the record for the composite key, or inserts it. The
// cache entry is written through so readers see the new values at once.
func (s *PredictionService) Upsert(ctx context.Context, req *UpsertPredictionRequest) (*models.Prediction, error) {
	ctx, span := util.StartSpan(ctx, "PredictionService.Upsert")
	defer span.End()

	p := &models.Prediction{
		CropName:        req.CropName,
		Region:          req.Region,
		PredictedPrice:  req.PredictedPrice,
		PredictedDemand: req.PredictedDemand,
	}

	if err := s.store.UpsertPrediction(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to upsert prediction: %w", mapStoreError(err))
	}

	util.PredictionUpsertsTotal.Inc()

	if s.redis != nil {
		if err := s.redis.SetPrediction(ctx, p, s.cacheTTL); err != nil {
			s.logger.Warn("Failed to cache prediction",
				zap.String("crop_name", p.CropName),
				zap.String("region", p.Region),
				zap.Error(err))
		}
	}

	return p, nil
}

// Get performs an exact-match lookup. No fallback or interpolation across
// regions or crop names; a miss in both cache and store is ErrNotFound.
func (s *PredictionService) Get(ctx context.Context, cropName, region string) (*models.Prediction, error) {
	ctx, span := util.StartSpan(ctx, "PredictionService.Get")
	defer span.End()

	if s.redis != nil {
		cached, err := s.redis.GetPrediction(ctx, cropName, region)
		if err != nil {
			s.logger.Warn("Prediction cache read failed", zap.Error(err))
		} else if cached != nil {
			util.PredictionLookupsTotal.WithLabelValues("cache_hit").Inc()
			return cached, nil
		}
	}

	p, err := s.store.GetPrediction(ctx, cropName, region)
	if err != nil {
		util.PredictionLookupsTotal.WithLabelValues("miss").Inc()
		return nil, fmt.Errorf("prediction %s/%s: %w", cropName, region, mapStoreError(err))
	}

	util.PredictionLookupsTotal.WithLabelValues("store_hit").Inc()

	if s.redis != nil {
		if err := s.redis.SetPrediction(ctx, p, s.cacheTTL); err != nil {
			s.logger.Warn("Failed to backfill prediction cache", zap.Error(err))
		}
	}

	return p, nil
}
