package store

import (
	"context"

	"agrimarket-ledger/internal/models"
)

// UpsertPrediction replaces the record for (crop name, region) or inserts
// a new one. Last write wins, no history is kept.
func (s *Store) UpsertPrediction(ctx context.Context, p *models.Prediction) error {
	query := `
		INSERT INTO predictions (crop_name, region, predicted_price, predicted_demand)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (crop_name, region)
		DO UPDATE SET predicted_price = EXCLUDED.predicted_price,
		              predicted_demand = EXCLUDED.predicted_demand,
		              updated_at = NOW()
		RETURNING updated_at`

	return s.db.GetContext(ctx, &p.UpdatedAt, query,
		p.CropName, p.Region, p.PredictedPrice, p.PredictedDemand)
}

// GetPrediction performs an exact-match lookup on the composite key
func (s *Store) GetPrediction(ctx context.Context, cropName, region string) (*models.Prediction, error) {
	var p models.Prediction
	err := s.db.GetContext(ctx, &p,
		"SELECT * FROM predictions WHERE crop_name = $1 AND region = $2", cropName, region)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
