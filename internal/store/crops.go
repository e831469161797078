package store

import (
	"context"

	"agrimarket-ledger/internal/models"
)

// CreateCrop inserts a new listing at version 1
func (s *Store) CreateCrop(ctx context.Context, crop *models.Crop) error {
	query := `
		INSERT INTO crops (farmer_id, name, quantity, unit_price, quality_grade, image_url, location, region, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)
		RETURNING id, version, created_at, updated_at`

	return s.db.GetContext(ctx, crop, query,
		crop.FarmerID, crop.Name, crop.Quantity, crop.UnitPrice,
		crop.QualityGrade, crop.ImageURL, crop.Location, crop.Region)
}

// GetCropByID retrieves a crop by ID
func (s *Store) GetCropByID(ctx context.Context, id int64) (*models.Crop, error) {
	var crop models.Crop
	err := s.db.GetContext(ctx, &crop, "SELECT * FROM crops WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	return &crop, nil
}

// GetCrops retrieves all listings
func (s *Store) GetCrops(ctx context.Context) ([]models.Crop, error) {
	var crops []models.Crop
	err := s.db.SelectContext(ctx, &crops, "SELECT * FROM crops ORDER BY id")
	return crops, err
}

// UpdateCropListing updates listing fields. Owner and quantity are not
// writable here: quantity only moves through reservation and release.
func (s *Store) UpdateCropListing(ctx context.Context, crop *models.Crop) (*models.Crop, error) {
	var updated models.Crop
	err := s.db.GetContext(ctx, &updated, `
		UPDATE crops
		SET name = $1, unit_price = $2, quality_grade = $3, image_url = $4,
		    location = $5, region = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING *`,
		crop.Name, crop.UnitPrice, crop.QualityGrade, crop.ImageURL,
		crop.Location, crop.Region, crop.ID)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ReserveCropStock attempts the versioned check-and-reserve. It succeeds
// only if the version still matches and enough quantity remains, so a
// lost race and an insufficient-stock condition both come back as zero
// rows and the caller re-reads to tell them apart.
func (s *Store) ReserveCropStock(ctx context.Context, cropID int64, quantity int, version int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE crops
		SET quantity = quantity - $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3 AND quantity >= $1`,
		quantity, cropID, version)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// ReleaseCropStock returns reserved quantity to a listing. Unconditional:
// releases are never lost to a version race, they just bump it.
func (s *Store) ReleaseCropStock(ctx context.Context, cropID int64, quantity int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE crops
		SET quantity = quantity + $1, version = version + 1, updated_at = NOW()
		WHERE id = $2`,
		quantity, cropID)
	return err
}

// CountOpenOrdersForCrop counts orders still referencing a crop in a
// non-terminal state. Listings with open orders cannot be deleted.
func (s *Store) CountOpenOrdersForCrop(ctx context.Context, cropID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM orders
		WHERE crop_id = $1 AND status IN ($2, $3)`,
		cropID, models.OrderStatusPending, models.OrderStatusConfirmed)
	return count, err
}

// DeleteCrop removes a listing
func (s *Store) DeleteCrop(ctx context.Context, cropID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM crops WHERE id = $1", cropID)
	return err
}
