package ledger

import (
	"context"
	"fmt"

	"agrimarket-ledger/internal/models"
	"agrimarket-ledger/internal/redisclient"
	"agrimarket-ledger/internal/store"
	"agrimarket-ledger/internal/util"

	"go.uber.org/zap"
)

// CropService handles listings. Quantity is never writable directly;
// only order placement and cancellation move it.
type CropService struct {
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewCropService creates a new crop service
func NewCropService(st *store.Store, redis *redisclient.Client) *CropService {
	return &CropService{
		store:  st,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// AddCropRequest represents a new listing
type AddCropRequest struct {
	FarmerID     int64  `json:"farmer_id" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Quantity     int    `json:"quantity" binding:"min=0"`
	UnitPrice    int64  `json:"unit_price" binding:"required,min=1"`
	QualityGrade string `json:"quality_grade" binding:"omitempty,oneof=A B C"`
	ImageURL     string `json:"image_url,omitempty"`
	Location     string `json:"location,omitempty"`
	Region       string `json:"region,omitempty"`
}

// AddCrop creates a listing owned by a farmer. The quality grade comes
// from the external grading service and is stored as given.
func (s *CropService) AddCrop(ctx context.Context, req *AddCropRequest) (*models.Crop, error) {
	ctx, span := util.StartSpan(ctx, "CropService.AddCrop")
	defer span.End()

	if _, err := s.store.GetUserByID(ctx, req.FarmerID); err != nil {
		return nil, fmt.Errorf("farmer %d: %w", req.FarmerID, mapStoreError(err))
	}

	grade := req.QualityGrade
	if grade == "" {
		grade = models.GradeA
	}

	crop := &models.Crop{
		FarmerID:     req.FarmerID,
		Name:         req.Name,
		Quantity:     req.Quantity,
		UnitPrice:    req.UnitPrice,
		QualityGrade: grade,
		ImageURL:     req.ImageURL,
		Location:     req.Location,
		Region:       req.Region,
	}

	if err := s.store.CreateCrop(ctx, crop); err != nil {
		return nil, fmt.Errorf("failed to create crop: %w", mapStoreError(err))
	}

	if s.redis != nil {
		if err := s.redis.InitStock(ctx, crop.ID, crop.Quantity); err != nil {
			s.logger.Warn("Failed to seed stock mirror for new crop",
				zap.Int64("crop_id", crop.ID), zap.Error(err))
		}
	}

	s.logger.Info("Crop listed",
		zap.Int64("crop_id", crop.ID),
		zap.Int64("farmer_id", crop.FarmerID),
		zap.Int("quantity", crop.Quantity))

	return crop, nil
}

// GetCrop retrieves a listing with its farmer resolved read-side
func (s *CropService) GetCrop(ctx context.Context, id int64) (*models.Crop, *models.User, error) {
	crop, err := s.store.GetCropByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("crop %d: %w", id, mapStoreError(err))
	}

	farmer, err := s.store.GetUserByID(ctx, crop.FarmerID)
	if err != nil {
		return nil, nil, fmt.Errorf("farmer %d: %w", crop.FarmerID, mapStoreError(err))
	}

	return crop, farmer, nil
}

// ListCrops retrieves all listings
func (s *CropService) ListCrops(ctx context.Context) ([]models.Crop, error) {
	crops, err := s.store.GetCrops(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return crops, nil
}

// UpdateCropRequest represents a listing update. Owner and quantity are
// immutable here.
type UpdateCropRequest struct {
	Name         string `json:"name" binding:"required"`
	UnitPrice    int64  `json:"unit_price" binding:"required,min=1"`
	QualityGrade string `json:"quality_grade" binding:"required,oneof=A B C"`
	ImageURL     string `json:"image_url,omitempty"`
	Location     string `json:"location,omitempty"`
	Region       string `json:"region,omitempty"`
}

// UpdateCrop updates listing fields. A changed unit price does not touch
// the frozen total of any existing order.
func (s *CropService) UpdateCrop(ctx context.Context, id int64, req *UpdateCropRequest) (*models.Crop, error) {
	crop, err := s.store.GetCropByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("crop %d: %w", id, mapStoreError(err))
	}

	crop.Name = req.Name
	crop.UnitPrice = req.UnitPrice
	crop.QualityGrade = req.QualityGrade
	crop.ImageURL = req.ImageURL
	crop.Location = req.Location
	crop.Region = req.Region

	updated, err := s.store.UpdateCropListing(ctx, crop)
	if err != nil {
		return nil, fmt.Errorf("crop %d: %w", id, mapStoreError(err))
	}
	return updated, nil
}

// DeleteCrop removes a listing. Refused while open orders still
// reference the crop.
func (s *CropService) DeleteCrop(ctx context.Context, id int64) error {
	if _, err := s.store.GetCropByID(ctx, id); err != nil {
		return fmt.Errorf("crop %d: %w", id, mapStoreError(err))
	}

	open, err := s.store.CountOpenOrdersForCrop(ctx, id)
	if err != nil {
		return mapStoreError(err)
	}
	if open > 0 {
		return fmt.Errorf("crop %d has %d open orders: %w", id, open, ErrCropReferenced)
	}

	if err := s.store.DeleteCrop(ctx, id); err != nil {
		return mapStoreError(err)
	}

	if s.redis != nil {
		if err := s.redis.DropStock(ctx, id); err != nil {
			s.logger.Warn("Failed to drop stock mirror entry",
				zap.Int64("crop_id", id), zap.Error(err))
		}
	}

	s.logger.Info("Crop deleted", zap.Int64("crop_id", id))
	return nil
}
