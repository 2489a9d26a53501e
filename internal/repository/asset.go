package repository

import (
	"context"

	"atelier/internal/models"

	"gorm.io/gorm"
)

// AssetRepository reads generated assets. Assets are written by the
// generation pipeline, never by the feed.
type AssetRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Asset, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Asset, error)
}

type assetRepository struct {
	db *gorm.DB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *gorm.DB) AssetRepository {
	return &assetRepository{db: db}
}

func (r *assetRepository) GetByID(ctx context.Context, id uint) (*models.Asset, error) {
	var asset models.Asset
	if err := r.db.WithContext(ctx).First(&asset, id).Error; err != nil {
		return nil, notFoundOr(err, "Asset", id)
	}
	return &asset, nil
}

func (r *assetRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Asset, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var assets []models.Asset
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&assets).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return assets, nil
}
