package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stwalsh4118/reelplay/internal/models"
	"gorm.io/gorm"
)

// ReelRepository handles database operations for reels and their segments
type ReelRepository struct {
	db *DB
}

// NewReelRepository creates a new reel repository
func NewReelRepository(db *DB) *ReelRepository {
	return &ReelRepository{db: db}
}

func orderedSegments(tx *gorm.DB) *gorm.DB {
	return tx.Order("position ASC")
}

// Create inserts a reel and its segments in one transaction
func (r *ReelRepository) Create(ctx context.Context, reel *models.Reel) error {
	err := r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Omit("Segments").Create(reel).Error; err != nil {
			return MapGormError(err)
		}
		return createSegments(tx, reel)
	})
	if err != nil {
		return fmt.Errorf("failed to create reel: %w", err)
	}
	return nil
}

// GetByID retrieves a reel by its UUID with segments in position order
func (r *ReelRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Reel, error) {
	var reel models.Reel
	result := r.db.WithContext(ctx).
		Preload("Segments", orderedSegments).
		Where("id = ?", id.String()).
		First(&reel)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &reel, nil
}

// List retrieves all reels ordered by creation date (newest first)
func (r *ReelRepository) List(ctx context.Context) ([]*models.Reel, error) {
	var reels []*models.Reel
	result := r.db.WithContext(ctx).
		Preload("Segments", orderedSegments).
		Order("created_at DESC").
		Find(&reels)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list reels: %w", MapGormError(result.Error))
	}
	return reels, nil
}

// Update replaces a reel's settings and segments
func (r *ReelRepository) Update(ctx context.Context, reel *models.Reel) error {
	reel.UpdatedAt = time.Now().UTC()

	err := r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&models.Reel{}).
			Where("id = ?", reel.ID.String()).
			Select("title", "audio_url", "offset_ms", "music_gain", "video_gain", "loop", "interval_ms", "updated_at").
			Updates(reel)
		if result.Error != nil {
			return MapGormError(result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		if err := tx.Where("reel_id = ?", reel.ID.String()).Delete(&models.ReelSegment{}).Error; err != nil {
			return MapGormError(err)
		}
		return createSegments(tx, reel)
	})
	if err != nil {
		return fmt.Errorf("failed to update reel: %w", err)
	}
	return nil
}

// Delete deletes a reel and its segments
func (r *ReelRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("reel_id = ?", id.String()).Delete(&models.ReelSegment{}).Error; err != nil {
			return MapGormError(err)
		}
		result := tx.Where("id = ?", id.String()).Delete(&models.Reel{})
		if result.Error != nil {
			return MapGormError(result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete reel: %w", err)
	}
	return nil
}

// createSegments stores reel.Segments, renumbering positions to slice order
func createSegments(tx *gorm.DB, reel *models.Reel) error {
	if len(reel.Segments) == 0 {
		return nil
	}
	reel.Segments = lo.Map(reel.Segments, func(seg models.ReelSegment, i int) models.ReelSegment {
		if seg.ID == uuid.Nil {
			seg.ID = uuid.New()
		}
		seg.ReelID = reel.ID
		seg.Position = i
		return seg
	})
	if err := tx.Create(&reel.Segments).Error; err != nil {
		return MapGormError(err)
	}
	return nil
}
