package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"imgbridge/pkg/apperrors"
)

const DefaultListLimit = 10

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// CreateGeneration assigns a fresh id and creation timestamp, stamps every
// image row with the parent id, and writes parent plus children in one
// transaction. On return gen.ID, gen.CreatedAt, and gen.Images are populated.
func (r *Repo) CreateGeneration(ctx context.Context, gen *Generation, images []GenerationImage) (*Generation, error) {
	gen.ID = uuid.NewString()
	gen.CreatedAt = time.Now().UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(gen).Error; err != nil {
			return err
		}
		for i := range images {
			images[i].GenerationID = gen.ID
		}
		if len(images) > 0 {
			if err := tx.Create(&images).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePersistence, "create generation failed")
	}

	gen.Images = images
	return gen, nil
}

func (r *Repo) GetGeneration(ctx context.Context, id string) (*Generation, error) {
	var gen Generation
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("index_num ASC")
		}).
		First(&gen, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "generation %s not found", id)
		}
		return nil, apperrors.Wrap(err, apperrors.CodePersistence, "get generation failed")
	}
	return &gen, nil
}

// MarkSelected writes the selection columns. Index validation is the
// selection workflow's job; this layer records what it is told.
func (r *Repo) MarkSelected(ctx context.Context, id string, index int, storageKey, publicURL string) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&Generation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"selected_index": index,
			"selected_at":    now,
			"storage_key":    storageKey,
			"public_url":     publicURL,
		})
	if res.Error != nil {
		return apperrors.Wrap(res.Error, apperrors.CodePersistence, "mark selected failed")
	}
	if res.RowsAffected == 0 {
		return apperrors.Newf(apperrors.CodeNotFound, "generation %s not found", id)
	}
	return nil
}

func (r *Repo) ListGenerations(ctx context.Context, limit int) ([]Generation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var gens []Generation
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("index_num ASC")
		}).
		Order("created_at DESC").
		Limit(limit).
		Find(&gens).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePersistence, "list generations failed")
	}
	return gens, nil
}

type groupedCost struct {
	Key   string
	Total float64
}

// GetCosts sums cost over rows created at or after since (all rows when
// since is nil), grouped by provider and by model.
func (r *Repo) GetCosts(ctx context.Context, since *time.Time) (*CostSummary, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&Generation{})
		if since != nil {
			q = q.Where("created_at >= ?", *since)
		}
		return q
	}

	summary := &CostSummary{
		ByProvider: make(map[string]float64),
		ByModel:    make(map[string]float64),
		Since:      since,
	}

	var total struct {
		Total float64
		Count int64
	}
	if err := base().
		Select("COALESCE(SUM(cost), 0) AS total, COUNT(*) AS count").
		Scan(&total).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePersistence, "cost query failed")
	}
	summary.Total = total.Total
	summary.GenerationCount = total.Count

	var byProvider []groupedCost
	if err := base().
		Select("provider AS key, SUM(cost) AS total").
		Group("provider").
		Scan(&byProvider).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePersistence, "cost query failed")
	}
	for _, g := range byProvider {
		summary.ByProvider[g.Key] = g.Total
	}

	var byModel []groupedCost
	if err := base().
		Select("model AS key, SUM(cost) AS total").
		Group("model").
		Scan(&byModel).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePersistence, "cost query failed")
	}
	for _, g := range byModel {
		summary.ByModel[g.Key] = g.Total
	}

	return summary, nil
}
