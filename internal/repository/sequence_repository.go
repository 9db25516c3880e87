package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"brainbox/internal/model"
)

// SequenceRepository hands out monotonic id suffixes per user and entity.
// Callers must run it inside the same transaction as the insert that uses the id.
type SequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next reserves and returns the next suffix. existing lists the ids already in
// use and only matters the first time a counter is created.
func (r *SequenceRepository) Next(ctx context.Context, userID uint, entity string, existing func() ([]string, error)) (int64, error) {
	seq, err := r.lock(ctx, userID, entity, existing)
	if err != nil {
		return 0, err
	}
	n := seq.Next
	if err := r.store(ctx, userID, entity, n+1); err != nil {
		return 0, err
	}
	return n, nil
}

// Observe makes sure the counter stays above n, for ids that arrived from outside
// (imports).
func (r *SequenceRepository) Observe(ctx context.Context, userID uint, entity string, n int64, existing func() ([]string, error)) error {
	seq, err := r.lock(ctx, userID, entity, existing)
	if err != nil {
		return err
	}
	if seq.Next > n {
		return nil
	}
	return r.store(ctx, userID, entity, n+1)
}

func (r *SequenceRepository) lock(ctx context.Context, userID uint, entity string, existing func() ([]string, error)) (*model.IDSequence, error) {
	db := r.db.WithContext(ctx)

	var seq model.IDSequence
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND entity = ?", userID, entity).
		First(&seq).Error
	if err == nil {
		return &seq, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("read %s sequence: %w", entity, err)
	}

	ids, err := existing()
	if err != nil {
		return nil, err
	}
	seq = model.IDSequence{UserID: userID, Entity: entity, Next: nextAfter(entity, ids)}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seq).Error; err != nil {
		return nil, fmt.Errorf("create %s sequence: %w", entity, err)
	}

	// another transaction may have created the row first
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND entity = ?", userID, entity).
		First(&seq).Error; err != nil {
		return nil, fmt.Errorf("read %s sequence: %w", entity, err)
	}
	return &seq, nil
}

func (r *SequenceRepository) store(ctx context.Context, userID uint, entity string, next int64) error {
	if err := r.db.WithContext(ctx).Model(&model.IDSequence{}).
		Where("user_id = ? AND entity = ?", userID, entity).
		Update("next_value", next).Error; err != nil {
		return fmt.Errorf("advance %s sequence: %w", entity, err)
	}
	return nil
}

// nextAfter returns one past the highest suffix in ids; the default project
// occupies proj_0, so a fresh project counter starts at 1.
func nextAfter(entity string, ids []string) int64 {
	next := int64(1)
	for _, id := range ids {
		if n, ok := model.ParseID(entity, id); ok && n+1 > next {
			next = n + 1
		}
	}
	return next
}
