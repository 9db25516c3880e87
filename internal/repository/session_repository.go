package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"brainbox/internal/model"
)

// SessionRepository stores login and registration-gate sessions.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Find(ctx context.Context, token string) (*model.Session, error) {
	var session model.Session
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// SetVerified stores (or clears, with nil) the registration verification mark.
func (r *SessionRepository) SetVerified(ctx context.Context, token string, at *time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Session{}).Where("token = ?", token).
		Update("verified_at", at).Error; err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	if err := r.db.WithContext(ctx).Where("token = ?", token).Delete(&model.Session{}).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
