package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories over one connection or transaction.
type Store struct {
	db        *gorm.DB
	Users     *UserRepository
	Sessions  *SessionRepository
	Projects  *ProjectRepository
	Tasks     *TaskRepository
	Settings  *SettingsRepository
	Sequences *SequenceRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:        db,
		Users:     NewUserRepository(db),
		Sessions:  NewSessionRepository(db),
		Projects:  NewProjectRepository(db),
		Tasks:     NewTaskRepository(db),
		Settings:  NewSettingsRepository(db),
		Sequences: NewSequenceRepository(db),
	}
}

// Transaction runs fn against a Store bound to one transaction. Any error from
// fn rolls everything back. Nested calls use savepoints.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
