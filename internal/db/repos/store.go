// Package repos provides database repository implementations
package repos

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one database handle. Inside
// Transaction every repository is bound to the same transaction.
type Store struct {
	db       *gorm.DB
	Tasks    *TaskRepository
	History  *TaskHistoryRepository
	Projects *ProjectRepository
	Users    *UserRepository
}

// NewStore creates a Store over db
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Tasks:    NewTaskRepository(db),
		History:  NewTaskHistoryRepository(db),
		Projects: NewProjectRepository(db),
		Users:    NewUserRepository(db),
	}
}

// DB returns the underlying handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn with a Store bound to a new transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return classify(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	}))
}
