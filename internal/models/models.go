// package models defines the data model for the catalog track cache
package models

import "time"

// Model is implemented by every cached entity.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error
}

// SoftDeleter is a [Model] removed by stamping deleted_at rather than deleting the row.
type SoftDeleter interface {
	Model
	DeletedAt() *time.Time
	IsDeleted() bool
}

// Repository is the data access contract for one model type.
//
// Get and List never return soft-deleted rows.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error)
}
