package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrRecordNotFound  = errors.New("appointment record not found")
	ErrDuplicateRecord = errors.New("appointment record already exists")
)

// Repository stores committed records. Implementations are append-only:
// there is no update or delete.
type Repository interface {
	Insert(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)

	// List returns records newest first.
	List(ctx context.Context, limit, offset int) ([]Record, error)
	Count(ctx context.Context) (int, error)
}
