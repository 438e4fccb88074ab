package patient

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the patient directory contract.
type Repository interface {
	// GetByID returns ErrPatientNotFound for unknown or soft-deleted rows.
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
}
