package provider

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the provider directory contract the booking engine consumes.
// Weekly templates and overrides are read-mostly reference data owned by
// profile management; nothing here mutates them.
type Repository interface {
	// GetByID returns ErrProviderNotFound for unknown or soft-deleted rows.
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)

	// GetServiceOffering returns the fee and session duration for one of the
	// provider's consultation types, or ErrServiceNotOffered.
	GetServiceOffering(ctx context.Context, providerID uuid.UUID, t ServiceType) (*ServiceOffering, error)

	// ListWeeklyAvailability returns every recurring template row for the
	// provider, all weekdays included.
	ListWeeklyAvailability(ctx context.Context, providerID uuid.UUID) ([]*WeeklyAvailability, error)

	// ListOverridesBetween returns overrides whose [StartsAt, EndsAt) range
	// overlaps [from, to).
	ListOverridesBetween(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*ScheduleOverride, error)
}
