package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// CreateIfFree atomically verifies that [a.ScheduledStart, a.ScheduledEnd)
	// does not overlap any active appointment for the provider and inserts
	// the row. Returns ErrSlotUnavailable whether the overlap is seen by the
	// pre-check or only at commit time; callers cannot and need not tell the
	// two apart.
	CreateIfFree(ctx context.Context, a *Appointment) error

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// UpdateStatus persists a lifecycle transition already applied to a.
	UpdateStatus(ctx context.Context, a *Appointment) error

	// RescheduleIfFree atomically re-validates the new range against every
	// active appointment except a itself, then persists the new range.
	RescheduleIfFree(ctx context.Context, a *Appointment) error

	// HasConflict checks whether any active appointment for the provider
	// overlaps [start, end). excludeID omits one appointment from the
	// comparison set, for reschedule-in-place validation.
	HasConflict(ctx context.Context, providerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)

	// ListForProviderBetween returns active appointments for the provider
	// whose scheduled range overlaps [from, to), ordered by start.
	ListForProviderBetween(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*Appointment, error)

	List(ctx context.Context, q *ListAppointmentsQuery) (*PagedAppointments, error)
}
