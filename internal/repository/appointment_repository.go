package repository

import (
	"context"
	"errors"
	"time"

	"github.com/carebook/carebook/internal/domain/appointment"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// pgExclusionViolation is raised by the appointments overlap constraint when
// two concurrent inserts race past the pre-check.
const pgExclusionViolation = "23P01"

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func activeStatuses() []appointment.Status {
	return appointment.ActiveStatuses()
}

// isOverlapViolation classifies a commit-time overlap rejection from the
// store-level exclusion constraint.
func isOverlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation
}

// CreateIfFree wraps the conflict pre-check and the insert in one
// transaction. The pre-check gives a clean early answer; the exclusion
// constraint on the table closes the remaining race between two transactions
// that both pass the check. Both paths report appointment.ErrSlotUnavailable.
func (r *AppointmentRepository) CreateIfFree(ctx context.Context, a *appointment.Appointment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&appointment.Appointment{}).
			Where("provider_id = ?", a.ProviderID).
			Where("status IN ?", activeStatuses()).
			Where("scheduled_start < ? AND scheduled_end > ?", a.ScheduledEnd, a.ScheduledStart).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return appointment.ErrSlotUnavailable
		}
		return tx.Create(a).Error
	})
	if isOverlapViolation(err) {
		return appointment.ErrSlotUnavailable
	}
	return err
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appointment.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, a *appointment.Appointment) error {
	return r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Where("id = ?", a.ID).
		Updates(map[string]any{
			"status":              a.Status,
			"cancelled_at":        a.CancelledAt,
			"cancellation_reason": a.CancellationReason,
		}).Error
}

// RescheduleIfFree re-validates the appointment's new range against every
// other active appointment inside the same transaction as the update, with
// the exclusion constraint as the commit-time backstop.
func (r *AppointmentRepository) RescheduleIfFree(ctx context.Context, a *appointment.Appointment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&appointment.Appointment{}).
			Where("provider_id = ?", a.ProviderID).
			Where("id <> ?", a.ID).
			Where("status IN ?", activeStatuses()).
			Where("scheduled_start < ? AND scheduled_end > ?", a.ScheduledEnd, a.ScheduledStart).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return appointment.ErrSlotUnavailable
		}
		return tx.Model(&appointment.Appointment{}).
			Where("id = ?", a.ID).
			Updates(map[string]any{
				"scheduled_start": a.ScheduledStart,
				"scheduled_end":   a.ScheduledEnd,
			}).Error
	})
	if isOverlapViolation(err) {
		return appointment.ErrSlotUnavailable
	}
	return err
}

func (r *AppointmentRepository) HasConflict(ctx context.Context, providerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Where("provider_id = ?", providerID).
		Where("status IN ?", activeStatuses()).
		Where("scheduled_start < ? AND scheduled_end > ?", end, start)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *AppointmentRepository) ListForProviderBetween(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*appointment.Appointment, error) {
	var appts []*appointment.Appointment
	err := r.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Where("status IN ?", activeStatuses()).
		Where("scheduled_start < ? AND scheduled_end > ?", to, from).
		Order("scheduled_start ASC").
		Find(&appts).Error
	if err != nil {
		return nil, err
	}
	return appts, nil
}

func (r *AppointmentRepository) List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	query := r.db.WithContext(ctx).Model(&appointment.Appointment{})

	if q.ProviderID != nil {
		query = query.Where("provider_id = ?", *q.ProviderID)
	}
	if q.PatientID != nil {
		query = query.Where("patient_id = ?", *q.PatientID)
	}
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	if q.OnlyActive {
		query = query.Where("status IN ?", activeStatuses())
	}
	if q.From != nil {
		query = query.Where("scheduled_start >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("scheduled_start < ?", *q.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var appts []*appointment.Appointment
	err := query.
		Order("scheduled_start ASC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&appts).Error
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	return &appointment.PagedAppointments{
		Appointments: appts,
		TotalCount:   total,
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   totalPages,
	}, nil
}
