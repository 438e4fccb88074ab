package appointment

import (
	"fmt"
	"time"

	"github.com/carebook/carebook/internal/domain/provider"
	"github.com/google/uuid"
)

// State transition possibilities:
//
//	pending_payment → confirmed → checked_in → in_progress → completed
//	any active state → cancelled (records reason + timestamp)
//	any active state → no_show (administrative)
//
// Rescheduling mutates the time range but not the status, and is permitted
// only while confirmed.
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusConfirmed      Status = "confirmed"
	StatusCheckedIn      Status = "checked_in"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
	StatusNoShow         Status = "no_show"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPendingPayment, StatusConfirmed, StatusCheckedIn, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// IsActive reports whether the status counts for conflict detection. A
// pending-payment hold blocks the slot just like a confirmed visit does.
func (s Status) IsActive() bool {
	switch s {
	case StatusPendingPayment, StatusConfirmed, StatusCheckedIn, StatusInProgress:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// ActiveStatuses is the set of statuses that occupy a provider's time range.
func ActiveStatuses() []Status {
	return []Status{StatusPendingPayment, StatusConfirmed, StatusCheckedIn, StatusInProgress}
}

// StateTransitionError reports a rejected lifecycle move. It matches
// ErrInvalidStatusTransition under errors.Is.
type StateTransitionError struct {
	From Status
	To   Status
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("invalid appointment status transition: %s -> %s", e.From, e.To)
}

func (e *StateTransitionError) Is(target error) bool {
	return target == ErrInvalidStatusTransition
}

type Appointment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	ProviderID uuid.UUID `gorm:"column:provider_id;type:uuid;not null;index"`
	PatientID  uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`

	ScheduledStart time.Time `gorm:"column:scheduled_start;not null;index"`
	ScheduledEnd   time.Time `gorm:"column:scheduled_end;not null"`
	DurationMins   int       `gorm:"column:duration_mins;not null"`

	ServiceType provider.ServiceType `gorm:"column:service_type;type:varchar(50);not null;index"`
	FeeCents    int64                `gorm:"column:fee_cents;not null"`

	Status Status `gorm:"column:status;type:varchar(30);not null;default:'pending_payment';index"`

	// Cancellation tracking. Rows are never deleted; cancelling is a status
	// change that frees the slot.
	CancelledAt        *time.Time `gorm:"column:cancelled_at"`
	CancellationReason string     `gorm:"column:cancellation_reason;type:text"`
}

func (Appointment) TableName() string {
	return "scheduling.appointments"
}

func (a *Appointment) CanTransitionTo(newStatus Status) bool {
	allowed := map[Status][]Status{
		StatusPendingPayment: {StatusConfirmed, StatusCancelled, StatusNoShow},
		StatusConfirmed:      {StatusCheckedIn, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow},
		StatusCheckedIn:      {StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow},
		StatusInProgress:     {StatusCompleted, StatusCancelled, StatusNoShow},
		StatusCompleted:      {},
		StatusCancelled:      {},
		StatusNoShow:         {},
	}

	for _, s := range allowed[a.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

func (a *Appointment) transition(to Status) error {
	if !a.CanTransitionTo(to) {
		return &StateTransitionError{From: a.Status, To: to}
	}
	a.Status = to
	return nil
}

// Confirm marks the payment-completed transition.
func (a *Appointment) Confirm() error {
	return a.transition(StatusConfirmed)
}

func (a *Appointment) CheckIn() error {
	return a.transition(StatusCheckedIn)
}

func (a *Appointment) StartVisit() error {
	return a.transition(StatusInProgress)
}

func (a *Appointment) Complete() error {
	return a.transition(StatusCompleted)
}

func (a *Appointment) MarkNoShow() error {
	return a.transition(StatusNoShow)
}

func (a *Appointment) Cancel(reason string, at time.Time) error {
	if err := a.transition(StatusCancelled); err != nil {
		return err
	}
	a.CancelledAt = &at
	a.CancellationReason = reason
	return nil
}

// Reschedule moves the appointment to a new range of the same duration. Only
// confirmed appointments may move; re-validating the new range against every
// other appointment is the caller's responsibility.
func (a *Appointment) Reschedule(newStart time.Time) error {
	if a.Status != StatusConfirmed {
		return ErrNotReschedulable
	}
	a.ScheduledStart = newStart
	a.ScheduledEnd = newStart.Add(time.Duration(a.DurationMins) * time.Minute)
	return nil
}

type BookAppointmentCommand struct {
	PatientID     uuid.UUID
	ProviderID    uuid.UUID
	ServiceType   provider.ServiceType
	Start         time.Time
	InitialStatus Status
}

type CancelAppointmentCommand struct {
	Reason string
}

type RescheduleAppointmentCommand struct {
	NewStart time.Time
}

type ListAppointmentsQuery struct {
	ProviderID *uuid.UUID
	PatientID  *uuid.UUID
	Status     *Status
	From       *time.Time
	To         *time.Time
	OnlyActive bool
	Page       int
	PageSize   int
}

type PagedAppointments struct {
	Appointments []*Appointment
	TotalCount   int64
	Page         int
	PageSize     int
	TotalPages   int
}
