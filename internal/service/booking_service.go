package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carebook/carebook/internal/config"
	"github.com/carebook/carebook/internal/domain/appointment"
	"github.com/carebook/carebook/internal/domain/patient"
	"github.com/carebook/carebook/internal/domain/provider"
	"github.com/carebook/carebook/internal/events"
	"github.com/carebook/carebook/internal/schedule"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingService is the single validated path from a booking request to a
// persisted appointment, and the owner of all lifecycle transitions after
// creation.
type BookingService struct {
	appts     appointment.Repository
	providers provider.Repository
	patients  patient.Repository
	norm      *schedule.Normalizer
	resolver  *schedule.Resolver
	publisher events.Publisher
	cfg       config.BookingConfig
	log       *zap.Logger

	// Injectable for tests.
	now func() time.Time
}

func NewBookingService(
	appts appointment.Repository,
	providers provider.Repository,
	patients patient.Repository,
	norm *schedule.Normalizer,
	publisher events.Publisher,
	cfg config.BookingConfig,
	log *zap.Logger,
) *BookingService {
	return &BookingService{
		appts:     appts,
		providers: providers,
		patients:  patients,
		norm:      norm,
		resolver:  schedule.NewResolver(norm),
		publisher: publisher,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Book validates a booking request end to end and atomically creates the
// appointment. The conflict check and the insert are one atomic unit in the
// repository; a race caught at commit time surfaces as the same
// ErrSlotUnavailable as one caught up front.
func (s *BookingService) Book(ctx context.Context, cmd *appointment.BookAppointmentCommand) (*appointment.Appointment, error) {
	var fields []string
	if cmd.ProviderID == uuid.Nil {
		fields = append(fields, "provider_id is required")
	}
	if cmd.PatientID == uuid.Nil {
		fields = append(fields, "patient_id is required")
	}
	if !cmd.ServiceType.IsValid() {
		fields = append(fields, "service_type is not a recognized consultation type")
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	initial := cmd.InitialStatus
	if initial == "" {
		initial = appointment.StatusPendingPayment
	}
	if initial != appointment.StatusPendingPayment && initial != appointment.StatusConfirmed {
		return nil, appointment.ErrInvalidInitialStatus
	}

	p, err := s.providers.GetByID(ctx, cmd.ProviderID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, provider.ErrProviderInactive
	}

	pt, err := s.patients.GetByID(ctx, cmd.PatientID)
	if err != nil {
		return nil, err
	}
	if !pt.IsActive() {
		return nil, patient.ErrPatientInactive
	}

	offering, err := s.providers.GetServiceOffering(ctx, cmd.ProviderID, cmd.ServiceType)
	if err != nil {
		return nil, err
	}
	// A malformed offering would otherwise produce an empty or inverted range
	// that the half-open overlap check can never reject.
	if offering.DurationMins <= 0 {
		return nil, appointment.ErrInvalidTimeRange
	}

	start := cmd.Start.UTC()
	if !start.After(s.now()) {
		return nil, appointment.ErrScheduledInPast
	}

	a := &appointment.Appointment{
		ProviderID:     cmd.ProviderID,
		PatientID:      cmd.PatientID,
		ScheduledStart: start,
		ScheduledEnd:   start.Add(time.Duration(offering.DurationMins) * time.Minute),
		DurationMins:   offering.DurationMins,
		ServiceType:    cmd.ServiceType,
		FeeCents:       offering.FeeCents,
		Status:         initial,
	}

	if err := s.appts.CreateIfFree(ctx, a); err != nil {
		if errors.Is(err, appointment.ErrSlotUnavailable) {
			return nil, err
		}
		s.log.Error("failed to create appointment", zap.Error(err))
		return nil, fmt.Errorf("creating appointment: %w", err)
	}

	s.publisher.Publish(events.FromAppointment(events.TypeAppointmentCreated, a))
	s.log.Info("appointment booked",
		zap.String("appointment_id", a.ID.String()),
		zap.String("provider_id", a.ProviderID.String()),
		zap.Time("start", a.ScheduledStart),
		zap.String("status", string(a.Status)),
	)
	return a, nil
}

// WorkingHours resolves the provider's effective hours on one calendar date
// in the business zone.
func (s *BookingService) WorkingHours(ctx context.Context, providerID uuid.UUID, date schedule.CivilDate) (schedule.IntervalSet, error) {
	weeklyRows, err := s.providers.ListWeeklyAvailability(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("loading weekly availability: %w", err)
	}

	weekly := make([]schedule.WeeklyRule, 0, len(weeklyRows))
	for _, row := range weeklyRows {
		start, err := schedule.ParseTimeOfDay(row.StartTime)
		if err != nil {
			return nil, fmt.Errorf("weekly availability %s: %w", row.ID, err)
		}
		end, err := schedule.ParseTimeOfDay(row.EndTime)
		if err != nil {
			return nil, fmt.Errorf("weekly availability %s: %w", row.ID, err)
		}
		weekly = append(weekly, schedule.WeeklyRule{
			Day:   time.Weekday(row.DayOfWeek),
			Start: start,
			End:   end,
		})
	}

	dayStart := s.norm.StartOfDay(date)
	dayEnd := s.norm.EndOfDay(date)
	overrideRows, err := s.providers.ListOverridesBetween(ctx, providerID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("loading schedule overrides: %w", err)
	}

	overrides := make([]schedule.Override, 0, len(overrideRows))
	for _, row := range overrideRows {
		overrides = append(overrides, schedule.Override{
			Kind:  schedule.OverrideKind(row.Kind),
			Start: row.StartsAt,
			End:   row.EndsAt,
		})
	}

	return s.resolver.WorkingHours(date, weekly, overrides), nil
}

// FindNextAvailableSlot walks dates from today forward and returns the first
// candidate slot with no conflict, or nil when the search window is
// exhausted. Read-only: calling it twice with no intervening bookings returns
// the same slot.
func (s *BookingService) FindNextAvailableSlot(ctx context.Context, providerID uuid.UUID, t provider.ServiceType, windowDays int) (*schedule.Slot, error) {
	if windowDays <= 0 {
		windowDays = s.cfg.SearchWindowDays
	}
	if windowDays > s.cfg.MaxSearchWindowDays {
		windowDays = s.cfg.MaxSearchWindowDays
	}

	if _, err := s.providers.GetByID(ctx, providerID); err != nil {
		return nil, err
	}
	offering, err := s.providers.GetServiceOffering(ctx, providerID, t)
	if err != nil {
		return nil, err
	}

	now := s.now()
	duration := time.Duration(offering.DurationMins) * time.Minute
	date := s.norm.DateOf(now)

	for d := 0; d < windowDays; d++ {
		hours, err := s.WorkingHours(ctx, providerID, date)
		if err != nil {
			return nil, err
		}

		gen := schedule.NewSlotGenerator(hours, duration, now)
		for {
			slot, ok := gen.Next()
			if !ok {
				break
			}
			conflict, err := s.appts.HasConflict(ctx, providerID, slot.Start, slot.End, nil)
			if err != nil {
				return nil, fmt.Errorf("checking conflicts: %w", err)
			}
			if !conflict {
				return &slot, nil
			}
		}
		date = date.AddDays(1)
	}
	return nil, nil
}

func (s *BookingService) GetAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.appts.GetByID(ctx, id)
}

// Cancel frees the slot: the appointment row stays but no longer counts for
// conflicts.
func (s *BookingService) Cancel(ctx context.Context, id uuid.UUID, cmd *appointment.CancelAppointmentCommand) (*appointment.Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := a.Cancel(cmd.Reason, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.appts.UpdateStatus(ctx, a); err != nil {
		return nil, fmt.Errorf("updating appointment status: %w", err)
	}

	s.publisher.Publish(events.FromAppointment(events.TypeAppointmentCancelled, a))
	return a, nil
}

// Confirm is the payment-completed transition, driven by the payment
// collaborator.
func (s *BookingService) Confirm(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	a, err := s.transition(ctx, id, (*appointment.Appointment).Confirm)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(events.FromAppointment(events.TypeAppointmentConfirmed, a))
	return a, nil
}

func (s *BookingService) CheckIn(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.transition(ctx, id, (*appointment.Appointment).CheckIn)
}

func (s *BookingService) StartVisit(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.transition(ctx, id, (*appointment.Appointment).StartVisit)
}

func (s *BookingService) Complete(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.transition(ctx, id, (*appointment.Appointment).Complete)
}

func (s *BookingService) MarkNoShow(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.transition(ctx, id, (*appointment.Appointment).MarkNoShow)
}

func (s *BookingService) transition(ctx context.Context, id uuid.UUID, apply func(*appointment.Appointment) error) (*appointment.Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(a); err != nil {
		return nil, err
	}
	if err := s.appts.UpdateStatus(ctx, a); err != nil {
		return nil, fmt.Errorf("updating appointment status: %w", err)
	}
	return a, nil
}

// Reschedule moves a confirmed appointment to a new start. The new range is
// re-validated against every other active appointment atomically with the
// update.
func (s *BookingService) Reschedule(ctx context.Context, id uuid.UUID, cmd *appointment.RescheduleAppointmentCommand) (*appointment.Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	newStart := cmd.NewStart.UTC()
	if !newStart.After(s.now()) {
		return nil, appointment.ErrScheduledInPast
	}
	if err := a.Reschedule(newStart); err != nil {
		return nil, err
	}

	if err := s.appts.RescheduleIfFree(ctx, a); err != nil {
		if errors.Is(err, appointment.ErrSlotUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("rescheduling appointment: %w", err)
	}

	s.publisher.Publish(events.FromAppointment(events.TypeAppointmentRescheduled, a))
	return a, nil
}

// ListBooked returns the provider's active appointments on one calendar date,
// for calendar and display collaborators.
func (s *BookingService) ListBooked(ctx context.Context, providerID uuid.UUID, date schedule.CivilDate) ([]*appointment.Appointment, error) {
	return s.appts.ListForProviderBetween(ctx, providerID, s.norm.StartOfDay(date), s.norm.EndOfDay(date))
}

func (s *BookingService) ListAppointments(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.appts.List(ctx, q)
}
