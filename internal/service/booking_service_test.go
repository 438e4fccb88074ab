package service

import (
	"context"
	"errors"
	"sync"
	"testing"
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

// Monday.
var testNow = time.Date(2026, 9, 7, 8, 0, 0, 0, time.UTC)

type fakeAppointmentRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*appointment.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{rows: make(map[uuid.UUID]*appointment.Appointment)}
}

func clone(a *appointment.Appointment) *appointment.Appointment {
	c := *a
	if a.CancelledAt != nil {
		t := *a.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}

func (r *fakeAppointmentRepo) overlapsLocked(providerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) bool {
	for _, row := range r.rows {
		if row.ProviderID != providerID || !row.Status.IsActive() {
			continue
		}
		if excludeID != nil && row.ID == *excludeID {
			continue
		}
		if start.Before(row.ScheduledEnd) && row.ScheduledStart.Before(end) {
			return true
		}
	}
	return false
}

func (r *fakeAppointmentRepo) CreateIfFree(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.overlapsLocked(a.ProviderID, a.ScheduledStart, a.ScheduledEnd, nil) {
		return appointment.ErrSlotUnavailable
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.rows[a.ID] = clone(a)
	return nil
}

func (r *fakeAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return clone(row), nil
}

func (r *fakeAppointmentRepo) UpdateStatus(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[a.ID]; !ok {
		return appointment.ErrAppointmentNotFound
	}
	r.rows[a.ID] = clone(a)
	return nil
}

func (r *fakeAppointmentRepo) RescheduleIfFree(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[a.ID]; !ok {
		return appointment.ErrAppointmentNotFound
	}
	if r.overlapsLocked(a.ProviderID, a.ScheduledStart, a.ScheduledEnd, &a.ID) {
		return appointment.ErrSlotUnavailable
	}
	r.rows[a.ID] = clone(a)
	return nil
}

func (r *fakeAppointmentRepo) HasConflict(_ context.Context, providerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overlapsLocked(providerID, start, end, excludeID), nil
}

func (r *fakeAppointmentRepo) ListForProviderBetween(_ context.Context, providerID uuid.UUID, from, to time.Time) ([]*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*appointment.Appointment
	for _, row := range r.rows {
		if row.ProviderID != providerID || !row.Status.IsActive() {
			continue
		}
		if from.Before(row.ScheduledEnd) && row.ScheduledStart.Before(to) {
			out = append(out, clone(row))
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepo) List(_ context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*appointment.Appointment
	for _, row := range r.rows {
		if q.ProviderID != nil && row.ProviderID != *q.ProviderID {
			continue
		}
		if q.Status != nil && row.Status != *q.Status {
			continue
		}
		out = append(out, clone(row))
	}
	return &appointment.PagedAppointments{
		Appointments: out,
		TotalCount:   int64(len(out)),
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   1,
	}, nil
}

type fakeProviderRepo struct {
	providers map[uuid.UUID]*provider.Provider
	offerings map[uuid.UUID]map[provider.ServiceType]*provider.ServiceOffering
	weekly    map[uuid.UUID][]*provider.WeeklyAvailability
	overrides map[uuid.UUID][]*provider.ScheduleOverride
}

func newFakeProviderRepo() *fakeProviderRepo {
	return &fakeProviderRepo{
		providers: make(map[uuid.UUID]*provider.Provider),
		offerings: make(map[uuid.UUID]map[provider.ServiceType]*provider.ServiceOffering),
		weekly:    make(map[uuid.UUID][]*provider.WeeklyAvailability),
		overrides: make(map[uuid.UUID][]*provider.ScheduleOverride),
	}
}

func (r *fakeProviderRepo) GetByID(_ context.Context, id uuid.UUID) (*provider.Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, provider.ErrProviderNotFound
	}
	return p, nil
}

func (r *fakeProviderRepo) GetServiceOffering(_ context.Context, providerID uuid.UUID, t provider.ServiceType) (*provider.ServiceOffering, error) {
	o, ok := r.offerings[providerID][t]
	if !ok {
		return nil, provider.ErrServiceNotOffered
	}
	return o, nil
}

func (r *fakeProviderRepo) ListWeeklyAvailability(_ context.Context, providerID uuid.UUID) ([]*provider.WeeklyAvailability, error) {
	return r.weekly[providerID], nil
}

func (r *fakeProviderRepo) ListOverridesBetween(_ context.Context, providerID uuid.UUID, from, to time.Time) ([]*provider.ScheduleOverride, error) {
	var out []*provider.ScheduleOverride
	for _, o := range r.overrides[providerID] {
		if from.Before(o.EndsAt) && o.StartsAt.Before(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

type fakePatientRepo struct {
	patients map[uuid.UUID]*patient.Patient
}

func (r *fakePatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	return p, nil
}

type fixture struct {
	svc        *BookingService
	appts      *fakeAppointmentRepo
	providers  *fakeProviderRepo
	patients   *fakePatientRepo
	providerID uuid.UUID
	patientID  uuid.UUID
}

// newFixture builds a service around one active provider offering 30-minute
// consultations, open Mondays 09:00-12:00 UTC.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	providerID := uuid.New()
	patientID := uuid.New()

	providers := newFakeProviderRepo()
	providers.providers[providerID] = &provider.Provider{
		ID:        providerID,
		FirstName: "Asha",
		LastName:  "Rao",
		Status:    provider.StatusActive,
	}
	providers.offerings[providerID] = map[provider.ServiceType]*provider.ServiceOffering{
		provider.ServiceConsultation: {
			ProviderID:   providerID,
			Type:         provider.ServiceConsultation,
			FeeCents:     15000,
			DurationMins: 30,
		},
	}
	providers.weekly[providerID] = []*provider.WeeklyAvailability{
		{ProviderID: providerID, DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00"},
	}

	patients := &fakePatientRepo{patients: map[uuid.UUID]*patient.Patient{
		patientID: {ID: patientID, FirstName: "Omar", LastName: "Diallo", Status: patient.StatusActive},
	}}

	appts := newFakeAppointmentRepo()

	norm, err := schedule.NewNormalizer("UTC")
	if err != nil {
		t.Fatalf("NewNormalizer: %v", err)
	}

	svc := NewBookingService(appts, providers, patients, norm, events.NopPublisher{},
		config.BookingConfig{BusinessTimeZone: "UTC", SearchWindowDays: 14, MaxSearchWindowDays: 60},
		zap.NewNop(),
	)
	svc.now = func() time.Time { return testNow }

	return &fixture{
		svc:        svc,
		appts:      appts,
		providers:  providers,
		patients:   patients,
		providerID: providerID,
		patientID:  patientID,
	}
}

func (f *fixture) bookCmd(start time.Time) *appointment.BookAppointmentCommand {
	return &appointment.BookAppointmentCommand{
		ProviderID:  f.providerID,
		PatientID:   f.patientID,
		ServiceType: provider.ServiceConsultation,
		Start:       start,
	}
}

func TestBookSuccess(t *testing.T) {
	f := newFixture(t)
	start := testNow.Add(2 * time.Hour)

	a, err := f.svc.Book(context.Background(), f.bookCmd(start))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if a.Status != appointment.StatusPendingPayment {
		t.Errorf("default status = %s, want pending_payment", a.Status)
	}
	if !a.ScheduledEnd.Equal(start.Add(30 * time.Minute)) {
		t.Errorf("end = %v, want start + offering duration", a.ScheduledEnd)
	}
	if a.FeeCents != 15000 {
		t.Errorf("fee = %d, want snapshot of offering fee", a.FeeCents)
	}
	if a.ID == uuid.Nil {
		t.Error("appointment was not assigned an ID")
	}
}

func TestBookWithConfirmedInitialStatus(t *testing.T) {
	f := newFixture(t)
	cmd := f.bookCmd(testNow.Add(2 * time.Hour))
	cmd.InitialStatus = appointment.StatusConfirmed

	a, err := f.svc.Book(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if a.Status != appointment.StatusConfirmed {
		t.Errorf("status = %s, want confirmed", a.Status)
	}
}

func TestBookRejectsInvalidInitialStatus(t *testing.T) {
	f := newFixture(t)
	cmd := f.bookCmd(testNow.Add(2 * time.Hour))
	cmd.InitialStatus = appointment.StatusCompleted

	if _, err := f.svc.Book(context.Background(), cmd); !errors.Is(err, appointment.ErrInvalidInitialStatus) {
		t.Fatalf("err = %v, want ErrInvalidInitialStatus", err)
	}
}

func TestBookValidation(t *testing.T) {
	f := newFixture(t)
	cmd := &appointment.BookAppointmentCommand{
		ServiceType: provider.ServiceType("tarot_reading"),
		Start:       testNow.Add(2 * time.Hour),
	}

	_, err := f.svc.Book(context.Background(), cmd)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if len(vErr.Fields) != 3 {
		t.Errorf("got %d field errors, want 3: %v", len(vErr.Fields), vErr.Fields)
	}
}

func TestBookUnknownProvider(t *testing.T) {
	f := newFixture(t)
	cmd := f.bookCmd(testNow.Add(2 * time.Hour))
	cmd.ProviderID = uuid.New()

	if _, err := f.svc.Book(context.Background(), cmd); !errors.Is(err, provider.ErrProviderNotFound) {
		t.Fatalf("err = %v, want ErrProviderNotFound", err)
	}
}

func TestBookInactiveProvider(t *testing.T) {
	f := newFixture(t)
	f.providers.providers[f.providerID].Status = provider.StatusInactive

	if _, err := f.svc.Book(context.Background(), f.bookCmd(testNow.Add(2*time.Hour))); !errors.Is(err, provider.ErrProviderInactive) {
		t.Fatalf("err = %v, want ErrProviderInactive", err)
	}
}

func TestBookUnknownPatient(t *testing.T) {
	f := newFixture(t)
	cmd := f.bookCmd(testNow.Add(2 * time.Hour))
	cmd.PatientID = uuid.New()

	if _, err := f.svc.Book(context.Background(), cmd); !errors.Is(err, patient.ErrPatientNotFound) {
		t.Fatalf("err = %v, want ErrPatientNotFound", err)
	}
}

func TestBookInactivePatient(t *testing.T) {
	f := newFixture(t)
	f.patients.patients[f.patientID].Status = patient.StatusInactive

	if _, err := f.svc.Book(context.Background(), f.bookCmd(testNow.Add(2*time.Hour))); !errors.Is(err, patient.ErrPatientInactive) {
		t.Fatalf("err = %v, want ErrPatientInactive", err)
	}
}

func TestBookServiceNotOffered(t *testing.T) {
	f := newFixture(t)
	cmd := f.bookCmd(testNow.Add(2 * time.Hour))
	cmd.ServiceType = provider.ServiceProcedure

	if _, err := f.svc.Book(context.Background(), cmd); !errors.Is(err, provider.ErrServiceNotOffered) {
		t.Fatalf("err = %v, want ErrServiceNotOffered", err)
	}
}

func TestBookRejectsNonPositiveDuration(t *testing.T) {
	f := newFixture(t)

	for _, mins := range []int{0, -30} {
		f.providers.offerings[f.providerID][provider.ServiceConsultation].DurationMins = mins
		if _, err := f.svc.Book(context.Background(), f.bookCmd(testNow.Add(2*time.Hour))); !errors.Is(err, appointment.ErrInvalidTimeRange) {
			t.Errorf("Book with %d-minute offering: err = %v, want ErrInvalidTimeRange", mins, err)
		}
	}
}

func TestBookRejectsPastStart(t *testing.T) {
	f := newFixture(t)

	for _, start := range []time.Time{testNow.Add(-time.Hour), testNow} {
		if _, err := f.svc.Book(context.Background(), f.bookCmd(start)); !errors.Is(err, appointment.ErrScheduledInPast) {
			t.Errorf("Book(start=%v) err = %v, want ErrScheduledInPast", start, err)
		}
	}
}

func TestBookConflictingSlot(t *testing.T) {
	f := newFixture(t)
	start := testNow.Add(2 * time.Hour)

	if _, err := f.svc.Book(context.Background(), f.bookCmd(start)); err != nil {
		t.Fatalf("first Book: %v", err)
	}

	// Exact duplicate and partial overlap both collide.
	for _, s := range []time.Time{start, start.Add(15 * time.Minute), start.Add(-15 * time.Minute)} {
		if _, err := f.svc.Book(context.Background(), f.bookCmd(s)); !errors.Is(err, appointment.ErrSlotUnavailable) {
			t.Errorf("Book(start=%v) err = %v, want ErrSlotUnavailable", s, err)
		}
	}

	// Back to back is fine: the interval is half-open.
	if _, err := f.svc.Book(context.Background(), f.bookCmd(start.Add(30*time.Minute))); err != nil {
		t.Errorf("back-to-back Book: %v", err)
	}
}

func TestConcurrentBookingOneWins(t *testing.T) {
	f := newFixture(t)
	start := testNow.Add(2 * time.Hour)

	const attempts = 8
	errCh := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Book(context.Background(), f.bookCmd(start))
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	var wins, conflicts int
	for err := range errCh {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, appointment.ErrSlotUnavailable):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != attempts-1 {
		t.Fatalf("wins = %d, conflicts = %d; want exactly one winner", wins, conflicts)
	}
}

func TestCancelFreesSlot(t *testing.T) {
	f := newFixture(t)
	start := testNow.Add(2 * time.Hour)

	a, err := f.svc.Book(context.Background(), f.bookCmd(start))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	cancelled, err := f.svc.Cancel(context.Background(), a.ID, &appointment.CancelAppointmentCommand{Reason: "patient request"})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != appointment.StatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
	if cancelled.CancelledAt == nil || cancelled.CancellationReason != "patient request" {
		t.Error("cancellation metadata not recorded")
	}

	// The row survives but no longer blocks the range.
	if _, err := f.svc.GetAppointment(context.Background(), a.ID); err != nil {
		t.Fatalf("GetAppointment after cancel: %v", err)
	}
	if _, err := f.svc.Book(context.Background(), f.bookCmd(start)); err != nil {
		t.Fatalf("rebooking a cancelled slot: %v", err)
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Book(context.Background(), f.bookCmd(testNow.Add(2*time.Hour)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	steps := []struct {
		name string
		call func(context.Context, uuid.UUID) (*appointment.Appointment, error)
		want appointment.Status
	}{
		{"Confirm", f.svc.Confirm, appointment.StatusConfirmed},
		{"CheckIn", f.svc.CheckIn, appointment.StatusCheckedIn},
		{"StartVisit", f.svc.StartVisit, appointment.StatusInProgress},
		{"Complete", f.svc.Complete, appointment.StatusCompleted},
	}
	for _, step := range steps {
		got, err := step.call(context.Background(), a.ID)
		if err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if got.Status != step.want {
			t.Fatalf("%s: status = %s, want %s", step.name, got.Status, step.want)
		}
	}

	// Completed is terminal.
	if _, err := f.svc.Cancel(context.Background(), a.ID, &appointment.CancelAppointmentCommand{Reason: "x"}); !errors.Is(err, appointment.ErrInvalidStatusTransition) {
		t.Fatalf("Cancel after completion: err = %v, want ErrInvalidStatusTransition", err)
	}
}

func TestMarkNoShow(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Book(context.Background(), f.bookCmd(testNow.Add(2*time.Hour)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	got, err := f.svc.MarkNoShow(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("MarkNoShow: %v", err)
	}
	if got.Status != appointment.StatusNoShow {
		t.Errorf("status = %s, want no_show", got.Status)
	}
}

func TestReschedule(t *testing.T) {
	f := newFixture(t)
	start := testNow.Add(2 * time.Hour)

	cmd := f.bookCmd(start)
	cmd.InitialStatus = appointment.StatusConfirmed
	a, err := f.svc.Book(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	newStart := start.Add(24 * time.Hour)
	moved, err := f.svc.Reschedule(context.Background(), a.ID, &appointment.RescheduleAppointmentCommand{NewStart: newStart})
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if !moved.ScheduledStart.Equal(newStart) || !moved.ScheduledEnd.Equal(newStart.Add(30*time.Minute)) {
		t.Errorf("moved to [%v, %v), want [%v, %v)", moved.ScheduledStart, moved.ScheduledEnd, newStart, newStart.Add(30*time.Minute))
	}
	if moved.Status != appointment.StatusConfirmed {
		t.Errorf("status = %s, reschedule must not change status", moved.Status)
	}

	// The old range is free again.
	if _, err := f.svc.Book(context.Background(), f.bookCmd(start)); err != nil {
		t.Errorf("booking the vacated slot: %v", err)
	}
}

func TestRescheduleRejectsConflict(t *testing.T) {
	f := newFixture(t)
	start := testNow.Add(2 * time.Hour)

	cmd := f.bookCmd(start)
	cmd.InitialStatus = appointment.StatusConfirmed
	a, err := f.svc.Book(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	other := start.Add(time.Hour)
	if _, err := f.svc.Book(context.Background(), f.bookCmd(other)); err != nil {
		t.Fatalf("second Book: %v", err)
	}

	if _, err := f.svc.Reschedule(context.Background(), a.ID, &appointment.RescheduleAppointmentCommand{NewStart: other}); !errors.Is(err, appointment.ErrSlotUnavailable) {
		t.Fatalf("err = %v, want ErrSlotUnavailable", err)
	}

	// The failed move must not have altered the stored range.
	stored, err := f.svc.GetAppointment(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetAppointment: %v", err)
	}
	if !stored.ScheduledStart.Equal(start) {
		t.Errorf("stored start = %v, want unchanged %v", stored.ScheduledStart, start)
	}
}

func TestReschedulePendingRejected(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Book(context.Background(), f.bookCmd(testNow.Add(2*time.Hour)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	_, err = f.svc.Reschedule(context.Background(), a.ID, &appointment.RescheduleAppointmentCommand{NewStart: testNow.Add(48 * time.Hour)})
	if !errors.Is(err, appointment.ErrNotReschedulable) {
		t.Fatalf("err = %v, want ErrNotReschedulable", err)
	}
}

func TestRescheduleRejectsPast(t *testing.T) {
	f := newFixture(t)

	cmd := f.bookCmd(testNow.Add(2 * time.Hour))
	cmd.InitialStatus = appointment.StatusConfirmed
	a, err := f.svc.Book(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	_, err = f.svc.Reschedule(context.Background(), a.ID, &appointment.RescheduleAppointmentCommand{NewStart: testNow.Add(-time.Hour)})
	if !errors.Is(err, appointment.ErrScheduledInPast) {
		t.Fatalf("err = %v, want ErrScheduledInPast", err)
	}
}

func TestFindNextAvailableSlot(t *testing.T) {
	f := newFixture(t)

	// Monday 09:00 is the first template slot after 08:00.
	want := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)

	slot, err := f.svc.FindNextAvailableSlot(context.Background(), f.providerID, provider.ServiceConsultation, 0)
	if err != nil {
		t.Fatalf("FindNextAvailableSlot: %v", err)
	}
	if slot == nil || !slot.Start.Equal(want) {
		t.Fatalf("slot = %+v, want start %v", slot, want)
	}

	// Read-only: asking again returns the same slot.
	again, err := f.svc.FindNextAvailableSlot(context.Background(), f.providerID, provider.ServiceConsultation, 0)
	if err != nil {
		t.Fatalf("second FindNextAvailableSlot: %v", err)
	}
	if again == nil || !again.Start.Equal(want) {
		t.Fatalf("second call slot = %+v, want start %v", again, want)
	}

	// Booking the slot pushes the search to the next opening.
	if _, err := f.svc.Book(context.Background(), f.bookCmd(want)); err != nil {
		t.Fatalf("Book: %v", err)
	}
	next, err := f.svc.FindNextAvailableSlot(context.Background(), f.providerID, provider.ServiceConsultation, 0)
	if err != nil {
		t.Fatalf("FindNextAvailableSlot after booking: %v", err)
	}
	if next == nil || !next.Start.Equal(want.Add(30*time.Minute)) {
		t.Fatalf("next slot = %+v, want start %v", next, want.Add(30*time.Minute))
	}
}

func TestFindNextAvailableSlotSkipsFullDay(t *testing.T) {
	f := newFixture(t)

	// Fill Monday completely: 09:00-12:00 holds six 30-minute slots.
	for i := 0; i < 6; i++ {
		start := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC).Add(time.Duration(i) * 30 * time.Minute)
		if _, err := f.svc.Book(context.Background(), f.bookCmd(start)); err != nil {
			t.Fatalf("Book slot %d: %v", i, err)
		}
	}

	slot, err := f.svc.FindNextAvailableSlot(context.Background(), f.providerID, provider.ServiceConsultation, 0)
	if err != nil {
		t.Fatalf("FindNextAvailableSlot: %v", err)
	}
	wantNextMonday := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	if slot == nil || !slot.Start.Equal(wantNextMonday) {
		t.Fatalf("slot = %+v, want start %v", slot, wantNextMonday)
	}
}

func TestFindNextAvailableSlotExhaustedWindow(t *testing.T) {
	f := newFixture(t)
	f.providers.weekly[f.providerID] = nil

	slot, err := f.svc.FindNextAvailableSlot(context.Background(), f.providerID, provider.ServiceConsultation, 7)
	if err != nil {
		t.Fatalf("FindNextAvailableSlot: %v", err)
	}
	if slot != nil {
		t.Fatalf("slot = %+v, want nil for a provider with no availability", slot)
	}
}

func TestFindNextAvailableSlotHonorsUnavailableOverride(t *testing.T) {
	f := newFixture(t)

	// Block this Monday entirely; the search should land a week later.
	f.providers.overrides[f.providerID] = []*provider.ScheduleOverride{{
		ProviderID: f.providerID,
		Kind:       provider.OverrideUnavailable,
		StartsAt:   time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		EndsAt:     time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC),
	}}

	slot, err := f.svc.FindNextAvailableSlot(context.Background(), f.providerID, provider.ServiceConsultation, 0)
	if err != nil {
		t.Fatalf("FindNextAvailableSlot: %v", err)
	}
	wantNextMonday := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	if slot == nil || !slot.Start.Equal(wantNextMonday) {
		t.Fatalf("slot = %+v, want start %v", slot, wantNextMonday)
	}
}

func TestWorkingHoursAppliesOverrides(t *testing.T) {
	f := newFixture(t)

	// Carve out 10:00-10:30 from the 09:00-12:00 Monday template.
	f.providers.overrides[f.providerID] = []*provider.ScheduleOverride{{
		ProviderID: f.providerID,
		Kind:       provider.OverrideUnavailable,
		StartsAt:   time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC),
		EndsAt:     time.Date(2026, 9, 7, 10, 30, 0, 0, time.UTC),
	}}

	hours, err := f.svc.WorkingHours(context.Background(), f.providerID, schedule.CivilDate{Year: 2026, Month: 9, Day: 7})
	if err != nil {
		t.Fatalf("WorkingHours: %v", err)
	}
	if len(hours) != 2 {
		t.Fatalf("got %d intervals, want 2: %+v", len(hours), hours)
	}
	if !hours[0].End.Equal(time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("first interval ends %v, want 10:00", hours[0].End)
	}
	if !hours[1].Start.Equal(time.Date(2026, 9, 7, 10, 30, 0, 0, time.UTC)) {
		t.Errorf("second interval starts %v, want 10:30", hours[1].Start)
	}
}

func TestListBookedExcludesCancelled(t *testing.T) {
	f := newFixture(t)
	start := testNow.Add(2 * time.Hour)

	a, err := f.svc.Book(context.Background(), f.bookCmd(start))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if _, err := f.svc.Book(context.Background(), f.bookCmd(start.Add(time.Hour))); err != nil {
		t.Fatalf("second Book: %v", err)
	}
	if _, err := f.svc.Cancel(context.Background(), a.ID, &appointment.CancelAppointmentCommand{Reason: "conflict"}); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	booked, err := f.svc.ListBooked(context.Background(), f.providerID, schedule.CivilDate{Year: 2026, Month: 9, Day: 7})
	if err != nil {
		t.Fatalf("ListBooked: %v", err)
	}
	if len(booked) != 1 {
		t.Fatalf("got %d booked appointments, want 1", len(booked))
	}
}
