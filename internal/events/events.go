package events

import (
	"time"

	"github.com/carebook/carebook/internal/domain/appointment"
	"github.com/google/uuid"
)

const (
	TypeAppointmentCreated     = "appointment.created"
	TypeAppointmentConfirmed   = "appointment.confirmed"
	TypeAppointmentCancelled   = "appointment.cancelled"
	TypeAppointmentRescheduled = "appointment.rescheduled"
)

// AppointmentEvent is the payload the notification system consumes. Instants
// are serialized as RFC 3339 UTC.
type AppointmentEvent struct {
	EventID       uuid.UUID `json:"event_id"`
	EventType     string    `json:"event_type"`
	OccurredAt    time.Time `json:"occurred_at"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	ProviderID    uuid.UUID `json:"provider_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	ServiceType   string    `json:"service_type"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason,omitempty"`
}

// FromAppointment builds the event envelope for a lifecycle change.
func FromAppointment(eventType string, a *appointment.Appointment) AppointmentEvent {
	return AppointmentEvent{
		EventID:       uuid.New(),
		EventType:     eventType,
		OccurredAt:    time.Now().UTC(),
		AppointmentID: a.ID,
		ProviderID:    a.ProviderID,
		PatientID:     a.PatientID,
		ServiceType:   string(a.ServiceType),
		Start:         a.ScheduledStart,
		End:           a.ScheduledEnd,
		Status:        string(a.Status),
		Reason:        a.CancellationReason,
	}
}

// Publisher delivers appointment events to interested collaborators.
// Implementations must never block the caller: delivery is best-effort and a
// failed or dropped event must not fail the booking that produced it.
type Publisher interface {
	Publish(evt AppointmentEvent)
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(AppointmentEvent) {}
