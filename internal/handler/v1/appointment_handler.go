package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/carebook/carebook/internal/domain/appointment"
	"github.com/carebook/carebook/internal/domain/provider"
	"github.com/carebook/carebook/internal/schedule"
	"github.com/carebook/carebook/internal/service"
	"github.com/carebook/carebook/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AppointmentHandler struct {
	svc     *service.BookingService
	metrics *metrics.Collector
	log     *zap.Logger
}

func NewAppointmentHandler(svc *service.BookingService, m *metrics.Collector, log *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, metrics: m, log: log}
}

type bookAppointmentRequest struct {
	ProviderID    string `json:"provider_id" binding:"required"`
	PatientID     string `json:"patient_id" binding:"required"`
	ServiceType   string `json:"service_type" binding:"required"`
	StartTime     string `json:"start_time" binding:"required"`
	InitialStatus string `json:"initial_status"`
}

type cancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type rescheduleAppointmentRequest struct {
	NewStartTime string `json:"new_start_time" binding:"required"`
}

type appointmentResponse struct {
	ID                 string     `json:"id"`
	ProviderID         string     `json:"provider_id"`
	PatientID          string     `json:"patient_id"`
	ServiceType        string     `json:"service_type"`
	ScheduledStart     time.Time  `json:"scheduled_start"`
	ScheduledEnd       time.Time  `json:"scheduled_end"`
	DurationMins       int        `json:"duration_mins"`
	FeeCents           int64      `json:"fee_cents"`
	Status             string     `json:"status"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toAppointmentResponse(a *appointment.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:                 a.ID.String(),
		ProviderID:         a.ProviderID.String(),
		PatientID:          a.PatientID.String(),
		ServiceType:        string(a.ServiceType),
		ScheduledStart:     a.ScheduledStart.UTC(),
		ScheduledEnd:       a.ScheduledEnd.UTC(),
		DurationMins:       a.DurationMins,
		FeeCents:           a.FeeCents,
		Status:             string(a.Status),
		CancelledAt:        a.CancelledAt,
		CancellationReason: a.CancellationReason,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

// Book handles POST /api/v1/appointments.
func (h *AppointmentHandler) Book(c *gin.Context) {
	var req bookAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid provider_id: must be a valid UUID")
		return
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid patient_id: must be a valid UUID")
		return
	}

	start, err := schedule.ParseInstant(req.StartTime)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid start_time: "+err.Error())
		return
	}

	cmd := &appointment.BookAppointmentCommand{
		ProviderID:    providerID,
		PatientID:     patientID,
		ServiceType:   provider.ServiceType(req.ServiceType),
		Start:         start,
		InitialStatus: appointment.Status(req.InitialStatus),
	}

	a, err := h.svc.Book(c.Request.Context(), cmd)
	if err != nil {
		h.observeBookingError(err)
		respondServiceError(c, err)
		return
	}

	h.metrics.AppointmentsBooked.WithLabelValues(string(a.Status)).Inc()
	respondCreated(c, toAppointmentResponse(a))
}

func (h *AppointmentHandler) observeBookingError(err error) {
	if errors.Is(err, appointment.ErrSlotUnavailable) {
		h.metrics.BookingConflicts.Inc()
	}
}

// Get handles GET /api/v1/appointments/:id.
func (h *AppointmentHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.svc.GetAppointment(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toAppointmentResponse(a))
}

// Cancel handles POST /api/v1/appointments/:id/cancel.
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req cancelAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.svc.Cancel(c.Request.Context(), id, &appointment.CancelAppointmentCommand{Reason: req.Reason})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.metrics.LifecycleTransitions.WithLabelValues(string(a.Status)).Inc()
	respondOK(c, toAppointmentResponse(a))
}

// Confirm handles POST /api/v1/appointments/:id/confirm, the
// payment-completed callback.
func (h *AppointmentHandler) Confirm(c *gin.Context) {
	h.applyTransition(c, h.svc.Confirm)
}

func (h *AppointmentHandler) CheckIn(c *gin.Context) {
	h.applyTransition(c, h.svc.CheckIn)
}

func (h *AppointmentHandler) StartVisit(c *gin.Context) {
	h.applyTransition(c, h.svc.StartVisit)
}

func (h *AppointmentHandler) Complete(c *gin.Context) {
	h.applyTransition(c, h.svc.Complete)
}

func (h *AppointmentHandler) MarkNoShow(c *gin.Context) {
	h.applyTransition(c, h.svc.MarkNoShow)
}

func (h *AppointmentHandler) applyTransition(c *gin.Context, apply func(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	a, err := apply(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.metrics.LifecycleTransitions.WithLabelValues(string(a.Status)).Inc()
	respondOK(c, toAppointmentResponse(a))
}

// Reschedule handles POST /api/v1/appointments/:id/reschedule.
func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req rescheduleAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	newStart, err := schedule.ParseInstant(req.NewStartTime)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid new_start_time: "+err.Error())
		return
	}

	a, err := h.svc.Reschedule(c.Request.Context(), id, &appointment.RescheduleAppointmentCommand{NewStart: newStart})
	if err != nil {
		h.observeBookingError(err)
		respondServiceError(c, err)
		return
	}
	respondOK(c, toAppointmentResponse(a))
}

// List handles GET /api/v1/appointments with optional filters.
func (h *AppointmentHandler) List(c *gin.Context) {
	q := &appointment.ListAppointmentsQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}

	if raw := c.Query("provider_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid provider_id: must be a valid UUID")
			return
		}
		q.ProviderID = &id
	}
	if raw := c.Query("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid patient_id: must be a valid UUID")
			return
		}
		q.PatientID = &id
	}
	if raw := c.Query("status"); raw != "" {
		st := appointment.Status(raw)
		if !st.IsValid() {
			respondError(c, http.StatusBadRequest, "invalid status filter")
			return
		}
		q.Status = &st
	}
	if raw := c.Query("from"); raw != "" {
		from, err := schedule.ParseInstant(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid from: "+err.Error())
			return
		}
		q.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := schedule.ParseInstant(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid to: "+err.Error())
			return
		}
		q.To = &to
	}
	q.OnlyActive = c.Query("only_active") == "true"

	page, err := h.svc.ListAppointments(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	items := make([]appointmentResponse, 0, len(page.Appointments))
	for _, a := range page.Appointments {
		items = append(items, toAppointmentResponse(a))
	}

	c.JSON(http.StatusOK, gin.H{
		"data": items,
		"pagination": gin.H{
			"page":        page.Page,
			"page_size":   page.PageSize,
			"total_count": page.TotalCount,
			"total_pages": page.TotalPages,
		},
	})
}
