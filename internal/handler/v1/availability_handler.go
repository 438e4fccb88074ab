package v1

import (
	"net/http"
	"time"

	"github.com/carebook/carebook/internal/domain/provider"
	"github.com/carebook/carebook/internal/schedule"
	"github.com/carebook/carebook/internal/service"
	"github.com/carebook/carebook/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AvailabilityHandler struct {
	svc     *service.BookingService
	metrics *metrics.Collector
	log     *zap.Logger
}

func NewAvailabilityHandler(svc *service.BookingService, m *metrics.Collector, log *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{svc: svc, metrics: m, log: log}
}

type intervalResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type workingHoursResponse struct {
	ProviderID string             `json:"provider_id"`
	Date       string             `json:"date"`
	Intervals  []intervalResponse `json:"intervals"`
}

type nextSlotResponse struct {
	ProviderID  string     `json:"provider_id"`
	ServiceType string     `json:"service_type"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
	Found       bool       `json:"found"`
}

// WorkingHours handles GET /api/v1/providers/:id/availability?date=YYYY-MM-DD.
// It returns the provider's effective hours on that date after overrides.
func (h *AvailabilityHandler) WorkingHours(c *gin.Context) {
	providerID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	date, err := schedule.ParseCivilDate(c.Query("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid date: expected YYYY-MM-DD")
		return
	}

	hours, err := h.svc.WorkingHours(c.Request.Context(), providerID, date)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	intervals := make([]intervalResponse, 0, len(hours))
	for _, iv := range hours {
		intervals = append(intervals, intervalResponse{Start: iv.Start.UTC(), End: iv.End.UTC()})
	}

	respondOK(c, workingHoursResponse{
		ProviderID: providerID.String(),
		Date:       c.Query("date"),
		Intervals:  intervals,
	})
}

// NextSlot handles GET /api/v1/providers/:id/slots/next?service_type=...&days=N.
// An exhausted search window is a successful response with found=false, not an
// error.
func (h *AvailabilityHandler) NextSlot(c *gin.Context) {
	providerID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	serviceType := provider.ServiceType(c.Query("service_type"))
	if !serviceType.IsValid() {
		respondError(c, http.StatusBadRequest, "invalid service_type")
		return
	}
	windowDays := parseQueryInt(c, "days", 0)

	started := time.Now()
	slot, err := h.svc.FindNextAvailableSlot(c.Request.Context(), providerID, serviceType, windowDays)
	h.metrics.SlotSearchDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := nextSlotResponse{
		ProviderID:  providerID.String(),
		ServiceType: string(serviceType),
	}
	if slot != nil {
		start := slot.Start.UTC()
		end := slot.End.UTC()
		resp.Start = &start
		resp.End = &end
		resp.Found = true
	}
	respondOK(c, resp)
}

// BookedAppointments handles GET /api/v1/providers/:id/appointments?date=YYYY-MM-DD.
func (h *AvailabilityHandler) BookedAppointments(c *gin.Context) {
	providerID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	date, err := schedule.ParseCivilDate(c.Query("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid date: expected YYYY-MM-DD")
		return
	}

	appts, err := h.svc.ListBooked(c.Request.Context(), providerID, date)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	items := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		items = append(items, toAppointmentResponse(a))
	}
	respondOK(c, items)
}
