package v1

import (
	"net/http"

	"github.com/carebook/carebook/internal/config"
	"github.com/carebook/carebook/internal/handler/middleware"
	"github.com/carebook/carebook/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RouterDeps struct {
	Config       *config.Config
	Log          *zap.Logger
	Metrics      *metrics.Collector
	DB           *gorm.DB
	Appointments *AppointmentHandler
	Availability *AvailabilityHandler
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.CORS(deps.Config.CORS))
	r.Use(middleware.RateLimit(deps.Config.RateLimit))

	r.GET("/healthz", healthHandler(deps.DB))
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/api/v1")
	{
		appts := api.Group("/appointments")
		{
			appts.POST("", deps.Appointments.Book)
			appts.GET("", deps.Appointments.List)
			appts.GET("/:id", deps.Appointments.Get)
			appts.POST("/:id/cancel", deps.Appointments.Cancel)
			appts.POST("/:id/confirm", deps.Appointments.Confirm)
			appts.POST("/:id/checkin", deps.Appointments.CheckIn)
			appts.POST("/:id/start", deps.Appointments.StartVisit)
			appts.POST("/:id/complete", deps.Appointments.Complete)
			appts.POST("/:id/no-show", deps.Appointments.MarkNoShow)
			appts.POST("/:id/reschedule", deps.Appointments.Reschedule)
		}

		providers := api.Group("/providers")
		{
			providers.GET("/:id/availability", deps.Availability.WorkingHours)
			providers.GET("/:id/slots/next", deps.Availability.NextSlot)
			providers.GET("/:id/appointments", deps.Availability.BookedAppointments)
		}
	}

	return r
}

func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "unreachable"})
			return
		}
		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}
