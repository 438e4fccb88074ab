package provider

import (
	"time"

	"github.com/google/uuid"
)

type ServiceType string

const (
	ServiceConsultation   ServiceType = "consultation"
	ServiceFollowUp       ServiceType = "follow_up"
	ServiceEmergency      ServiceType = "emergency"
	ServiceRoutineCheckup ServiceType = "routine_checkup"
	ServiceProcedure      ServiceType = "procedure"
	ServiceLabResults     ServiceType = "lab_results"
)

func (t ServiceType) IsValid() bool {
	switch t {
	case ServiceConsultation, ServiceFollowUp, ServiceEmergency,
		ServiceRoutineCheckup, ServiceProcedure, ServiceLabResults:
		return true
	}
	return false
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

type Provider struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	FirstName string `gorm:"column:first_name;type:varchar(100);not null"`
	LastName  string `gorm:"column:last_name;type:varchar(100);not null"`
	Specialty string `gorm:"column:specialty;type:varchar(100);index"`

	Status Status `gorm:"column:status;type:varchar(20);default:'active';index"`
}

func (Provider) TableName() string {
	return "scheduling.providers"
}

func (p *Provider) IsActive() bool {
	return p.Status == StatusActive && p.DeletedAt == nil
}

// ServiceOffering defines one consultation type a provider sells: its price
// and how long each booked slot runs.
type ServiceOffering struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	ProviderID   uuid.UUID   `gorm:"column:provider_id;type:uuid;not null;uniqueIndex:idx_offering_provider_type"`
	Type         ServiceType `gorm:"column:type;type:varchar(50);not null;uniqueIndex:idx_offering_provider_type"`
	FeeCents     int64       `gorm:"column:fee_cents;not null"`
	DurationMins int         `gorm:"column:duration_mins;not null"`
}

func (ServiceOffering) TableName() string {
	return "scheduling.service_offerings"
}

// WeeklyAvailability is one recurring open interval on a weekday. Times are
// wall-clock "HH:MM" strings interpreted in the configured business zone;
// this is the only place civil time is stored. A provider may carry several
// rows per weekday (split shifts).
//
// Owned by provider profile management; the booking engine reads it only.
type WeeklyAvailability struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	ProviderID uuid.UUID `gorm:"column:provider_id;type:uuid;not null;index"`
	DayOfWeek  int       `gorm:"column:day_of_week;type:smallint;not null"` // 0 = Sunday
	StartTime  string    `gorm:"column:start_time;type:varchar(5);not null"`
	EndTime    string    `gorm:"column:end_time;type:varchar(5);not null"`
}

func (WeeklyAvailability) TableName() string {
	return "scheduling.weekly_availability"
}

type OverrideKind string

const (
	OverrideAvailable   OverrideKind = "available"
	OverrideUnavailable OverrideKind = "unavailable"
)

func (k OverrideKind) IsValid() bool {
	return k == OverrideAvailable || k == OverrideUnavailable
}

// ScheduleOverride is a date-bound exception to the weekly template, stored
// as UTC instants. Available overrides add bookable time; unavailable ones
// remove it and win over everything they overlap.
type ScheduleOverride struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	ProviderID uuid.UUID    `gorm:"column:provider_id;type:uuid;not null;index"`
	Kind       OverrideKind `gorm:"column:kind;type:varchar(20);not null"`
	StartsAt   time.Time    `gorm:"column:starts_at;not null;index"`
	EndsAt     time.Time    `gorm:"column:ends_at;not null"`
	Reason     string       `gorm:"column:reason;type:text"`
}

func (ScheduleOverride) TableName() string {
	return "scheduling.schedule_overrides"
}
