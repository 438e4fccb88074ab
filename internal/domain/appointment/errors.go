package appointment

import "errors"

var (
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrSlotUnavailable         = errors.New("requested time slot is already booked")
	ErrScheduledInPast         = errors.New("cannot schedule appointment in the past")
	ErrInvalidTimeRange        = errors.New("appointment end must be after its start")
	ErrInvalidStatusTransition = errors.New("invalid appointment status transition")
	ErrInvalidInitialStatus    = errors.New("initial status must be pending_payment or confirmed")
	ErrNotReschedulable        = errors.New("only confirmed appointments can be rescheduled")
)
