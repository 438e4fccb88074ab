package provider

import "errors"

var (
	ErrProviderNotFound  = errors.New("provider not found")
	ErrProviderInactive  = errors.New("provider is not accepting bookings")
	ErrServiceNotOffered = errors.New("provider does not offer this service type")
	ErrInvalidWeekday    = errors.New("day of week must be between 0 (Sunday) and 6 (Saturday)")
)
