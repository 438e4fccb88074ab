package repository

import (
	"context"
	"errors"
	"time"

	"github.com/carebook/carebook/internal/domain/provider"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProviderRepository struct {
	db *gorm.DB
}

func NewProviderRepository(db *gorm.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

func (r *ProviderRepository) GetByID(ctx context.Context, id uuid.UUID) (*provider.Provider, error) {
	var p provider.Provider
	err := r.db.WithContext(ctx).
		Where("deleted_at IS NULL").
		First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, provider.ErrProviderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProviderRepository) GetServiceOffering(ctx context.Context, providerID uuid.UUID, t provider.ServiceType) (*provider.ServiceOffering, error) {
	var o provider.ServiceOffering
	err := r.db.WithContext(ctx).
		Where("provider_id = ? AND type = ?", providerID, t).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, provider.ErrServiceNotOffered
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *ProviderRepository) ListWeeklyAvailability(ctx context.Context, providerID uuid.UUID) ([]*provider.WeeklyAvailability, error) {
	var rows []*provider.WeeklyAvailability
	err := r.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("day_of_week ASC, start_time ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ProviderRepository) ListOverridesBetween(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*provider.ScheduleOverride, error) {
	var rows []*provider.ScheduleOverride
	err := r.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Where("starts_at < ? AND ends_at > ?", to, from).
		Order("starts_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
