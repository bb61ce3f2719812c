package service

import (
	"context"

	"topicrelay/internal/repository"

	"go.uber.org/zap"
)

// MaintenanceService handles periodic cleanup of expired records
type MaintenanceService struct {
	store  repository.Purger
	logger *zap.Logger
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(store repository.Purger, logger *zap.Logger) *MaintenanceService {
	return &MaintenanceService{
		store:  store,
		logger: logger,
	}
}

// CleanupExpired removes expired tickets, batches and bindings from the store
func (s *MaintenanceService) CleanupExpired(ctx context.Context) error {
	s.logger.Info("Starting cleanup of expired records")

	n, err := s.store.PurgeExpired(ctx)
	if err != nil {
		s.logger.Error("Failed to cleanup expired records", zap.Error(err))
		return err
	}

	s.logger.Info("Cleanup completed successfully", zap.Int64("removed", n))
	return nil
}
