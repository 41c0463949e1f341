package services

import (
	"context"
	"fmt"

	"routelynk/internal/logger"
	"routelynk/internal/models"
	"routelynk/internal/storage"
)

// StatsService derives vendor dashboard numbers from payments, tickets and
// bookings. Pure read; only as fresh as the store's read consistency.
type StatsService struct {
	store storage.Store
	log   *logger.Logger
}

func NewStatsService(store storage.Store, log *logger.Logger) *StatsService {
	return &StatsService{store: store, log: log}
}

func (s *StatsService) VendorStats(ctx context.Context, vendorEmail string) (*models.VendorStats, error) {
	stats, err := s.store.VendorStats(vendorEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate vendor stats: %w", err)
	}

	s.log.Debug("STATS", fmt.Sprintf("Vendor %s: revenue=%.2f sold=%d added=%d pending=%d",
		vendorEmail, stats.TotalRevenue, stats.TotalSold, stats.TotalAdded, stats.PendingRequests))
	return stats, nil
}
