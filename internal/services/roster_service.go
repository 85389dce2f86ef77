package services

import (
	"github.com/sirupsen/logrus"
	"github.com/aeroclub/membership-backend/internal/models"
)

// RosterService runs every raw roster record through the normalizer and
// folds the results into a statistics summary in a single pass. The only
// validation it performs is the payload shape check; per-record problems
// are absorbed by the normalizer's defaulting.
type RosterService struct {
	normalizer *Normalizer
	logger     *logrus.Logger
}

// NewRosterService creates a new RosterService
func NewRosterService(normalizer *Normalizer, logger *logrus.Logger) *RosterService {
	return &RosterService{
		normalizer: normalizer,
		logger:     logger,
	}
}

// Process converts a raw import payload into canonical profiles plus the
// run's statistics. It fails only on payload shape: a missing or
// non-sequence "records" yields ErrInvalidPayload before any per-record
// work happens.
func (s *RosterService) Process(payload map[string]any) ([]*models.MemberProfile, *models.StatisticsSummary, error) {
	if payload == nil {
		return nil, nil, ErrInvalidPayload
	}

	records, ok := models.RecordsFromPayload(payload)
	if !ok {
		return nil, nil, ErrInvalidPayload
	}

	profiles := make([]*models.MemberProfile, 0, len(records))
	stats := models.NewStatisticsSummary()

	for _, record := range records {
		profile := s.normalizer.Normalize(record)
		profiles = append(profiles, profile)
		stats.Observe(profile)
	}

	s.logger.WithFields(logrus.Fields{
		"records":  len(records),
		"active":   stats.Active,
		"inactive": stats.Inactive,
	}).Info("Roster batch processed")

	return profiles, stats, nil
}
