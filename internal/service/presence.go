package service

import (
	"context"
	"fmt"
	"time"

	"wetalk/internal/domain"
	"wetalk/internal/metrics"
	"wetalk/internal/repository"
	apperrors "wetalk/pkg/errors"
	"wetalk/pkg/logger"
)

type PresenceService interface {
	Touch(ctx context.Context, userID int64, channel string) error
	// Sweep deletes records idle for longer than staleness and returns how
	// many were removed.
	Sweep(ctx context.Context, staleness time.Duration) (int64, error)
}

type presenceService struct {
	presenceRepo repository.PresenceRepository
	log          logger.Logger
	now          func() time.Time
}

func NewPresenceService(presenceRepo repository.PresenceRepository, log logger.Logger) PresenceService {
	return &presenceService{
		presenceRepo: presenceRepo,
		log:          log,
		now:          time.Now,
	}
}

func (s *presenceService) Touch(ctx context.Context, userID int64, channel string) error {
	return s.presenceRepo.Touch(ctx, domain.PresenceRecord{UserID: userID, Channel: channel, LastActive: s.now()})
}

func (s *presenceService) Sweep(ctx context.Context, staleness time.Duration) (int64, error) {
	if staleness <= 0 {
		return 0, fmt.Errorf("%w: staleness must be positive", apperrors.ErrBadRequest)
	}

	removed, err := s.presenceRepo.DeleteStale(ctx, s.now().Add(-staleness))
	if err != nil {
		return 0, err
	}

	metrics.PresenceSwept.Add(float64(removed))
	if removed > 0 {
		s.log.Info("Stale presence records removed", "count", removed, "staleness", staleness.String())
	}

	return removed, nil
}
