package service

import (
	"context"
	"time"

	"wetalk/internal/repository"
	"wetalk/pkg/logger"
)

type RateLimitService interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	log           logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		log:           log,
	}
}

// Allow counts one hit for key. When the counter store fails the hit is
// allowed and the error is still returned.
func (s *rateLimitService) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	ok, err := s.rateLimitRepo.Allow(ctx, key, limit, window)
	if err != nil {
		s.log.Warn("Rate limiter unavailable, allowing request", "error", err, "key", key)
		return true, err
	}
	return ok, nil
}
