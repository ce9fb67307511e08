package repository

import (
	"context"
	"fmt"
	"time"

	"wetalk/internal/domain"
	apperrors "wetalk/pkg/errors"
	"wetalk/pkg/logger"
)

type PresenceRepository interface {
	Touch(ctx context.Context, rec domain.PresenceRecord) error
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type presenceRepository struct {
	db  DBTX
	log logger.Logger
}

func NewPresenceRepository(db DBTX, log logger.Logger) PresenceRepository {
	return &presenceRepository{db: db, log: log}
}

func (r *presenceRepository) Touch(ctx context.Context, rec domain.PresenceRecord) error {
	query := `
		INSERT INTO active_connections (user_id, room_name, last_active)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, room_name) DO UPDATE SET last_active = EXCLUDED.last_active
	`

	if _, err := r.db.Exec(ctx, query, rec.UserID, rec.Channel, rec.LastActive); err != nil {
		r.log.Error("Failed to touch presence", "error", err, "user_id", rec.UserID, "room_name", rec.Channel)
		return fmt.Errorf("%w: %v", apperrors.ErrTransientStore, err)
	}

	return nil
}

// DeleteStale removes records last seen strictly before cutoff.
func (r *presenceRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM active_connections WHERE last_active < $1`, cutoff)
	if err != nil {
		r.log.Error("Failed to delete stale presence", "error", err)
		return 0, fmt.Errorf("%w: %v", apperrors.ErrTransientStore, err)
	}

	return tag.RowsAffected(), nil
}
