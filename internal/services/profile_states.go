package services

import (
	"context"
	"encoding/json"
	"errors"

	"autoblog/internal/models"
	"autoblog/internal/queue"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TaskTrackStateChange records a profile transition in the background
const TaskTrackStateChange = "track_state_change"

// ErrInvalidState is returned for transitions to an unknown state
var ErrInvalidState = errors.New("invalid profile state")

// TrackStateChangePayload is the job payload of TaskTrackStateChange
type TrackStateChangePayload struct {
	ProfileID uuid.UUID      `json:"profile_id"`
	ToState   string         `json:"to_state"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ProfileStateService maintains the append-only lifecycle log of profiles
type ProfileStateService struct {
	db    *gorm.DB
	queue queue.Enqueuer
	log   *zap.Logger
}

// NewProfileStateService creates a new profile state service
func NewProfileStateService(db *gorm.DB, q queue.Enqueuer, log *zap.Logger) *ProfileStateService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileStateService{db: db, queue: q, log: log}
}

// CurrentState returns the to_state of the latest transition, or stranger
// when the profile has none
func (s *ProfileStateService) CurrentState(ctx context.Context, profileID uuid.UUID) (models.ProfileState, error) {
	return currentState(s.db.WithContext(ctx), profileID)
}

func currentState(db *gorm.DB, profileID uuid.UUID) (models.ProfileState, error) {
	latest, err := latestTransition(db, profileID)
	if err != nil {
		return "", err
	}
	if latest == nil {
		return models.StateStranger, nil
	}
	return latest.ToState, nil
}

// latestTransition orders by the per-profile sequence so transitions written
// within the same clock tick still resolve deterministically
func latestTransition(db *gorm.DB, profileID uuid.UUID) (*models.ProfileStateTransition, error) {
	var latest models.ProfileStateTransition
	err := db.Where("profile_id = ?", profileID).
		Order("seq DESC, created_at DESC").
		Limit(1).
		Take(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "load latest transition")
	}
	return &latest, nil
}

// Transition appends a transition to the log and refreshes the cached state.
// It is a no-op when the profile is already in the target state and reports
// whether a row was written.
func (s *ProfileStateService) Transition(ctx context.Context, profileID uuid.UUID, to models.ProfileState, metadata map[string]any) (bool, error) {
	if !to.Valid() {
		return false, eris.Wrapf(ErrInvalidState, "%q", to)
	}

	var raw datatypes.JSON
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return false, eris.Wrap(err, "marshal transition metadata")
		}
		raw = datatypes.JSON(b)
	}

	written := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		latest, err := latestTransition(tx, profileID)
		if err != nil {
			return err
		}
		from, seq := models.StateStranger, int64(1)
		if latest != nil {
			from, seq = latest.ToState, latest.Seq+1
		}
		if from == to {
			return nil
		}

		transition := &models.ProfileStateTransition{
			ProfileID: profileID,
			Seq:       seq,
			FromState: from,
			ToState:   to,
			Metadata:  raw,
		}
		if err := tx.Create(transition).Error; err != nil {
			return eris.Wrap(err, "create transition")
		}

		res := tx.Model(&models.Profile{}).Where("id = ?", profileID).Update("state", to)
		if res.Error != nil {
			return eris.Wrap(res.Error, "update cached state")
		}
		if res.RowsAffected == 0 {
			return eris.Wrapf(gorm.ErrRecordNotFound, "profile %s", profileID)
		}

		written = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if written {
		s.log.Info("profile state changed",
			zap.String("profile_id", profileID.String()),
			zap.String("to_state", string(to)),
		)
	}
	return written, nil
}

// TrackStateChange schedules a transition on a background worker. Failures
// to enqueue are logged and dropped; the next transition catches up.
func (s *ProfileStateService) TrackStateChange(ctx context.Context, profileID uuid.UUID, to models.ProfileState, metadata map[string]any) {
	payload := TrackStateChangePayload{ProfileID: profileID, ToState: string(to), Metadata: metadata}
	if _, err := s.queue.Enqueue(ctx, TaskTrackStateChange, payload, queue.Group("Track State Change")); err != nil {
		s.log.Warn("failed to enqueue state change",
			zap.String("profile_id", profileID.String()),
			zap.String("to_state", string(to)),
			zap.Error(err),
		)
	}
}

// HandleTrackStateChange is the queue handler for TaskTrackStateChange
func (s *ProfileStateService) HandleTrackStateChange(ctx context.Context, payload []byte) error {
	var p TrackStateChangePayload
	if err := queue.Decode(payload, &p); err != nil {
		return err
	}
	_, err := s.Transition(ctx, p.ProfileID, models.ProfileState(p.ToState), p.Metadata)
	return err
}
