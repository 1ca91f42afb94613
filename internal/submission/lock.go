package submission

import (
	"context"
	"time"

	"autoblog/internal/models"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

// ClaimProject marks a submission for the project as in flight until now+ttl.
// It reports false when another claim is still live.
func ClaimProject(ctx context.Context, db *gorm.DB, projectID uuid.UUID, now time.Time, ttl time.Duration) (bool, error) {
	now = now.UTC()
	until := now.Add(ttl)
	result := db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND (submission_locked_until IS NULL OR submission_locked_until < ?)", projectID, now).
		Update("submission_locked_until", until)
	if result.Error != nil {
		return false, eris.Wrap(result.Error, "failed to claim project for submission")
	}
	return result.RowsAffected == 1, nil
}

// ReleaseProject clears the in-flight marker of the project
func ReleaseProject(ctx context.Context, db *gorm.DB, projectID uuid.UUID) error {
	err := db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ?", projectID).
		Update("submission_locked_until", nil).Error
	if err != nil {
		return eris.Wrap(err, "failed to release project submission claim")
	}
	return nil
}
