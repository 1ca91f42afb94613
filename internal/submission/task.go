package submission

import (
	"context"
	"errors"

	"autoblog/internal/models"
	"autoblog/internal/queue"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Task and group names of submission jobs
const (
	TaskSubmitBlogPost  = "submit_blog_post"
	GroupSubmitBlogPost = "Submit Blog Post"
)

// SubmitPayload is the job payload of TaskSubmitBlogPost
type SubmitPayload struct {
	PostID    uuid.UUID `json:"post_id"`
	ProjectID uuid.UUID `json:"project_id"`
}

// HandleSubmitJob submits one post and marks it posted on success. The
// project's in-flight marker is released whatever the outcome.
func (s *Submitter) HandleSubmitJob(ctx context.Context, payload []byte) error {
	var in SubmitPayload
	if err := queue.Decode(payload, &in); err != nil {
		return err
	}
	defer func() {
		if err := ReleaseProject(context.WithoutCancel(ctx), s.db, in.ProjectID); err != nil {
			s.log.Error("failed to release submission claim", zap.String("project_id", in.ProjectID.String()), zap.Error(err))
		}
	}()

	var post models.GeneratedBlogPost
	if err := s.db.WithContext(ctx).Preload("TitleSuggestion").Preload("Project").First(&post, "id = ?", in.PostID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Info("post no longer exists", zap.String("post_id", in.PostID.String()))
			return nil
		}
		return eris.Wrap(err, "failed to load post")
	}
	if post.Posted {
		s.log.Info("post already submitted", zap.String("post_id", post.ID.String()))
		return nil
	}

	if !s.Submit(ctx, &post) {
		return nil
	}
	return s.MarkPosted(ctx, &post)
}

// MarkPosted records a successful submission
func (s *Submitter) MarkPosted(ctx context.Context, post *models.GeneratedBlogPost) error {
	now := s.now()
	err := s.db.WithContext(ctx).Model(post).Updates(map[string]interface{}{
		"posted":      true,
		"date_posted": now,
	}).Error
	if err != nil {
		return eris.Wrap(err, "failed to mark post as posted")
	}
	post.Posted = true
	post.DatePosted = &now
	return nil
}

// RegisterHandlers binds the submission task to the runner
func (s *Submitter) RegisterHandlers(r queue.Registrar) {
	r.Register(TaskSubmitBlogPost, s.HandleSubmitJob)
}
