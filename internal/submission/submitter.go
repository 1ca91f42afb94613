package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"autoblog/internal/metrics"
	"autoblog/internal/models"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultTimeout bounds one submission request
const DefaultTimeout = 15 * time.Second

// ErrNoSetting is returned when a project has no usable submission setting
var ErrNoSetting = errors.New("no auto-submission setting")

// Submission results reported to metrics
const (
	ResultSuccess   = "success"
	ResultInvalid   = "invalid"
	ResultNoSetting = "no_setting"
	ResultTemplate  = "template_error"
	ResultTransport = "transport_error"
	ResultRejected  = "rejected"
)

// Submitter sends generated posts to the endpoint configured for their project
type Submitter struct {
	db        *gorm.DB
	validate  Validator
	transport http.RoundTripper
	timeout   time.Duration
	log       *zap.Logger
	now       func() time.Time
}

// NewSubmitter creates a submitter. A nil validator uses
// CheckBlogPostBeforeSending.
func NewSubmitter(db *gorm.DB, validate Validator, log *zap.Logger) *Submitter {
	if validate == nil {
		validate = CheckBlogPostBeforeSending
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Submitter{db: db, validate: validate, timeout: DefaultTimeout, log: log, now: time.Now}
}

// LatestSetting returns the authoritative setting of a project
func LatestSetting(ctx context.Context, db *gorm.DB, projectID interface{}) (*models.AutoSubmissionSetting, error) {
	var setting models.AutoSubmissionSetting
	err := db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSetting
	}
	if err != nil {
		return nil, eris.Wrap(err, "failed to load auto-submission setting")
	}
	return &setting, nil
}

// Submit validates the post and sends it to the project's endpoint. It
// reports true only for a 2xx answer. Failures are logged, never returned;
// marking the post as posted is up to the caller.
func (s *Submitter) Submit(ctx context.Context, post *models.GeneratedBlogPost) bool {
	log := s.log.With(
		zap.String("post_id", post.ID.String()),
		zap.String("project_id", post.ProjectID.String()),
	)

	if err := s.loadRelations(ctx, post); err != nil {
		log.Error("failed to load post relations", zap.Error(err))
		metrics.ObserveSubmission(ResultTemplate)
		return false
	}

	if ok, reason := s.validate(post); !ok {
		log.Warn("post failed validation, not submitting", zap.String("reason", reason))
		metrics.ObserveSubmission(ResultInvalid)
		return false
	}

	setting, err := LatestSetting(ctx, s.db, post.ProjectID)
	if err != nil {
		log.Warn("no auto-submission setting, not submitting", zap.Error(err))
		metrics.ObserveSubmission(ResultNoSetting)
		return false
	}
	if setting.EndpointURL == "" {
		log.Warn("auto-submission setting has no endpoint url, not submitting")
		metrics.ObserveSubmission(ResultNoSetting)
		return false
	}
	log = log.With(zap.String("endpoint", setting.EndpointURL))

	req, err := s.buildRequest(ctx, setting, NewPostView(post))
	if err != nil {
		log.Error("failed to render submission", zap.Error(err))
		metrics.ObserveSubmission(ResultTemplate)
		return false
	}

	// A client per submission keeps no cookies between requests. Redirects
	// are never followed, a 3xx counts as a failure.
	client := &http.Client{
		Timeout:   s.timeout,
		Transport: s.transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Error("submission request failed", zap.Error(err))
		metrics.ObserveSubmission(ResultTransport)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Warn("endpoint rejected submission",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(body)))
		metrics.ObserveSubmission(ResultRejected)
		return false
	}

	log.Info("post submitted", zap.Int("status", resp.StatusCode))
	metrics.ObserveSubmission(ResultSuccess)
	return true
}

func (s *Submitter) loadRelations(ctx context.Context, post *models.GeneratedBlogPost) error {
	if post.TitleSuggestion == nil && post.TitleSuggestionID != nil {
		var suggestion models.BlogPostTitleSuggestion
		err := s.db.WithContext(ctx).First(&suggestion, "id = ?", *post.TitleSuggestionID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return eris.Wrap(err, "failed to load title suggestion")
		}
		if err == nil {
			post.TitleSuggestion = &suggestion
		}
	}
	if post.Project == nil {
		var project models.Project
		if err := s.db.WithContext(ctx).First(&project, "id = ?", post.ProjectID).Error; err != nil {
			return eris.Wrap(err, "failed to load project")
		}
		post.Project = &project
	}
	return nil
}

// BuildPreview renders the headers and body a submission would send
func BuildPreview(setting *models.AutoSubmissionSetting, view Resolver) (map[string]string, any, error) {
	headers, err := RenderHeaders(setting.Header, view)
	if err != nil {
		return nil, nil, eris.Wrap(err, "failed to render headers")
	}
	body, err := RenderJSON(setting.Body, view)
	if err != nil {
		return nil, nil, eris.Wrap(err, "failed to render body")
	}
	return headers, body, nil
}

func (s *Submitter) buildRequest(ctx context.Context, setting *models.AutoSubmissionSetting, view Resolver) (*http.Request, error) {
	headers, body, err := BuildPreview(setting, view)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, eris.Wrap(err, "failed to encode body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, setting.EndpointURL, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "failed to build request")
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
