package services

import (
	"context"
	"fmt"

	"autoblog/internal/models"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

// Ceilings for profiles without an active entitlement
const (
	FreeTitleSuggestionLimit = 20
	FreeGeneratedPostLimit   = 5
)

// UpgradeMessage is shown to users who hit a free ceiling
const UpgradeMessage = "You have reached the limit of the free plan. Consider upgrading your plan to keep generating."

// QuotaKind names a gated generation stage
type QuotaKind string

const (
	QuotaTitles  QuotaKind = "title_suggestions"
	QuotaContent QuotaKind = "generated_posts"
)

// Reason explains a denial of kind to an API client
func Reason(kind QuotaKind) string {
	switch kind {
	case QuotaTitles:
		return fmt.Sprintf("Free plans include %d title suggestions. %s", FreeTitleSuggestionLimit, UpgradeMessage)
	case QuotaContent:
		return fmt.Sprintf("Free plans include %d generated posts. %s", FreeGeneratedPostLimit, UpgradeMessage)
	}
	return UpgradeMessage
}

// QuotaGate decides whether a profile may run a generation stage. It has no
// side effects; callers deny the operation and surface UpgradeMessage.
type QuotaGate struct {
	db     *gorm.DB
	states *ProfileStateService
}

// NewQuotaGate creates a new quota gate
func NewQuotaGate(db *gorm.DB, states *ProfileStateService) *QuotaGate {
	return &QuotaGate{db: db, states: states}
}

// Entitled reports whether the profile has an active paid entitlement.
// Superusers are always entitled.
func (g *QuotaGate) Entitled(ctx context.Context, profile *models.Profile) (bool, error) {
	if profile.IsSuperuser {
		return true, nil
	}
	state, err := g.states.CurrentState(ctx, profile.ID)
	if err != nil {
		return false, err
	}
	return state.Entitled(), nil
}

// MayGenerateTitles reports whether the profile may create requested more
// title suggestions
func (g *QuotaGate) MayGenerateTitles(ctx context.Context, profile *models.Profile, requested int) (bool, error) {
	entitled, err := g.Entitled(ctx, profile)
	if err != nil {
		return false, err
	}
	if entitled {
		return true, nil
	}
	count, err := g.TitleSuggestionCount(ctx, profile)
	if err != nil {
		return false, err
	}
	return titleQuotaAllows(count, int64(requested), entitled), nil
}

// MayGenerateContent reports whether the profile may generate another post
func (g *QuotaGate) MayGenerateContent(ctx context.Context, profile *models.Profile) (bool, error) {
	entitled, err := g.Entitled(ctx, profile)
	if err != nil {
		return false, err
	}
	if entitled {
		return true, nil
	}
	count, err := g.GeneratedPostCount(ctx, profile)
	if err != nil {
		return false, err
	}
	return contentQuotaAllows(count, entitled), nil
}

// TitleSuggestionCount counts suggestions across the profile's projects
func (g *QuotaGate) TitleSuggestionCount(ctx context.Context, profile *models.Profile) (int64, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&models.BlogPostTitleSuggestion{}).
		Joins("JOIN projects ON projects.id = blog_post_title_suggestions.project_id").
		Where("projects.profile_id = ?", profile.ID).
		Count(&count).Error
	if err != nil {
		return 0, eris.Wrap(err, "count title suggestions")
	}
	return count, nil
}

// GeneratedPostCount counts generated posts across the profile's projects
func (g *QuotaGate) GeneratedPostCount(ctx context.Context, profile *models.Profile) (int64, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&models.GeneratedBlogPost{}).
		Joins("JOIN projects ON projects.id = generated_blog_posts.project_id").
		Where("projects.profile_id = ?", profile.ID).
		Count(&count).Error
	if err != nil {
		return 0, eris.Wrap(err, "count generated posts")
	}
	return count, nil
}

func titleQuotaAllows(existing, requested int64, entitled bool) bool {
	return entitled || existing+requested < FreeTitleSuggestionLimit
}

func contentQuotaAllows(existing int64, entitled bool) bool {
	return entitled || existing < FreeGeneratedPostLimit
}
