package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectStage tracks how far a project went through the scrape and analyze stages
type ProjectStage string

const (
	StageUnscraped ProjectStage = "unscraped"
	StageScraped   ProjectStage = "scraped"
	StageAnalyzed  ProjectStage = "analyzed"
	StageFailed    ProjectStage = "failed"
)

// Project is one external site owned by a profile
type Project struct {
	ID        uuid.UUID    `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ProfileID uuid.UUID    `json:"profile_id" db:"profile_id" gorm:"type:uuid;not null;index"`
	URL       string       `json:"url" db:"url" gorm:"uniqueIndex;not null"`
	Stage     ProjectStage `json:"stage" db:"stage" gorm:"size:16;not null;default:unscraped;index"`
	// Set together with StageFailed
	FailureReason string `json:"failure_reason,omitempty" db:"failure_reason"`

	// Scrape output, overwritten on rescrape
	Title           string     `json:"title" db:"title"`
	Description     string     `json:"description" db:"description" gorm:"type:text"`
	MarkdownContent string     `json:"markdown_content" db:"markdown_content" gorm:"type:text"`
	DateScraped     *time.Time `json:"date_scraped" db:"date_scraped"`

	// Analysis output
	Name                  string     `json:"name" db:"name"`
	Type                  string     `json:"type" db:"type"`
	Summary               string     `json:"summary" db:"summary" gorm:"type:text"`
	BlogTheme             string     `json:"blog_theme" db:"blog_theme" gorm:"type:text"`
	Founders              string     `json:"founders" db:"founders" gorm:"type:text"`
	KeyFeatures           string     `json:"key_features" db:"key_features" gorm:"type:text"`
	TargetAudienceSummary string     `json:"target_audience_summary" db:"target_audience_summary" gorm:"type:text"`
	PainPoints            string     `json:"pain_points" db:"pain_points" gorm:"type:text"`
	ProductUsage          string     `json:"product_usage" db:"product_usage" gorm:"type:text"`
	Links                 string     `json:"links" db:"links" gorm:"type:text"`
	Language              string     `json:"language" db:"language"`
	ProposedKeywords      string     `json:"proposed_keywords" db:"proposed_keywords" gorm:"type:text"`
	Location              string     `json:"location" db:"location"`
	DateAnalyzed          *time.Time `json:"date_analyzed" db:"date_analyzed"`

	// Free-text answer of the competitor search model
	CompetitorsList string `json:"competitors_list,omitempty" db:"competitors_list" gorm:"type:text"`

	EnableAutomaticPostGeneration bool `json:"enable_automatic_post_generation" db:"enable_automatic_post_generation" gorm:"default:true"`
	EnableAutomaticPostSubmission bool `json:"enable_automatic_post_submission" db:"enable_automatic_post_submission" gorm:"default:false;index"`

	// Submission in flight marker, claimed by the cadence scheduler
	SubmissionLockedUntil *time.Time `json:"-" db:"submission_locked_until"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Profile            *Profile                  `json:"-" gorm:"foreignKey:ProfileID"`
	Pages              []ProjectPage             `json:"pages,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	Competitors        []Competitor              `json:"competitors,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	TitleSuggestions   []BlogPostTitleSuggestion `json:"-" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	GeneratedPosts     []GeneratedBlogPost       `json:"-" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	SubmissionSettings []AutoSubmissionSetting   `json:"-" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	ProjectKeywords    []ProjectKeyword          `json:"-" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// TableName sets the table name for the Project model
func (Project) TableName() string {
	return "projects"
}

// BeforeCreate fills the primary key and the initial stage
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	if p.Stage == "" {
		p.Stage = StageUnscraped
	}
	return nil
}

// IsAnalyzed reports whether the analyze stage completed for the project
func (p *Project) IsAnalyzed() bool {
	return p.Stage == StageAnalyzed
}

// ProjectPage is a sub-page of a project discovered from its links
type ProjectPage struct {
	ID              uuid.UUID  `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ProjectID       uuid.UUID  `json:"project_id" db:"project_id" gorm:"type:uuid;not null;uniqueIndex:idx_project_page_unique,priority:1"`
	URL             string     `json:"url" db:"url" gorm:"not null;uniqueIndex:idx_project_page_unique,priority:2"`
	Type            string     `json:"type" db:"type" gorm:"size:32;not null;default:'';uniqueIndex:idx_project_page_unique,priority:3"`
	Title           string     `json:"title" db:"title"`
	Description     string     `json:"description" db:"description" gorm:"type:text"`
	MarkdownContent string     `json:"markdown_content" db:"markdown_content" gorm:"type:text"`
	TypeAIGuess     string     `json:"type_ai_guess" db:"type_ai_guess"`
	Summary         string     `json:"summary" db:"summary" gorm:"type:text"`
	DateScraped     *time.Time `json:"date_scraped" db:"date_scraped"`
	DateAnalyzed    *time.Time `json:"date_analyzed" db:"date_analyzed"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for the ProjectPage model
func (ProjectPage) TableName() string {
	return "project_pages"
}

// BeforeCreate fills the primary key
func (p *ProjectPage) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Competitor is a competing product found for a project
type Competitor struct {
	ID          uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ProjectID   uuid.UUID `json:"project_id" db:"project_id" gorm:"type:uuid;not null;index"`
	Name        string    `json:"name" db:"name"`
	URL         string    `json:"url" db:"url"`
	Description string    `json:"description" db:"description" gorm:"type:text"`

	// Homepage scrape
	HomepageTitle   string     `json:"homepage_title" db:"homepage_title"`
	MarkdownContent string     `json:"markdown_content" db:"markdown_content" gorm:"type:text"`
	DateScraped     *time.Time `json:"date_scraped" db:"date_scraped"`

	// Analysis against the owning project
	Summary            string     `json:"summary" db:"summary" gorm:"type:text"`
	CompetitorAnalysis string     `json:"competitor_analysis" db:"competitor_analysis" gorm:"type:text"`
	KeyDifferences     string     `json:"key_differences" db:"key_differences" gorm:"type:text"`
	Strengths          string     `json:"strengths" db:"strengths" gorm:"type:text"`
	Weaknesses         string     `json:"weaknesses" db:"weaknesses" gorm:"type:text"`
	Opportunities      string     `json:"opportunities" db:"opportunities" gorm:"type:text"`
	Threats            string     `json:"threats" db:"threats" gorm:"type:text"`
	KeyFeatures        string     `json:"key_features" db:"key_features" gorm:"type:text"`
	KeyBenefits        string     `json:"key_benefits" db:"key_benefits" gorm:"type:text"`
	KeyDrawbacks       string     `json:"key_drawbacks" db:"key_drawbacks" gorm:"type:text"`
	Links              string     `json:"links" db:"links" gorm:"type:text"`
	DateAnalyzed       *time.Time `json:"date_analyzed" db:"date_analyzed"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for the Competitor model
func (Competitor) TableName() string {
	return "competitors"
}

// BeforeCreate fills the primary key
func (c *Competitor) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Keyword is a search term shared across projects
type Keyword struct {
	ID          uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	KeywordText string    `json:"keyword_text" db:"keyword_text" gorm:"not null;uniqueIndex:idx_keyword_country,priority:1"`
	Country     string    `json:"country" db:"country" gorm:"size:8;not null;default:'';uniqueIndex:idx_keyword_country,priority:2"`
	CreatedAt   time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for the Keyword model
func (Keyword) TableName() string {
	return "keywords"
}

// BeforeCreate fills the primary key
func (k *Keyword) BeforeCreate(tx *gorm.DB) error {
	ensureID(&k.ID)
	return nil
}

// ProjectKeyword links a keyword to a project. Only keywords with Use set
// are passed to content generation.
type ProjectKeyword struct {
	ID        uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ProjectID uuid.UUID `json:"project_id" db:"project_id" gorm:"type:uuid;not null;uniqueIndex:idx_project_keyword,priority:1"`
	KeywordID uuid.UUID `json:"keyword_id" db:"keyword_id" gorm:"type:uuid;not null;uniqueIndex:idx_project_keyword,priority:2"`
	Use       bool      `json:"use" db:"use" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`

	Keyword *Keyword `json:"keyword,omitempty" gorm:"foreignKey:KeywordID;constraint:OnDelete:CASCADE"`
}

// TableName sets the table name for the ProjectKeyword model
func (ProjectKeyword) TableName() string {
	return "project_keywords"
}

// BeforeCreate fills the primary key
func (pk *ProjectKeyword) BeforeCreate(tx *gorm.DB) error {
	ensureID(&pk.ID)
	return nil
}
