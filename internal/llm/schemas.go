package llm

// ProjectAnalysis is the structured analysis of a project homepage
type ProjectAnalysis struct {
	Name                  string `json:"name"`
	Type                  string `json:"type"`
	Summary               string `json:"summary"`
	BlogTheme             string `json:"blog_theme"`
	Founders              string `json:"founders"`
	KeyFeatures           string `json:"key_features"`
	TargetAudienceSummary string `json:"target_audience_summary"`
	PainPoints            string `json:"pain_points"`
	ProductUsage          string `json:"product_usage"`
	Links                 string `json:"links"`
	Language              string `json:"language"`
	ProposedKeywords      string `json:"proposed_keywords"`
	Location              string `json:"location"`
}

const projectAnalysisSchema = `{
  "name": "string, product or company name",
  "type": "string, one of SaaS, Hospitality, Newsletter, Blog, Agency, E-commerce, Other",
  "summary": "string",
  "blog_theme": "string, themes a blog for this product should cover",
  "founders": "string, founders if mentioned, otherwise empty",
  "key_features": "string",
  "target_audience_summary": "string",
  "pain_points": "string",
  "product_usage": "string",
  "links": "string, every link found on the page, one per line",
  "language": "string, language the site is written in, e.g. English",
  "proposed_keywords": "string, comma separated SEO keywords",
  "location": "string, country or Global"
}`

// TitleSuggestion is one candidate title
type TitleSuggestion struct {
	Title                    string   `json:"title"`
	Category                 string   `json:"category"`
	TargetKeywords           []string `json:"target_keywords"`
	Description              string   `json:"description"`
	SuggestedMetaDescription string   `json:"suggested_meta_description"`
}

// TitleSuggestions is the batch answer of the suggestion stage
type TitleSuggestions struct {
	Titles []TitleSuggestion `json:"titles"`
}

const titleSuggestionsSchema = `{
  "titles": [
    {
      "title": "string",
      "category": "string, one of General Audience, Niche Audience, Industry/Company",
      "target_keywords": ["string"],
      "description": "string, what the post covers",
      "suggested_meta_description": "string, at most 160 characters"
    }
  ]
}`

// BlogPostContent is a generated article
type BlogPostContent struct {
	Description string `json:"description"`
	Slug        string `json:"slug"`
	Tags        string `json:"tags"`
	Content     string `json:"content"`
}

const blogPostContentSchema = `{
  "description": "string, meta description",
  "slug": "string, lowercase words joined by dashes",
  "tags": "string, comma separated",
  "content": "string, the full article in markdown"
}`

// CompetitorDetails is one structured competitor
type CompetitorDetails struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// CompetitorList is the structured form of the free-text competitor search
type CompetitorList struct {
	Competitors []CompetitorDetails `json:"competitors"`
}

const competitorListSchema = `{
  "competitors": [
    {"name": "string", "url": "string, homepage URL", "description": "string"}
  ]
}`

// CompetitorAnalysis compares a competitor with the owning project
type CompetitorAnalysis struct {
	Summary            string `json:"summary"`
	CompetitorAnalysis string `json:"competitor_analysis"`
	KeyDifferences     string `json:"key_differences"`
	Strengths          string `json:"strengths"`
	Weaknesses         string `json:"weaknesses"`
	Opportunities      string `json:"opportunities"`
	Threats            string `json:"threats"`
	KeyFeatures        string `json:"key_features"`
	KeyBenefits        string `json:"key_benefits"`
	KeyDrawbacks       string `json:"key_drawbacks"`
	Links              string `json:"links"`
}

const competitorAnalysisSchema = `{
  "summary": "string",
  "competitor_analysis": "string, markdown comparison with our project",
  "key_differences": "string",
  "strengths": "string",
  "weaknesses": "string",
  "opportunities": "string",
  "threats": "string",
  "key_features": "string",
  "key_benefits": "string",
  "key_drawbacks": "string",
  "links": "string"
}`

// PageDetails is the analysis of one project sub-page
type PageDetails struct {
	Type        string `json:"type"`
	TypeAIGuess string `json:"type_ai_guess"`
	Summary     string `json:"summary"`
}

const pageDetailsSchema = `{
  "type": "string, one of HOME, ABOUT, PRICING, FAQ, BLOG, LEGAL, OTHER",
  "type_ai_guess": "string, free form guess of the page type",
  "summary": "string"
}`

// LinkList is a list of page URLs worth analyzing
type LinkList struct {
	Links []string `json:"links"`
}

const linkListSchema = `{"links": ["string, absolute URL"]}`
