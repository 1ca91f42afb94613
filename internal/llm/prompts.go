package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"autoblog/internal/models"
)

var titleSystemPrompts = map[models.ContentType]string{
	models.ContentTypeSharing: `You write blog post titles that people want to read and share.
Titles are specific, promise a clear outcome and avoid clickbait.
Mix the categories General Audience, Niche Audience and Industry/Company.`,
	models.ContentTypeSEO: `You are an SEO strategist. Suggest blog post titles that target
search intent the product can rank for. Prefer long-tail keywords and
give each title the keywords it targets.`,
}

var contentSystemPrompts = map[models.ContentType]string{
	models.ContentTypeSharing: `You write engaging, opinionated blog posts that readers share.
Use short paragraphs, concrete examples and a clear takeaway.`,
	models.ContentTypeSEO: `You write search optimized blog posts. Cover the topic fully,
answer the questions searchers ask and use the target keywords naturally.`,
}

// ProjectDetails is the project context shared by most prompts
func ProjectDetails(p *models.Project) string {
	return fmt.Sprintf(`Project Details:
- Project Name: %s
- Project Type: %s
- Project Summary: %s
- Blog Theme: %s
- Founders: %s
- Key Features: %s
- Target Audience: %s
- Pain Points: %s
- Product Usage: %s`,
		p.Name, p.Type, p.Summary, p.BlogTheme, p.Founders, p.KeyFeatures,
		p.TargetAudienceSummary, p.PainPoints, p.ProductUsage)
}

func todaysDate(now time.Time) string {
	return "Today's Date: " + now.Format("2006-01-02")
}

func languageInstruction(language string) string {
	if language == "" {
		language = "English"
	}
	return fmt.Sprintf("IMPORTANT: Write in %s. Make sure the text is grammatically correct and natural for %s-speaking audiences.", language, language)
}

// WebPage is the scraped input of the analysis prompts
type WebPage struct {
	Title       string
	Description string
	Markdown    string
	HTML        string
}

func (w WebPage) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Web page title: %s\nWeb page description: %s\nWeb page content:\n%s", w.Title, w.Description, w.Markdown)
	if w.HTML != "" {
		fmt.Fprintf(&b, "\n\nRaw HTML (use it for links):\n%s", truncate(w.HTML, 60000))
	}
	return b.String()
}

// AnalyzeProject analyzes a project homepage
func AnalyzeProject(ctx context.Context, agent Agent, page WebPage, out *ProjectAnalysis) error {
	req := Request{
		Name: "analyze_project",
		System: []string{
			"You are an expert marketer. Analyze the web page of a product and extract the key information about the business.",
			page.String(),
		},
		User: "Please analyze this web page content and extract the key information.",
	}
	return agent.Structured(ctx, req, projectAnalysisSchema, out)
}

// TitleContext is the input of the suggestion prompt
type TitleContext struct {
	Project     *models.Project
	ContentType models.ContentType
	Count       int
	UserPrompt  string
	Liked       []string
	Disliked    []string
	Neutral     []string
	Now         time.Time
}

// SuggestTitles generates a batch of title suggestions
func SuggestTitles(ctx context.Context, agent Agent, in TitleContext, out *TitleSuggestions) error {
	system := []string{
		titleSystemPrompts[in.ContentType],
		todaysDate(in.Now),
		ProjectDetails(in.Project),
		fmt.Sprintf("Generate exactly %d title suggestions.", in.Count),
		languageInstruction(in.Project.Language),
	}
	if in.UserPrompt != "" {
		system = append(system, "The user gave these extra instructions, follow them:\n"+in.UserPrompt)
	}
	if feedback := feedbackHistory(in); feedback != "" {
		system = append(system, feedback)
	}

	req := Request{
		Name:        "generate_title_suggestions",
		System:      system,
		User:        "Please generate blog post title suggestions based on the project details.",
		Temperature: 0.9,
	}
	return agent.Structured(ctx, req, titleSuggestionsSchema, out)
}

func feedbackHistory(in TitleContext) string {
	if len(in.Liked) == 0 && len(in.Disliked) == 0 && len(in.Neutral) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Use the user's feedback on previous titles. Do not repeat any of them.\n")
	writeList(&b, "Titles the user liked, suggest more like these:", in.Liked)
	writeList(&b, "Titles the user disliked, avoid this style:", in.Disliked)
	writeList(&b, "Titles already suggested:", in.Neutral)
	return b.String()
}

func writeList(b *strings.Builder, header string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(header + "\n")
	for _, item := range items {
		b.WriteString("- " + item + "\n")
	}
}

// ContentContext is the input of the article prompt
type ContentContext struct {
	Project    *models.Project
	Suggestion *models.BlogPostTitleSuggestion
	Pages      []models.ProjectPage
	Keywords   []string
	Now        time.Time
}

// GenerateContent writes the article for a title suggestion
func GenerateContent(ctx context.Context, agent Agent, in ContentContext, out *BlogPostContent) error {
	s := in.Suggestion
	keywords := "None specified"
	if len(s.TargetKeywords) > 0 {
		keywords = strings.Join(s.TargetKeywords, ", ")
	}
	meta := s.SuggestedMetaDescription
	if meta == "" {
		meta = "None specified"
	}

	system := []string{
		contentSystemPrompts[s.ContentType],
		todaysDate(in.Now),
		ProjectDetails(in.Project),
		fmt.Sprintf(`This is the title suggestion to write about:
- Title: %s
- Description: %s
- Category: %s
- Target Keywords: %s
- Suggested Meta Description: %s`, s.Title, s.Description, s.Category, keywords, meta),
		languageInstruction(in.Project.Language),
	}
	if len(in.Pages) > 0 {
		var b strings.Builder
		b.WriteString("These are pages of the project. Link to them where it makes sense:\n")
		for _, page := range in.Pages {
			fmt.Fprintf(&b, "- Title: %s\n  URL: %s\n  Description: %s\n  Summary: %s\n", page.Title, page.URL, page.Description, page.Summary)
		}
		system = append(system, b.String())
	}
	if len(in.Keywords) > 0 {
		system = append(system, "Focus keywords for SEO, use them where they fit naturally: "+strings.Join(in.Keywords, ", "))
	}
	system = append(system, `Formatting rules:
- Write valid markdown with paragraphs, lists and links.
- Do not start with a heading. Start with a plain text introduction.
- Use ## for sections. Do not use ### or deeper.
- No placeholders such as [Image] or [Link], and nothing to fill in later.`)

	req := Request{
		Name:        "generate_content",
		System:      system,
		User:        "Please generate an article based on the project details and title suggestion.",
		Temperature: 0.8,
		MaxTokens:   16000,
	}
	return agent.Structured(ctx, req, blogPostContentSchema, out)
}

// ExtractLinks picks the project links worth analyzing as sub-pages
func ExtractLinks(ctx context.Context, agent Agent, project *models.Project, out *LinkList) error {
	req := Request{
		Name: "get_a_list_of_links",
		System: []string{
			"You pick the pages of a website that describe the product: pricing, about, features, FAQ and docs. Skip legal pages, social networks and external sites.",
			"Links found on the homepage:\n" + project.Links,
			"Homepage URL: " + project.URL,
		},
		User: "Return the absolute URLs of the pages worth analyzing.",
	}
	return agent.Structured(ctx, req, linkListSchema, out)
}

// FindCompetitors asks the search model for competitors in free text
func FindCompetitors(ctx context.Context, agent Agent, project *models.Project) (string, error) {
	location := project.Location
	if location == "" {
		location = "Global"
	}
	req := Request{
		Name: "find_competitors",
		System: []string{
			"You research markets. Find direct competitors of the product described below.",
			ProjectDetails(project),
			"Return up to 10 competitors. For each give the name, the homepage URL and a one sentence description.",
			languageInstruction(project.Language),
			"Prefer competitors operating in: " + location,
		},
		User: "Who are the competitors of this product?",
	}
	return agent.Complete(ctx, req)
}

// StructureCompetitors turns the free-text competitor list into records
func StructureCompetitors(ctx context.Context, agent Agent, competitorsText string, out *CompetitorList) error {
	req := Request{
		Name: "get_and_save_list_of_competitors",
		System: []string{
			"Extract the competitors mentioned in the text below. Skip entries without a homepage URL.",
			competitorsText,
		},
		User: "Extract the list of competitors.",
	}
	return agent.Structured(ctx, req, competitorListSchema, out)
}

// AnalyzeCompetitor compares a scraped competitor with the project
func AnalyzeCompetitor(ctx context.Context, agent Agent, project *models.Project, competitor *models.Competitor, now time.Time, out *CompetitorAnalysis) error {
	req := Request{
		Name: "analyze_competitor",
		System: []string{
			"You are a product strategist. Compare the competitor with our project.",
			todaysDate(now),
			ProjectDetails(project),
			fmt.Sprintf("Competitor Details:\n- Name: %s\n- URL: %s\n- Description: %s\n- Homepage content:\n%s",
				competitor.Name, competitor.URL, competitor.Description, competitor.MarkdownContent),
			languageInstruction(project.Language),
		},
		User: "Please analyze this competitor.",
	}
	return agent.Structured(ctx, req, competitorAnalysisSchema, out)
}

// AnalyzePage summarizes a project sub-page
func AnalyzePage(ctx context.Context, agent Agent, page WebPage, out *PageDetails) error {
	req := Request{
		Name: "analyze_project_page",
		System: []string{
			"Classify the web page and summarize what it tells a reader about the product.",
			page.String(),
		},
		User: "Please analyze this page.",
	}
	return agent.Structured(ctx, req, pageDetailsSchema, out)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
