package submission

import (
	"regexp"
	"strings"
	"time"

	"autoblog/internal/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// MinContentLength is the shortest article body that may be sent
const MinContentLength = 200

var (
	slugRegex        = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	timeOfDayRegex   = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:[0-5]\d)?$`)
	placeholderRegex = regexp.MustCompile(`(?i)\[(image|link|insert[^\]]*|todo|placeholder)\]`)
)

// Validator decides whether a post may be sent. The reason is empty when
// the post is valid.
type Validator func(post *models.GeneratedBlogPost) (bool, string)

// CheckBlogPostBeforeSending rejects posts that are empty, unfinished or
// badly formed
func CheckBlogPostBeforeSending(post *models.GeneratedBlogPost) (bool, string) {
	title := post.PostTitle()
	err := validation.ValidateStruct(post,
		validation.Field(&post.Content,
			validation.Required.Error("content is empty"),
			validation.RuneLength(MinContentLength, 0).Error("content is too short"),
			validation.By(noPlaceholders),
			validation.By(noLeadingHeading),
		),
		validation.Field(&post.Slug,
			validation.Required.Error("slug is empty"),
			validation.Match(slugRegex).Error("slug must be lowercase words joined by dashes"),
		),
		validation.Field(&post.Description,
			validation.Required.Error("description is empty"),
		),
	)
	if err == nil {
		err = validation.Validate(title, validation.Required.Error("title is empty"))
	}
	if err != nil {
		return false, err.Error()
	}
	return true, ""
}

func noPlaceholders(value interface{}) error {
	content, _ := value.(string)
	if match := placeholderRegex.FindString(content); match != "" {
		return validation.NewError("placeholder", "content contains placeholder "+match)
	}
	return nil
}

func noLeadingHeading(value interface{}) error {
	content, _ := value.(string)
	if strings.HasPrefix(strings.TrimSpace(content), "#") {
		return validation.NewError("leading_heading", "content starts with a heading")
	}
	return nil
}

func knownTimezone(value interface{}) error {
	name, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}
	if _, err := time.LoadLocation(name.(string)); err != nil {
		return validation.NewError("unknown_timezone", "preferred_timezone is not a known time zone")
	}
	return nil
}

// ValidateSetting checks an auto-submission setting before it is stored
func ValidateSetting(s *models.AutoSubmissionSetting) error {
	return validation.ValidateStruct(s,
		validation.Field(&s.EndpointURL,
			validation.Required.Error("endpoint_url is required"),
			is.URL.Error("endpoint_url must be a URL"),
		),
		validation.Field(&s.PostsPerMonth,
			validation.Required.Error("posts_per_month must be at least 1"),
			validation.Min(1).Error("posts_per_month must be at least 1"),
		),
		validation.Field(&s.PreferredTime,
			validation.NilOrNotEmpty,
			validation.Match(timeOfDayRegex).Error("preferred_time must be HH:MM or HH:MM:SS"),
		),
		validation.Field(&s.PreferredTimezone,
			validation.NilOrNotEmpty,
			validation.By(knownTimezone),
		),
	)
}
