package extractor

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/project-tktt/indeed-crawler/internal/domain"
)

// ErrMissingField is returned when a required field's locator matches nothing
var ErrMissingField = errors.New("missing field")

// Field names a JobRecord field
type Field string

const (
	FieldTitle       Field = "title"
	FieldCompany     Field = "company"
	FieldLocation    Field = "location"
	FieldDescription Field = "description"
)

// Locator finds an element by tag name and a whitespace-separated attribute token,
// e.g. {Tag: "div", Attr: "class", Value: "jobsearch-InlineCompanyRating"}
type Locator struct {
	Tag   string
	Attr  string
	Value string
}

// Selector renders the locator as a CSS selector
func (l Locator) Selector() string {
	if l.Attr == "" {
		return l.Tag
	}
	return fmt.Sprintf(`%s[%s~=%q]`, l.Tag, l.Attr, l.Value)
}

// Rule binds a locator to the field it fills
type Rule struct {
	Field   Field
	Locator Locator
}

// IndeedDetailRules locate the four required fields on an Indeed job detail page
var IndeedDetailRules = []Rule{
	{Field: FieldTitle, Locator: Locator{Tag: "h1", Attr: "class", Value: "jobsearch-JobInfoHeader-title"}},
	{Field: FieldCompany, Locator: Locator{Tag: "div", Attr: "class", Value: "jobsearch-InlineCompanyRating"}},
	{Field: FieldLocation, Locator: Locator{Tag: "div", Attr: "class", Value: "jobsearch-JobInfoHeader-subtitle"}},
	{Field: FieldDescription, Locator: Locator{Tag: "div", Attr: "id", Value: "jobDescriptionText"}},
}

// Extractor turns a detail-page document into a Job using a rule table
type Extractor struct {
	rules  []Rule
	logger *slog.Logger
}

// New creates an Extractor. Nil rules means IndeedDetailRules.
func New(rules []Rule, logger *slog.Logger) *Extractor {
	if rules == nil {
		rules = IndeedDetailRules
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := make([]Rule, len(rules))
	copy(r, rules)
	return &Extractor{rules: r, logger: logger}
}

// Extract applies every rule to document. If any rule matches nothing the
// result is an ErrMissingField error and no Job.
func (e *Extractor) Extract(sourceURL, document string) (*domain.Job, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	job := &domain.Job{URL: sourceURL}
	for _, rule := range e.rules {
		sel := doc.Find(rule.Locator.Selector()).First()
		if sel.Length() == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, rule.Field)
		}
		if err := assign(job, rule.Field, strings.TrimSpace(sel.Text())); err != nil {
			return nil, err
		}
		if rule.Field == FieldDescription {
			// Html only fails on a broken node tree, which goquery never builds
			job.DescriptionHTML, _ = sel.Html()
		}
	}

	e.logger.Info("[Indeed] Job offer extracted", "url", sourceURL)
	return job, nil
}

func assign(job *domain.Job, field Field, value string) error {
	switch field {
	case FieldTitle:
		job.Title = value
	case FieldCompany:
		job.Company = value
	case FieldLocation:
		job.Location = value
	case FieldDescription:
		job.Description = value
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}
