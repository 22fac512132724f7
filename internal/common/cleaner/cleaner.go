package cleaner

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// Cleaner turns scraped description markup into plain text using Bluemonday
type Cleaner struct {
	policy *bluemonday.Policy
}

// NewCleaner creates a cleaner that strips all HTML
func NewCleaner() *Cleaner {
	return &Cleaner{policy: bluemonday.StrictPolicy()}
}

// CleanToText removes all markup and squeezes runs of blank lines. The
// result is plain text, so entities escaped by the sanitizer are decoded.
func (c *Cleaner) CleanToText(content string) string {
	text := html.UnescapeString(c.policy.Sanitize(content))
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
