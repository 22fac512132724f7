package blocker

import "strings"

// DefaultIndicators are phrases an anti-bot interstitial shows instead of real content
var DefaultIndicators = []string{
	"Please verify you are a human",
	"Please solve this CAPTCHA",
	"Access to this page has been denied",
	"Your IP address has been temporarily blocked",
}

// Detector classifies fetched documents as blocked or legitimate.
// It holds no mutable state and is safe for concurrent use.
type Detector struct {
	indicators []string // lowercased
}

// NewDetector creates a detector matching DefaultIndicators plus any extra phrases
func NewDetector(extra ...string) *Detector {
	all := make([]string, 0, len(DefaultIndicators)+len(extra))
	all = append(all, DefaultIndicators...)
	all = append(all, extra...)
	return NewDetectorWithIndicators(all)
}

// NewDetectorWithIndicators replaces the default set entirely
func NewDetectorWithIndicators(indicators []string) *Detector {
	seen := make(map[string]bool, len(indicators))
	lowered := make([]string, 0, len(indicators))
	for _, ind := range indicators {
		ind = strings.ToLower(strings.TrimSpace(ind))
		if ind == "" || seen[ind] {
			continue
		}
		seen[ind] = true
		lowered = append(lowered, ind)
	}
	return &Detector{indicators: lowered}
}

// IsBlocked reports whether the document contains any blocking indicator,
// case-insensitively and at any position
func (d *Detector) IsBlocked(document string) bool {
	if document == "" {
		return false
	}
	lower := strings.ToLower(document)
	for _, ind := range d.indicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

// Indicators returns the normalized indicator list
func (d *Detector) Indicators() []string {
	out := make([]string, len(d.indicators))
	copy(out, d.indicators)
	return out
}
