// Package categorize implements the keyword/weight driven two-level
// classifier. The whole thing is deterministic: same taxonomy plus same
// input text always yields the same result, and precedence is tuned via
// the weight constants in the taxonomy rather than code branches.
package categorize

import (
	"regexp"
	"sort"
	"strings"

	"servicing-insights-go/internal/types"
)

// Confidence formula coefficients. Reasonable starting points, not
// calibrated against labeled data; tune here, not inline.
const (
	BaseConfidence      = 0.4
	DefaultConfidence   = 0.3
	MaxSpecificityBonus = 0.3
	MaxMatchBonus       = 0.3
	MatchBonusStep      = 0.1
	WeightBonusScale    = 0.4
	SpecificityDivisor  = 20.0
)

const (
	DefaultCategory    = "Other"
	DefaultSubcategory = "Uncategorized"
	GeneralInquiry     = "General Inquiry"
	DefaultIntent      = "other"
)

// Categorizer evaluates text against a fixed taxonomy. Read-only after
// construction, safe for concurrent use.
type Categorizer struct {
	defs []CategoryDefinition
}

func New(defs []CategoryDefinition) *Categorizer {
	// Copy and pre-sort subcategories highest weight first so Categorize
	// never has to think about ordering again.
	owned := make([]CategoryDefinition, len(defs))
	copy(owned, defs)
	for i := range owned {
		subs := make([]Subcategory, len(owned[i].Subcategories))
		copy(subs, owned[i].Subcategories)
		sort.SliceStable(subs, func(a, b int) bool { return subs[a].Weight > subs[b].Weight })
		owned[i].Subcategories = subs
	}
	return &Categorizer{defs: owned}
}

// NewDefault builds a Categorizer over the compiled-in taxonomy.
func NewDefault() *Categorizer {
	return New(DefaultTaxonomy())
}

func defaultResult() types.CategorizationResult {
	return types.CategorizationResult{
		Category:        DefaultCategory,
		Subcategory:     DefaultSubcategory,
		Confidence:      DefaultConfidence,
		AllIssues:       []string{},
		MatchedKeywords: []string{},
	}
}

// Categorize classifies text (optionally prefixed by a ticket title) into
// the single best category/subcategory. Categories whose general keywords
// are absent are skipped without inspecting subcategories; within a
// matched category the highest-weight subcategory with a keyword hit wins
// and lower-weight siblings are not considered. Ties across categories
// keep the first found, in taxonomy declaration order.
func (c *Categorizer) Categorize(text, title string) types.CategorizationResult {
	haystack := strings.ToLower(text)
	if title != "" {
		haystack = strings.ToLower(title) + " " + haystack
	}

	best := defaultResult()
	bestConfidence := 0.0
	var issues []string

	for _, def := range c.defs {
		if !anyKeyword(haystack, def.GeneralKeywords) {
			continue
		}
		issues = append(issues, def.Name)

		for _, sub := range def.Subcategories {
			matched := matchedKeywords(haystack, sub.Keywords)
			if len(matched) == 0 {
				continue
			}
			confidence := subcategoryConfidence(matched, sub.Weight)
			if confidence > bestConfidence {
				bestConfidence = confidence
				best.Category = def.Name
				best.Subcategory = sub.Name
				best.Confidence = confidence
				best.MatchedKeywords = matched
			}
			// Highest-weight match wins deterministically; stop here.
			break
		}
	}

	best.AllIssues = dedupe(issues)
	return best
}

func subcategoryConfidence(matched []string, weight int) float64 {
	totalLen := 0
	for _, kw := range matched {
		totalLen += len(kw)
	}
	avgLen := float64(totalLen) / float64(len(matched))

	specificityBonus := minFloat(avgLen/SpecificityDivisor, MaxSpecificityBonus)
	matchBonus := minFloat(float64(len(matched))*MatchBonusStep, MaxMatchBonus)
	weightBonus := float64(weight) / 100.0 * WeightBonusScale

	return minFloat(BaseConfidence+specificityBonus+matchBonus+weightBonus, 1.0)
}

// DetectAllIssues returns every category whose general keywords appear
// anywhere in the text, for multi-issue tagging. Never empty: falls back
// to {"General Inquiry"}.
func (c *Categorizer) DetectAllIssues(text string) []string {
	haystack := strings.ToLower(text)
	var issues []string
	for _, def := range c.defs {
		if anyKeyword(haystack, def.GeneralKeywords) {
			issues = append(issues, def.Name)
		}
	}
	if len(issues) == 0 {
		return []string{GeneralInquiry}
	}
	return dedupe(issues)
}

// Intent patterns in priority order; first match wins.
var intentPatterns = []struct {
	intent string
	re     *regexp.Regexp
}{
	{"make_payment", regexp.MustCompile(`(?i)make (a |my )?payment|pay my (bill|mortgage|loan)|send (a |my )?payment`)},
	{"access_account", regexp.MustCompile(`(?i)log ?in|password|access my account|sign in|register`)},
	{"request_payoff", regexp.MustCompile(`(?i)pay ?off|payoff (quote|amount|statement)`)},
	{"understand_issue", regexp.MustCompile(`(?i)why (is|did|was|does)|don't understand|what does this mean|explain`)},
	{"missing_information", regexp.MustCompile(`(?i)didn't (get|receive)|never (got|received)|missing|haven't received`)},
	{"escalate_issue", regexp.MustCompile(`(?i)supervisor|manager|escalate|complaint`)},
	{"check_balance", regexp.MustCompile(`(?i)balance|how much (do i owe|is left)|principal`)},
	{"check_due_date", regexp.MustCompile(`(?i)due date|when is .{0,20}due|grace period`)},
}

// DetectCustomerIntent inspects only the first customer-attributed
// statement: it models why the customer called, not later topic drift.
func (c *Categorizer) DetectCustomerIntent(normalizedText string) string {
	first := firstCustomerStatement(normalizedText)
	if first == "" {
		return DefaultIntent
	}
	for _, p := range intentPatterns {
		if p.re.MatchString(first) {
			return p.intent
		}
	}
	return DefaultIntent
}

var customerStatementRe = regexp.MustCompile(`customer:\s*(.*?)(?:agent:|$)`)

func firstCustomerStatement(normalizedText string) string {
	m := customerStatementRe.FindStringSubmatch(normalizedText)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func anyKeyword(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

func matchedKeywords(haystack string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if kw != "" && strings.Contains(haystack, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
