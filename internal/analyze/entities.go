package analyze

import (
	"regexp"
	"strings"

	"servicing-insights-go/internal/types"
)

// Entity extraction is best-effort pattern matching over noisy text.
// False positives are expected; nothing here is verified PII.

var loanNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)loan\s*(?:number|no\.?|#)?[:\s#]*([A-Z]{0,3}\d[\dA-Z-]{5,})`),
	regexp.MustCompile(`(?i)account\s*(?:number|no\.?|#)?[:\s#]*(\d[\d-]{5,})`),
	regexp.MustCompile(`\b(\d{8,12})\b`),
}

var (
	emailRe  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phoneRe  = regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	dollarRe = regexp.MustCompile(`\$\s?[\d,]+(?:\.\d{2})?`)
	nameRe   = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s[A-Z][a-z]+){1,2})\b`)

	slashDateRe = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	longDateRe  = regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s\d{1,2},?\s\d{4}\b`)

	nonDigitRe = regexp.MustCompile(`\D`)
)

// Domain nouns that look like capitalized names but never are.
var nameExcludeWords = map[string]struct{}{
	"Customer": {}, "Agent": {}, "Escrow": {}, "Loan": {}, "Mortgage": {},
	"Payment": {}, "Account": {}, "Insurance": {}, "Thank": {}, "Thanks": {},
	"Good": {}, "Morning": {}, "Afternoon": {}, "Hello": {}, "Okay": {},
	"Monday": {}, "Tuesday": {}, "Wednesday": {}, "Thursday": {}, "Friday": {},
}

const minLoanNumberLen = 7

// ExtractEntities pulls loan numbers, candidate customer names, emails,
// phone numbers, dollar amounts and dates out of a transcript.
func ExtractEntities(text string) types.ExtractedEntities {
	return types.ExtractedEntities{
		LoanNumbers:   extractLoanNumbers(text),
		CustomerNames: extractNames(text),
		Emails:        uniqueMatches(emailRe.FindAllString(text, -1)),
		PhoneNumbers:  extractPhones(text),
		DollarAmounts: uniqueMatches(dollarRe.FindAllString(text, -1)),
		Dates:         extractDates(text),
	}
}

func extractLoanNumbers(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, re := range loanNumberPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			candidate := strings.TrimSpace(m[len(m)-1])
			if len(candidate) < minLoanNumberLen {
				continue
			}
			if _, dup := seen[candidate]; dup {
				continue
			}
			seen[candidate] = struct{}{}
			out = append(out, candidate)
		}
	}
	return out
}

func extractNames(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, m := range nameRe.FindAllStringSubmatch(text, -1) {
		candidate := m[1]
		if containsExcludedWord(candidate) {
			continue
		}
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

func containsExcludedWord(candidate string) bool {
	for _, word := range strings.Fields(candidate) {
		if _, excluded := nameExcludeWords[word]; excluded {
			return true
		}
	}
	return false
}

func extractPhones(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, raw := range phoneRe.FindAllString(text, -1) {
		digits := nonDigitRe.ReplaceAllString(raw, "")
		if len(digits) != 10 {
			continue
		}
		if _, dup := seen[digits]; dup {
			continue
		}
		seen[digits] = struct{}{}
		out = append(out, digits)
	}
	return out
}

func extractDates(text string) []string {
	dates := slashDateRe.FindAllString(text, -1)
	dates = append(dates, longDateRe.FindAllString(text, -1)...)
	return uniqueMatches(dates)
}

func uniqueMatches(matches []string) []string {
	if len(matches) == 0 {
		return nil
	}
	var out []string
	seen := map[string]struct{}{}
	for _, m := range matches {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
