package analyze

import "strings"

// Named opportunity patterns: calls matching these could likely have been
// handled without an agent.
var selfServicePatterns = []struct {
	name     string
	keywords []string
}{
	{"Online Payment Setup", []string{"how do i pay online", "pay on the website", "set up autopay", "automatic payment"}},
	{"Password Reset", []string{"reset my password", "forgot my password", "locked out"}},
	{"Statement Download", []string{"copy of my statement", "download my statement", "see my statement"}},
	{"Balance Inquiry", []string{"what's my balance", "what is my balance", "how much do i owe"}},
	{"Due Date Lookup", []string{"when is my payment due", "due date", "grace period"}},
	{"Payoff Quote", []string{"payoff quote", "payoff amount", "payoff statement"}},
	{"Tax Document Download", []string{"1098", "tax form", "year end statement"}},
	{"Payment History", []string{"payment history", "past payments", "previous payments"}},
	{"Contact Update", []string{"update my address", "change my address", "update my phone", "new email"}},
	{"Escrow Balance", []string{"escrow balance", "how much is in my escrow"}},
}

const (
	AutomationHigh   = "high"
	AutomationMedium = "medium"
	AutomationLow    = "low"
)

// DetectSelfService reports which opportunity patterns the transcript
// matches plus a coarse automation-potential label.
func DetectSelfService(text string) ([]string, string) {
	lower := strings.ToLower(text)

	var matched []string
	for _, p := range selfServicePatterns {
		for _, kw := range p.keywords {
			if strings.Contains(lower, kw) {
				matched = append(matched, p.name)
				break
			}
		}
	}

	switch {
	case len(matched) >= 3:
		return matched, AutomationHigh
	case len(matched) >= 1:
		return matched, AutomationMedium
	default:
		return matched, AutomationLow
	}
}
