package analyze

import (
	"strings"

	"servicing-insights-go/internal/types"
)

// First-match-wins resolution detection. Escalation outranks resolution
// phrases even when both appear: an escalated-then-soothed call is still
// reported as escalated, a conservative bias toward flagging risk.

type escalationPhrase struct {
	phrase string
	reason string
}

var escalationPhrases = []escalationPhrase{
	{"speak to a manager", "Customer asked to speak to a manager"},
	{"speak to a supervisor", "Customer asked to speak to a supervisor"},
	{"talk to a supervisor", "Customer asked to speak to a supervisor"},
	{"talk to your manager", "Customer asked to speak to a manager"},
	{"transfer to supervisor", "Call transferred to a supervisor"},
	{"transfer you to my supervisor", "Call transferred to a supervisor"},
	{"escalate this", "Customer requested escalation"},
	{"file a complaint", "Customer wants to file a complaint"},
	{"speak with someone else", "Customer asked for a different agent"},
	{"let me get my supervisor", "Agent escalated to a supervisor"},
}

var resolutionPhrases = []string{
	"all set",
	"glad i could help",
	"happy to help",
	"that resolves",
	"problem solved",
	"issue is resolved",
	"fixed it for you",
	"taken care of",
	"anything else i can help",
	"you're welcome",
}

var followupPhrases = []string{
	"call you back",
	"follow up with you",
	"look into this",
	"get back to you",
	"open a ticket",
	"submit a request",
	"check on that and",
	"reach out once",
}

type resolutionOutcome struct {
	Status           string
	WasResolved      bool
	WasEscalated     bool
	EscalationReason string
}

func detectResolution(text string) resolutionOutcome {
	lower := strings.ToLower(text)

	for _, esc := range escalationPhrases {
		if strings.Contains(lower, esc.phrase) {
			return resolutionOutcome{
				Status:           types.ResolutionEscalated,
				WasEscalated:     true,
				EscalationReason: esc.reason,
			}
		}
	}
	for _, phrase := range resolutionPhrases {
		if strings.Contains(lower, phrase) {
			return resolutionOutcome{Status: types.ResolutionResolved, WasResolved: true}
		}
	}
	for _, phrase := range followupPhrases {
		if strings.Contains(lower, phrase) {
			return resolutionOutcome{Status: types.ResolutionFollowupRequired}
		}
	}
	return resolutionOutcome{Status: types.ResolutionUnknown}
}
