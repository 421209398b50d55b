package types

import "time"

// Speaker roles after normalization. Anything else is unattributed noise.
const (
	RoleAgent    = "agent"
	RoleCustomer = "customer"
)

// ConversationMessage is one attributed turn of a call or ticket thread.
// Order within a conversation is meaningful.
type ConversationMessage struct {
	Role      string     `json:"role"`
	Text      string     `json:"text"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// RawCallRecord is what an external source hands us before analysis.
type RawCallRecord struct {
	CallID       string    `json:"call_id"`
	AgentID      string    `json:"agent_id,omitempty"`
	AgentName    string    `json:"agent_name,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at,omitempty"`
	DurationSecs int       `json:"duration_secs,omitempty"`
	Transcript   string    `json:"transcript"`
	TicketTitle  string    `json:"ticket_title,omitempty"`
	TicketBody   string    `json:"ticket_body,omitempty"`
}

// CategorizationResult is the rule-based classifier output. Produced fresh
// per input text and never mutated afterwards.
type CategorizationResult struct {
	Category        string   `json:"category"`
	Subcategory     string   `json:"subcategory"`
	Confidence      float64  `json:"confidence"`
	AllIssues       []string `json:"all_issues"`
	MatchedKeywords []string `json:"matched_keywords"`
}

// Resolution states assigned by the heuristic analyzer, first match wins.
const (
	ResolutionEscalated        = "Escalated"
	ResolutionResolved         = "Resolved"
	ResolutionFollowupRequired = "Follow-up Required"
	ResolutionUnknown          = "Unknown"
)

// SentimentResult carries a density score in [-1,1] plus a label.
type SentimentResult struct {
	Score         float64 `json:"score"`
	Label         string  `json:"label"`
	PositiveCount int     `json:"positive_count"`
	NegativeCount int     `json:"negative_count"`
}

// TopicScore is one detected topic with its keyword hit count.
type TopicScore struct {
	Topic string `json:"topic"`
	Hits  int    `json:"hits"`
}

// ExtractedEntities is best-effort; false positives are expected and
// callers must not treat the values as verified PII.
type ExtractedEntities struct {
	LoanNumbers   []string `json:"loan_numbers,omitempty"`
	CustomerNames []string `json:"customer_names,omitempty"`
	Emails        []string `json:"emails,omitempty"`
	PhoneNumbers  []string `json:"phone_numbers,omitempty"`
	DollarAmounts []string `json:"dollar_amounts,omitempty"`
	Dates         []string `json:"dates,omitempty"`
}

// TranscriptAnalysisResult aggregates everything the heuristic analyzer
// derives from one conversation. Pure function of the text.
type TranscriptAnalysisResult struct {
	AgentTurns    int `json:"agent_turns"`
	CustomerTurns int `json:"customer_turns"`
	TotalTurns    int `json:"total_turns"`

	ResolutionStatus string `json:"resolution_status"`
	WasResolved      bool   `json:"was_resolved"`
	WasEscalated     bool   `json:"was_escalated"`
	EscalationReason string `json:"escalation_reason,omitempty"`

	Sentiment         SentimentResult `json:"sentiment"`
	CustomerSentiment SentimentResult `json:"customer_sentiment"`

	QualityScore int    `json:"quality_score"`
	QualityLabel string `json:"quality_label"`
	CallScore    int    `json:"call_score"`

	PrimaryTopic string       `json:"primary_topic"`
	Topics       []TopicScore `json:"topics,omitempty"`

	Entities ExtractedEntities `json:"entities"`

	SelfServiceOpportunities []string `json:"self_service_opportunities,omitempty"`
	AutomationPotential      string   `json:"automation_potential"`

	Categorization CategorizationResult `json:"categorization"`
	CustomerIntent string               `json:"customer_intent"`
}

// LLMAnalysis is the structured object the completion model is asked to
// return for a single conversation.
type LLMAnalysis struct {
	AgentSentiment          string   `json:"agentSentiment"`
	AgentSentimentScore     float64  `json:"agentSentimentScore"`
	AgentSentimentReason    string   `json:"agentSentimentReason"`
	CustomerSentiment       string   `json:"customerSentiment"`
	CustomerSentimentScore  float64  `json:"customerSentimentScore"`
	CustomerSentimentReason string   `json:"customerSentimentReason"`
	AIDiscoveredTopic       string   `json:"aiDiscoveredTopic"`
	AIDiscoveredSubcategory string   `json:"aiDiscoveredSubcategory"`
	TopicConfidence         float64  `json:"topicConfidence"`
	KeyIssues               []string `json:"keyIssues"`
	Resolution              string   `json:"resolution"`
	Tags                    []string `json:"tags"`
}

// SyncStats is the run summary for one pipeline invocation. Mutated
// throughout the run, returned at the end; not persisted structurally.
type SyncStats struct {
	Fetched       int       `json:"fetched"`
	Imported      int       `json:"imported"`
	Analyzed      int       `json:"analyzed"`
	Skipped       int       `json:"skipped"`
	Errors        []string  `json:"errors"`
	SyncStartDate time.Time `json:"sync_start_date"`
	SyncEndDate   time.Time `json:"sync_end_date"`
	StartTime     time.Time `json:"start_time"`
}

// Checkpoint is the persisted progress marker for crash-safe resume.
// ProcessedCount never decreases across resumes.
type Checkpoint struct {
	ProcessedCount  int       `json:"processed_count"`
	LastProcessedID string    `json:"last_processed_id"`
	Timestamp       time.Time `json:"timestamp"`
}

// AgentStats is a per-agent rollup over analyzed records.
type AgentStats struct {
	AgentID          string  `json:"agent_id"`
	AgentName        string  `json:"agent_name,omitempty"`
	TotalCalls       int     `json:"total_calls"`
	ResolvedCalls    int     `json:"resolved_calls"`
	EscalatedCalls   int     `json:"escalated_calls"`
	ResolutionRate   float64 `json:"resolution_rate"`
	EscalationRate   float64 `json:"escalation_rate"`
	MeanSentiment    float64 `json:"mean_sentiment"`
	MeanCallScore    float64 `json:"mean_call_score"`
	MeanDurationSecs float64 `json:"mean_duration_secs"`
}
