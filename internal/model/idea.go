package model

// Idea categories.
const (
	CategoryStrategic     = "strategic"
	CategoryOpportunistic = "opportunistic"
	CategoryRisk          = "risk"
)

// Idea actions.
const (
	ActionBuy   = "BUY"
	ActionSell  = "SELL"
	ActionWatch = "WATCH"
)

// Idea timeframes.
const (
	TimeframeWeeks  = "weeks"
	TimeframeMonths = "months"
)

// Risk severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// CrisisModeTag is attached to every feed item while crisis mode is active.
const CrisisModeTag = "crisis_mode"

// CandidateIdea is a raw idea exactly as decoded from the candidate generator.
// Nothing about its shape is trusted until it has been normalized.
type CandidateIdea map[string]any

// CanonicalIdea is a validated, bounded idea. Risk ideas use Severity, Title,
// Bullets and Tags; strategic and opportunistic ideas use the remaining fields.
type CanonicalIdea struct {
	IdeaID       string   `json:"ideaId"`
	Category     string   `json:"category"`
	Symbol       string   `json:"symbol,omitempty"`
	Action       string   `json:"action,omitempty"`
	Confidence   float64  `json:"confidence"`
	Timeframe    string   `json:"timeframe,omitempty"`
	Title        string   `json:"title"`
	Invalidation string   `json:"invalidation,omitempty"`
	Rationale    []string `json:"rationale,omitempty"`
	Risks        []string `json:"risks,omitempty"`
	Severity     string   `json:"severity,omitempty"`
	Bullets      []string `json:"bullets,omitempty"`
	Tags         []string `json:"tags"`
}

// Clone returns a deep copy so callers can mutate slices freely.
func (c CanonicalIdea) Clone() CanonicalIdea {
	out := c
	out.Rationale = cloneStrings(c.Rationale)
	out.Risks = cloneStrings(c.Risks)
	out.Bullets = cloneStrings(c.Bullets)
	out.Tags = cloneStrings(c.Tags)
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Sections is the canonical pool partitioned by category, each in generator order.
type Sections struct {
	Strategic     []CanonicalIdea `json:"strategic"`
	Opportunistic []CanonicalIdea `json:"opportunistic"`
	Risk          []CanonicalIdea `json:"risk"`
}

// Candidate converts the idea back into generator shape. Normalizing the
// result yields the same canonical idea.
func (c CanonicalIdea) Candidate() CandidateIdea {
	raw := CandidateIdea{
		"ideaId":     c.IdeaID,
		"category":   c.Category,
		"confidence": c.Confidence,
		"title":      c.Title,
		"tags":       anyStrings(c.Tags),
	}
	if c.Symbol != "" {
		raw["symbol"] = c.Symbol
	}
	if c.Category == CategoryRisk {
		raw["severity"] = c.Severity
		raw["bullets"] = anyStrings(c.Bullets)
		return raw
	}
	raw["action"] = c.Action
	raw["timeframe"] = c.Timeframe
	raw["invalidation"] = c.Invalidation
	raw["rationale"] = anyStrings(c.Rationale)
	raw["risks"] = anyStrings(c.Risks)
	return raw
}

func anyStrings(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
