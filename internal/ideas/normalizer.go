package ideas

import (
	"fmt"
	"strings"
	"time"

	"SignalFeed/internal/model"
)

// Bounds applied to canonical ideas.
const (
	MaxTitleLen        = 140
	MaxInvalidationLen = 180
	MaxRationale       = 3
	MaxRisks           = 2
	MaxBullets         = 3
	MaxTags            = 8
)

// Defaults applied when the generator leaves a field empty.
const (
	DefaultRiskTitle    = "Market risk"
	DefaultInvalidation = "Invalidated if price action contradicts the thesis."
)

// Normalize turns one untrusted candidate into a canonical idea. It never
// fails: missing or malformed fields fall back to their defaults. index is the
// zero-based position of the candidate in the generator output.
func Normalize(raw model.CandidateIdea, index int, date time.Time) model.CanonicalIdea {
	category := strings.ToLower(asString(raw["category"]))
	symbol := strings.ToUpper(asString(raw["symbol"]))

	var idea model.CanonicalIdea
	if category == model.CategoryRisk {
		idea = normalizeRisk(raw)
	} else {
		idea = normalizeTrade(raw, category)
	}
	idea.Symbol = symbol
	idea.Tags = tags(raw["tags"])
	idea.IdeaID = ideaID(raw, idea.Category, symbol, index, date)
	return idea
}

func normalizeRisk(raw model.CandidateIdea) model.CanonicalIdea {
	bullets := asStrings(raw["bullets"], MaxBullets)
	if len(bullets) == 0 {
		bullets = asStrings(raw["rationale"], MaxBullets)
	}
	title := truncate(asString(raw["title"]), MaxTitleLen)
	if title == "" {
		title = DefaultRiskTitle
	}
	conf, _ := asFloat(raw["confidence"])
	return model.CanonicalIdea{
		Category:   model.CategoryRisk,
		Severity:   oneOf(asString(raw["severity"]), model.SeverityMedium, model.SeverityLow, model.SeverityMedium, model.SeverityHigh),
		Title:      title,
		Bullets:    bullets,
		Confidence: clamp01(conf),
	}
}

func normalizeTrade(raw model.CandidateIdea, category string) model.CanonicalIdea {
	if category != model.CategoryOpportunistic {
		category = model.CategoryStrategic
	}
	action := strings.ToUpper(asString(raw["action"]))
	switch action {
	case model.ActionBuy, model.ActionSell, model.ActionWatch:
	default:
		action = model.ActionWatch
	}
	conf, _ := asFloat(raw["confidence"])

	invalidation := truncate(asString(raw["invalidation"]), MaxInvalidationLen)
	if invalidation == "" {
		invalidation = DefaultInvalidation
	}

	title := truncate(asString(raw["title"]), MaxTitleLen)
	if title == "" {
		subject := strings.ToUpper(asString(raw["symbol"]))
		if subject == "" {
			subject = "market"
		}
		title = truncate(action+" "+subject, MaxTitleLen)
	}

	return model.CanonicalIdea{
		Category:     category,
		Action:       action,
		Confidence:   clamp01(conf),
		Timeframe:    oneOf(asString(raw["timeframe"]), model.TimeframeWeeks, model.TimeframeWeeks, model.TimeframeMonths),
		Title:        title,
		Invalidation: invalidation,
		Rationale:    asStrings(raw["rationale"], MaxRationale),
		Risks:        asStrings(raw["risks"], MaxRisks),
	}
}

func tags(v any) []string {
	raw := asStrings(v, -1)
	out := make([]string, 0, MaxTags)
	for _, t := range raw {
		if len(out) == MaxTags {
			break
		}
		out = append(out, strings.ToLower(t))
	}
	return out
}

// ideaID keeps a generator supplied id, otherwise derives a stable one from
// the category, subject, 1-based position and run date.
func ideaID(raw model.CandidateIdea, category, symbol string, index int, date time.Time) string {
	for _, key := range []string{"ideaId", "id"} {
		if s, ok := raw[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	subject := strings.ToLower(symbol)
	if subject == "" {
		subject = "market"
	}
	return fmt.Sprintf("%s-%s-%d-%s", category, subject, index+1, model.FormatDate(date))
}

// NormalizeAll normalizes every candidate in generator order. When two
// candidates share an idea id the later one wins and takes the later position,
// matching how the pool is persisted.
func NormalizeAll(raws []model.CandidateIdea, date time.Time) []model.CanonicalIdea {
	all := make([]model.CanonicalIdea, len(raws))
	for i, raw := range raws {
		all[i] = Normalize(raw, i, date)
	}

	seen := make(map[string]bool, len(all))
	keep := make([]bool, len(all))
	kept := 0
	for i := len(all) - 1; i >= 0; i-- {
		if seen[all[i].IdeaID] {
			continue
		}
		seen[all[i].IdeaID] = true
		keep[i] = true
		kept++
	}

	out := make([]model.CanonicalIdea, 0, kept)
	for i, idea := range all {
		if keep[i] {
			out = append(out, idea)
		}
	}
	return out
}

// Partition splits canonical ideas by category, preserving order.
func Partition(all []model.CanonicalIdea) model.Sections {
	var s model.Sections
	for _, idea := range all {
		switch idea.Category {
		case model.CategoryRisk:
			s.Risk = append(s.Risk, idea)
		case model.CategoryOpportunistic:
			s.Opportunistic = append(s.Opportunistic, idea)
		default:
			s.Strategic = append(s.Strategic, idea)
		}
	}
	return s
}
