package recommend

import "SignalFeed/internal/model"

// Policy thresholds and caps.
const (
	BaseMinConfidence     = 0.45
	LowRiskPenalty        = 0.10
	CrisisPenalty         = 0.10
	LowRiskThreshold      = 0.3
	HighFocusThreshold    = 0.7
	LowFocusThreshold     = 0.3
	BaseStrategicCap      = 4
	BaseOpportunisticCap  = 3
	BaseRiskCap           = 4
	FocusedStrategicCap   = 2
	FocusedOpportunityCap = 1
	CrisisStrategicCap    = 2
	CrisisOpportunityCap  = 1
)

// Policy is the per-user filter applied to the canonical pool.
type Policy struct {
	MinConfidence    float64
	StrategicCap     int
	OpportunisticCap int
	RiskCap          int
	Crisis           bool
}

// PolicyFor derives the filter for one user. Crisis never loosens a cap.
func PolicyFor(profile model.UserAgentProfile, crisis bool) Policy {
	p := Policy{
		MinConfidence:    BaseMinConfidence,
		StrategicCap:     BaseStrategicCap,
		OpportunisticCap: BaseOpportunisticCap,
		RiskCap:          BaseRiskCap,
		Crisis:           crisis,
	}
	if profile.RiskLevel < LowRiskThreshold {
		p.MinConfidence += LowRiskPenalty
	}
	if crisis {
		p.MinConfidence += CrisisPenalty
	}

	if profile.Focus > HighFocusThreshold {
		p.StrategicCap = FocusedStrategicCap
	}
	if profile.Focus < LowFocusThreshold {
		p.OpportunisticCap = FocusedOpportunityCap
	}
	if crisis {
		p.StrategicCap = min(p.StrategicCap, CrisisStrategicCap)
		p.OpportunisticCap = min(p.OpportunisticCap, CrisisOpportunityCap)
	}
	return p
}

// Personalize builds one user's feed from the partitioned pool: strategic,
// then opportunistic, then risk. Items are deep copies of the pool entries.
func Personalize(sections model.Sections, profile model.UserAgentProfile, crisis bool) []model.CanonicalIdea {
	p := PolicyFor(profile, crisis)

	feed := make([]model.CanonicalIdea, 0, p.StrategicCap+p.OpportunisticCap+p.RiskCap)
	feed = appendQualified(feed, sections.Strategic, p.MinConfidence, p.StrategicCap)
	feed = appendQualified(feed, sections.Opportunistic, p.MinConfidence, p.OpportunisticCap)
	for i, idea := range sections.Risk {
		if i == p.RiskCap {
			break
		}
		feed = append(feed, idea.Clone())
	}

	if crisis {
		for i := range feed {
			feed[i].Tags = withTag(feed[i].Tags, model.CrisisModeTag)
		}
	}
	return feed
}

// appendQualified filters by confidence first, then truncates to limit.
func appendQualified(dst, ideas []model.CanonicalIdea, minConfidence float64, limit int) []model.CanonicalIdea {
	n := 0
	for _, idea := range ideas {
		if n == limit {
			break
		}
		if idea.Confidence < minConfidence {
			continue
		}
		dst = append(dst, idea.Clone())
		n++
	}
	return dst
}

func withTag(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}
