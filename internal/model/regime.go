package model

import "time"

// RegimeState is the daily market posture.
type RegimeState struct {
	Date             string   `json:"date"`
	Regime           string   `json:"regime"`
	VolatilityRegime string   `json:"volatilityRegime"`
	Leadership       []string `json:"leadership"`
	MacroDrivers     []string `json:"macroDrivers"`
	RiskFlags        []string `json:"riskFlags"`
	Confidence       float64  `json:"confidence"`
}

// DefaultRegimeState is used when no regime row exists for the date.
func DefaultRegimeState(date time.Time) RegimeState {
	return RegimeState{
		Date:             FormatDate(date),
		Regime:           "neutral",
		VolatilityRegime: "normal",
		Leadership:       []string{},
		MacroDrivers:     []string{},
		RiskFlags:        []string{},
		Confidence:       0.5,
	}
}

// CrisisState flags elevated market-wide stress for a date.
type CrisisState struct {
	Date     string `json:"date"`
	IsActive bool   `json:"isActive"`
}

// Profile defaults applied when a user has not set them.
const (
	DefaultFocus     = 0.5
	DefaultRiskLevel = 0.5
	DefaultHorizon   = "medium"
)

// UserAgentProfile drives per-user personalization.
type UserAgentProfile struct {
	UserID    string  `json:"userId"`
	Focus     float64 `json:"focus"`
	RiskLevel float64 `json:"riskLevel"`
	Horizon   string  `json:"horizon"`
}
