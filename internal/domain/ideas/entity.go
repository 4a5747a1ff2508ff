package ideas

import (
	"time"
)

// AnalysisID identifier type
type AnalysisID string

// ProjectStatus enum
type ProjectStatus string

const (
	StatusNone      ProjectStatus = "none"
	StatusValidated ProjectStatus = "validated"
	StatusPlanning  ProjectStatus = "planning"
	StatusBuilding  ProjectStatus = "building"
	StatusTesting   ProjectStatus = "testing"
	StatusLaunched  ProjectStatus = "launched"
	StatusPaused    ProjectStatus = "paused"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusNone, StatusValidated, StatusPlanning, StatusBuilding, StatusTesting, StatusLaunched, StatusPaused:
		return true
	}
	return false
}

// Dimension is one scored viability factor.
type Dimension struct {
	Score         int    `json:"score"`
	Justification string `json:"justification"`
}

// Breakdown value object
type Breakdown struct {
	MarketDemand          Dimension `json:"marketDemand"`
	TechnicalFeasibility  Dimension `json:"technicalFeasibility"`
	Differentiation       Dimension `json:"differentiation"`
	MonetizationPotential Dimension `json:"monetizationPotential"`
	Timing                Dimension `json:"timing"`
	WeightedOverallScore  string    `json:"weightedOverallScore"`
	OverallJustification  string    `json:"overallJustification"`
}

type MarketSignals struct {
	SearchVolume       string `json:"searchVolume"`
	CompetitionDensity string `json:"competitionDensity"`
	FundingActivity    string `json:"fundingActivity"`
	TrendDirection     string `json:"trendDirection"`
}

type Audience struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

type BuildCost struct {
	Estimate  string `json:"estimate"`
	Breakdown string `json:"breakdown"`
}

// Report holds the AI-generated descriptive part of an analysis. It is stored as one
// JSON document next to the lifecycle columns.
type Report struct {
	Breakdown       Breakdown     `json:"detailedViabilityBreakdown"`
	MarketSignals   MarketSignals `json:"marketSignals"`
	ValidationSteps []string      `json:"validationSteps"`
	Strengths       []string      `json:"strengths"`
	Challenges      []string      `json:"challenges"`
	LeanMVP         []string      `json:"leanMVP"`
	Distribution    []string      `json:"distribution"`
	Monetization    []string      `json:"monetization"`
	BuildCost       BuildCost     `json:"buildCost"`
	TimeToMVP       string        `json:"timeToMVP"`
	Verdict         string        `json:"verdict"`
	Summary         string        `json:"summary"`
	ProblemFit      string        `json:"problemFit"`
	Audience        Audience      `json:"audience"`
}

// Aggregate Root: Analysis
type Analysis struct {
	ID                  AnalysisID    `json:"id"`
	UserID              string        `json:"userId"`
	IdeaText            string        `json:"ideaText"`
	ParentAnalysisID    *AnalysisID   `json:"parentAnalysisId"`
	ViabilityScore      int           `json:"viabilityScore"`
	Report                            // fields are flattened into the analysis JSON
	RecommendationScore *float64      `json:"recommendationScore,omitempty"`
	IsValidated         bool          `json:"isValidated"`
	ValidatedAt         *time.Time    `json:"validatedAt,omitempty"`
	ValidationNotes     *string       `json:"validationNotes,omitempty"`
	ProjectStatus       ProjectStatus `json:"projectStatus"`
	StatusUpdatedAt     time.Time     `json:"statusUpdatedAt"`
	CreatedAt           time.Time     `json:"createdAt"`
}

// IsRoot reports whether the analysis is a fresh submission rather than a refinement.
func (a *Analysis) IsRoot() bool { return a.ParentAnalysisID == nil }

// Refinement carries the user-edited subset of a previous analysis. Nil lists and
// empty strings mean "not edited".
type Refinement struct {
	ParentID     AnalysisID `json:"-"`
	IdeaText     string     `json:"ideaText"`
	ProblemFit   string     `json:"problemFit,omitempty"`
	Audience     *Audience  `json:"audience,omitempty"`
	LeanMVP      []string   `json:"leanMVP,omitempty"`
	Distribution []string   `json:"distribution,omitempty"`
	Monetization []string   `json:"monetization,omitempty"`
}

// Usage is the derived free-tier usage window for one user.
type Usage struct {
	Used        int       `json:"used"`
	Limit       int       `json:"limit"`
	Subscribed  bool      `json:"subscribed"`
	WindowStart time.Time `json:"windowStart"`
}

// LimitReached reports whether a new root analysis would exceed the free tier.
func (u Usage) LimitReached() bool {
	return !u.Subscribed && u.Used >= u.Limit
}

// Recommendation is one ranked "validate next" suggestion.
type Recommendation struct {
	AnalysisID     AnalysisID `json:"analysisId"`
	IdeaText       string     `json:"ideaText"`
	ViabilityScore int        `json:"viabilityScore"`
	Score          float64    `json:"recommendationScore"`
	Reason         string     `json:"reason"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// MonthStart returns the first instant of t's calendar month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
