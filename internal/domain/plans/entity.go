package plans

import (
	"time"

	"github.com/bryanwahyu/launchlens/internal/domain/ideas"
)

// PlanID identifier type
type PlanID string

// Category enum
type Category string

const (
	CategoryProblemSolutionFit Category = "Problem/Solution Fit"
	CategoryAudience           Category = "Audience"
	CategoryMVPFeatures        Category = "MVP Features"
	CategoryMonetization       Category = "Monetization"
	CategoryDistribution       Category = "Distribution"
	CategoryValidation         Category = "Validation"
	CategoryPivot              Category = "Pivot Consideration"
)

var Categories = []Category{
	CategoryProblemSolutionFit,
	CategoryAudience,
	CategoryMVPFeatures,
	CategoryMonetization,
	CategoryDistribution,
	CategoryValidation,
	CategoryPivot,
}

// Level enum for impact and effort
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

type ActionStep struct {
	Category    Category `json:"category"`
	Description string   `json:"description"`
	Impact      Level    `json:"impact"`
	Effort      Level    `json:"effort"`
}

// ImprovementPlan is a remediation roadmap attached to one analysis.
type ImprovementPlan struct {
	ID                     PlanID           `json:"id"`
	AnalysisID             ideas.AnalysisID `json:"analysisId"`
	UserID                 string           `json:"userId"`
	Summary                string           `json:"summary"`
	KeyAreasForImprovement []string         `json:"keyAreasForImprovement"`
	ActionableSteps        []ActionStep     `json:"actionableSteps"`
	PotentialPivots        []string         `json:"potentialPivots"`
	EstimatedScoreIncrease string           `json:"estimatedScoreIncrease"`
	Warning                string           `json:"warning,omitempty"`
	CreatedAt              time.Time        `json:"createdAt"`
}
