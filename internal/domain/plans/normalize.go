package plans

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/bryanwahyu/launchlens/internal/domain/ideas"
)

const (
	DefaultSummary                = "Focus on the weakest viability dimensions before investing further in the build."
	DefaultEstimatedScoreIncrease = "+1 to +2 points if the key areas are addressed"
)

var DefaultKeyAreas = []string{
	"Validate the problem with real customer conversations",
	"Sharpen differentiation against existing alternatives",
	"Clarify who pays and how much",
}

// dimensionCategory maps a viability dimension to the plan category that addresses it.
var dimensionCategory = map[string]Category{
	"marketDemand":          CategoryAudience,
	"technicalFeasibility":  CategoryMVPFeatures,
	"differentiation":       CategoryProblemSolutionFit,
	"monetizationPotential": CategoryMonetization,
	"timing":                CategoryValidation,
}

var dimensionLabel = map[string]string{
	"marketDemand":          "market demand",
	"technicalFeasibility":  "technical feasibility",
	"differentiation":       "differentiation",
	"monetizationPotential": "monetization potential",
	"timing":                "timing",
}

var categoryAliases = map[string]Category{
	"pivot":      CategoryPivot,
	"mvp":        CategoryMVPFeatures,
	"features":   CategoryMVPFeatures,
	"pricing":    CategoryMonetization,
	"marketing":  CategoryDistribution,
	"growth":     CategoryDistribution,
	"customers":  CategoryAudience,
	"problemfit": CategoryProblemSolutionFit,
}

// Normalize fills every plan field from raw LLM output, applying per-field defaults.
func Normalize(raw map[string]any, a *ideas.Analysis) ImprovementPlan {
	p := ImprovementPlan{
		AnalysisID:             a.ID,
		UserID:                 a.UserID,
		Summary:                text(raw["summary"], DefaultSummary),
		KeyAreasForImprovement: list(raw["keyAreasForImprovement"]),
		ActionableSteps:        steps(raw["actionableSteps"]),
		PotentialPivots:        list(raw["potentialPivots"]),
		EstimatedScoreIncrease: text(raw["estimatedScoreIncrease"], DefaultEstimatedScoreIncrease),
		Warning:                text(raw["warning"], ""),
	}
	if len(p.KeyAreasForImprovement) == 0 {
		p.KeyAreasForImprovement = append([]string(nil), DefaultKeyAreas...)
	}
	if len(p.ActionableSteps) == 0 {
		p.ActionableSteps = []ActionStep{DefaultStep(a.Breakdown)}
	}
	return p
}

// DefaultStep targets the weakest dimension of the breakdown.
func DefaultStep(b ideas.Breakdown) ActionStep {
	weakest := ideas.WeakestFirst(b)[0]
	return ActionStep{
		Category:    dimensionCategory[weakest.Name],
		Description: fmt.Sprintf("Run a focused experiment to improve %s (currently %d/10).", dimensionLabel[weakest.Name], weakest.Score),
		Impact:      LevelHigh,
		Effort:      LevelMedium,
	}
}

// NormalizeCategory maps free-form category text onto the fixed enum.
func NormalizeCategory(s string) Category {
	key := lettersOnly(s)
	if key == "" {
		return CategoryValidation
	}
	for _, c := range Categories {
		if lettersOnly(string(c)) == key {
			return c
		}
	}
	for alias, c := range categoryAliases {
		if strings.Contains(key, alias) {
			return c
		}
	}
	return CategoryValidation
}

func NormalizeLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return LevelLow
	case "high":
		return LevelHigh
	}
	return LevelMedium
}

func steps(v any) []ActionStep {
	items, _ := v.([]any)
	out := make([]ActionStep, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		desc := text(m["description"], "")
		if desc == "" {
			continue
		}
		out = append(out, ActionStep{
			Category:    NormalizeCategory(text(m["category"], "")),
			Description: desc,
			Impact:      NormalizeLevel(text(m["impact"], "")),
			Effort:      NormalizeLevel(text(m["effort"], "")),
		})
	}
	return out
}

func text(v any, fallback string) string {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return fallback
	}
	return strings.TrimSpace(s)
}

func list(v any) []string {
	out := []string{}
	items, _ := v.([]any)
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func lettersOnly(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
