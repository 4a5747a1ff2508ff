package ideas

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	RecommendationLimit   = 5
	MinRecommendViability = 6
	maxRecommendReasons   = 3
)

// ScoreRecommendation computes the 0-100 "worth validating now" score and its reason.
func ScoreRecommendation(a *Analysis) (float64, string) {
	b := a.Breakdown
	v := a.ViabilityScore

	score := float64(v)*2 +
		float64(b.MarketDemand.Score)*1.5 +
		float64(b.MonetizationPotential.Score)*1.5 +
		float64(b.Differentiation.Score)*1.0 +
		float64(b.TechnicalFeasibility.Score)*0.8 +
		float64(b.Timing.Score)*0.5

	growing := containsAny(a.MarketSignals.SearchVolume, "high", "growing")
	if growing {
		score += 5
	}
	if containsAny(a.MarketSignals.FundingActivity, "high", "active") {
		score += 3
	}
	if containsAny(a.MarketSignals.CompetitionDensity, "moderate", "low") {
		score += 2
	}
	switch {
	case v >= 7:
		score += 10
	case v >= 6:
		score += 5
	}
	score += math.Min(float64(len(a.Strengths))*1.5, 10)
	switch a.BuildCost.Estimate {
	case "Low":
		score += 3
	case "Medium":
		score += 1
	}

	score = math.Max(0, math.Min(100, score))
	score = math.Round(score*10) / 10

	var reasons []string
	if v >= 7 {
		reasons = append(reasons, fmt.Sprintf("High viability score of %d/10", v))
	}
	if b.MarketDemand.Score >= 7 {
		reasons = append(reasons, "Strong market demand")
	}
	if b.MonetizationPotential.Score >= 7 {
		reasons = append(reasons, "Clear monetization path")
	}
	if growing {
		reasons = append(reasons, "Growing market interest")
	}
	if a.BuildCost.Estimate == "Low" {
		reasons = append(reasons, "Low build cost")
	}
	if len(a.Strengths) >= 3 {
		reasons = append(reasons, fmt.Sprintf("%d key strengths identified", len(a.Strengths)))
	}
	if len(reasons) == 0 {
		return score, "Shows potential based on overall analysis"
	}
	if len(reasons) > maxRecommendReasons {
		reasons = reasons[:maxRecommendReasons]
	}
	return score, strings.Join(reasons, ", ")
}

// Rank scores unvalidated analyses with viability >= 6 and returns the best ones,
// highest score first. Equal scores keep the newer analysis first.
func Rank(list []*Analysis, limit int) []Recommendation {
	out := make([]Recommendation, 0, len(list))
	for _, a := range list {
		if a == nil || a.IsValidated || a.ViabilityScore < MinRecommendViability {
			continue
		}
		score, reason := ScoreRecommendation(a)
		out = append(out, Recommendation{
			AnalysisID:     a.ID,
			IdeaText:       a.IdeaText,
			ViabilityScore: a.ViabilityScore,
			Score:          score,
			Reason:         reason,
			CreatedAt:      a.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func containsAny(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
