package ideas

import (
	"fmt"
	"testing"
	"time"
)

func scoredAnalysis(id string, viability int, sub [5]int) *Analysis {
	return &Analysis{
		ID:             AnalysisID(id),
		IdeaText:       "idea " + id,
		ViabilityScore: viability,
		Report: Report{
			Breakdown: Breakdown{
				MarketDemand:          Dimension{Score: sub[0]},
				TechnicalFeasibility:  Dimension{Score: sub[1]},
				Differentiation:       Dimension{Score: sub[2]},
				MonetizationPotential: Dimension{Score: sub[3]},
				Timing:                Dimension{Score: sub[4]},
			},
			MarketSignals: MarketSignals{
				SearchVolume:       DataNotAvailable,
				CompetitionDensity: DataNotAvailable,
				FundingActivity:    DataNotAvailable,
				TrendDirection:     DataNotAvailable,
			},
			BuildCost: BuildCost{Estimate: "Unknown"},
		},
	}
}

func TestScoreRecommendationFormula(t *testing.T) {
	a := scoredAnalysis("a", 8, [5]int{9, 6, 7, 8, 5})
	a.MarketSignals.SearchVolume = "High and growing"
	a.MarketSignals.FundingActivity = "Active seed rounds"
	a.MarketSignals.CompetitionDensity = "Moderate"
	a.Strengths = []string{"a", "b", "c", "d"}
	a.BuildCost.Estimate = "Low"

	score, reason := ScoreRecommendation(a)
	// 16 + 13.5 + 12 + 7 + 4.8 + 2.5 + 5 + 3 + 2 + 10 + 6 + 3
	if score != 84.8 {
		t.Fatalf("score = %v, want 84.8", score)
	}
	want := "High viability score of 8/10, Strong market demand, Clear monetization path"
	if reason != want {
		t.Fatalf("reason = %q, want %q", reason, want)
	}
}

func TestScoreRecommendationBounds(t *testing.T) {
	top := scoredAnalysis("top", 10, [5]int{10, 10, 10, 10, 10})
	top.MarketSignals = MarketSignals{SearchVolume: "high", FundingActivity: "high", CompetitionDensity: "low"}
	top.Strengths = make([]string, 20)
	top.BuildCost.Estimate = "Low"
	if score, _ := ScoreRecommendation(top); score != 100 {
		t.Fatalf("capped score = %v, want 100", score)
	}

	plain := scoredAnalysis("plain", 6, [5]int{5, 5, 5, 5, 5})
	score, reason := ScoreRecommendation(plain)
	// 12 + 7.5 + 7.5 + 5 + 4 + 2.5 + 5
	if score != 43.5 {
		t.Fatalf("score = %v, want 43.5", score)
	}
	if reason != "Shows potential based on overall analysis" {
		t.Fatalf("reason = %q", reason)
	}
}

func TestRankFiltersSortsAndTruncates(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var list []*Analysis
	for i := 0; i < 9; i++ {
		a := scoredAnalysis(fmt.Sprintf("a%d", i), 4+i%7, [5]int{3 + i%8, 5, 5, 6, 5})
		a.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		list = append(list, a)
	}
	validated := scoredAnalysis("validated", 10, [5]int{10, 10, 10, 10, 10})
	validated.IsValidated = true
	list = append(list, validated, nil)

	got := Rank(list, RecommendationLimit)
	if len(got) > RecommendationLimit {
		t.Fatalf("len = %d, want <= %d", len(got), RecommendationLimit)
	}
	if len(got) == 0 {
		t.Fatal("expected recommendations")
	}
	for i, r := range got {
		if r.ViabilityScore < MinRecommendViability {
			t.Fatalf("%s viability %d below threshold", r.AnalysisID, r.ViabilityScore)
		}
		if r.AnalysisID == "validated" {
			t.Fatal("validated analysis must not be recommended")
		}
		if r.Score < 0 || r.Score > 100 {
			t.Fatalf("score %v out of range", r.Score)
		}
		if i > 0 && got[i-1].Score < r.Score {
			t.Fatalf("not sorted descending at %d: %v < %v", i, got[i-1].Score, r.Score)
		}
	}
}

func TestRankTieKeepsNewerFirst(t *testing.T) {
	older := scoredAnalysis("older", 7, [5]int{7, 7, 7, 7, 7})
	older.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := scoredAnalysis("newer", 7, [5]int{7, 7, 7, 7, 7})
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)

	got := Rank([]*Analysis{older, newer}, 5)
	if len(got) != 2 || got[0].AnalysisID != "newer" {
		t.Fatalf("got %+v", got)
	}
}
