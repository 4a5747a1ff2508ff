package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/launchlens/internal/domain/ai"
	"github.com/bryanwahyu/launchlens/internal/domain/ideas"
	"github.com/bryanwahyu/launchlens/internal/domain/plans"
)

// PlanSystemPrompt describes the improvement plan schema.
func PlanSystemPrompt() string {
	cats := make([]string, 0, len(plans.Categories))
	for _, c := range plans.Categories {
		cats = append(cats, string(c))
	}
	return `You are a pragmatic startup coach. Produce one valid JSON object only (no markdown, no code fences) describing how to raise the idea's viability.

Requirements:
- Address the lowest-scoring dimensions first.
- category must be one of: ` + strings.Join(cats, ", ") + `.
- impact and effort must be one of: Low, Medium, High.

Schema:
{
  "summary": "<string>",
  "keyAreasForImprovement": ["<string>"],
  "actionableSteps": [
    {"category": "<category>", "description": "<string>", "impact": "<Low|Medium|High>", "effort": "<Low|Medium|High>"}
  ],
  "potentialPivots": ["<string>"],
  "estimatedScoreIncrease": "<string>",
  "warning": "<string, optional>"
}`
}

// PlanUserPrompt lists the idea and its dimensions, weakest first.
func PlanUserPrompt(a *ideas.Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Idea:\n%s\n\n", a.IdeaText)
	fmt.Fprintf(&b, "Viability: %d/10 (weighted %s). Verdict: %s\n\n", a.ViabilityScore, a.Breakdown.WeightedOverallScore, a.Verdict)
	b.WriteString("Dimensions, weakest first:\n")
	for _, d := range ideas.WeakestFirst(a.Breakdown) {
		fmt.Fprintf(&b, "- %s: %d/10 - %s\n", d.Name, d.Score, d.Justification)
	}
	if len(a.Challenges) > 0 {
		fmt.Fprintf(&b, "\nKnown challenges: %s\n", strings.Join(a.Challenges, "; "))
	}
	return b.String()
}

// Plan builds the completion request for an improvement plan.
func Plan(a *ideas.Analysis) ai.Prompt {
	return ai.Prompt{System: PlanSystemPrompt(), User: PlanUserPrompt(a)}
}
