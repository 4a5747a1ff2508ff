package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/launchlens/internal/domain/ai"
	"github.com/bryanwahyu/launchlens/internal/domain/ideas"
)

const analysisSchema = `{
  "summary": "<string>",
  "problemFit": "<string>",
  "audience": {"primary": "<string>", "secondary": "<string>"},
  "detailedViabilityBreakdown": {
    "marketDemand": {"score": <1-10>, "justification": "<string>"},
    "technicalFeasibility": {"score": <1-10>, "justification": "<string>"},
    "differentiation": {"score": <1-10>, "justification": "<string>"},
    "monetizationPotential": {"score": <1-10>, "justification": "<string>"},
    "timing": {"score": <1-10>, "justification": "<string>"},
    "weightedOverallScore": "<decimal with one fraction digit>",
    "overallJustification": "<string>"
  },
  "marketSignals": {
    "searchVolume": "<string>",
    "competitionDensity": "<string>",
    "fundingActivity": "<string>",
    "trendDirection": "<string>"
  },
  "strengths": ["<string>"],
  "challenges": ["<string>"],
  "leanMVP": ["<string>"],
  "distribution": ["<string>"],
  "monetization": ["<string>"],
  "buildCost": {"estimate": "<Low|Medium|High>", "breakdown": "<string>"},
  "timeToMVP": "<string>",
  "validationSteps": ["<string>"],
  "verdict": "<string>"
}`

// AnalysisSystemPrompt gives strict directions and schema for the viability report.
func AnalysisSystemPrompt() string {
	return `You are an experienced startup advisor assessing ideas for solo and indie founders. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- Every score is an integer from 1 to 10.
- weightedOverallScore = 0.25*marketDemand + 0.25*monetizationPotential + 0.20*technicalFeasibility + 0.20*differentiation + 0.10*timing, one fraction digit.
- Be concrete and conservative; say "Data not available" rather than inventing market figures.

Schema:
` + analysisSchema
}

// AnalysisUserPrompt wraps a fresh idea description.
func AnalysisUserPrompt(ideaText string) string {
	return fmt.Sprintf("Assess this startup idea and respond with the JSON per schema.\n\nIdea:\n%s", ideaText)
}

// RefinementUserPrompt asks for a re-assessment of an edited idea, showing the previous
// report so the model can compare.
func RefinementUserPrompt(parent *ideas.Analysis, r ideas.Refinement) string {
	var b strings.Builder
	b.WriteString("The founder refined a previously assessed idea. Re-assess the refined version and respond with the JSON per schema.\n\n")
	fmt.Fprintf(&b, "Previous idea:\n%s\n\n", parent.IdeaText)
	if prev, err := json.Marshal(parent.Report); err == nil {
		fmt.Fprintf(&b, "Previous assessment (viability %d/10):\n%s\n\n", parent.ViabilityScore, prev)
	}
	fmt.Fprintf(&b, "Refined idea:\n%s\n", r.IdeaText)
	if r.ProblemFit != "" {
		fmt.Fprintf(&b, "\nRefined problem fit: %s\n", r.ProblemFit)
	}
	if r.Audience != nil {
		if r.Audience.Primary != "" {
			fmt.Fprintf(&b, "Refined primary audience: %s\n", r.Audience.Primary)
		}
		if r.Audience.Secondary != "" {
			fmt.Fprintf(&b, "Refined secondary audience: %s\n", r.Audience.Secondary)
		}
	}
	writeList(&b, "Refined lean MVP", r.LeanMVP)
	writeList(&b, "Refined distribution channels", r.Distribution)
	writeList(&b, "Refined monetization", r.Monetization)
	return b.String()
}

// Analysis builds the completion request for a fresh idea.
func Analysis(ideaText string) ai.Prompt {
	return ai.Prompt{System: AnalysisSystemPrompt(), User: AnalysisUserPrompt(ideaText)}
}

// Refinement builds the completion request for a refined idea.
func Refinement(parent *ideas.Analysis, r ideas.Refinement) ai.Prompt {
	return ai.Prompt{System: AnalysisSystemPrompt(), User: RefinementUserPrompt(parent, r)}
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, strings.Join(items, "; "))
}
