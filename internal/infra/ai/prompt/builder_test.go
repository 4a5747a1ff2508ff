package prompt_test

import (
	"testing"

	appideas "github.com/bryanwahyu/launchlens/internal/application/ideas"
	appplans "github.com/bryanwahyu/launchlens/internal/application/plans"
	"github.com/bryanwahyu/launchlens/internal/domain/ideas"
	"github.com/bryanwahyu/launchlens/internal/infra/ai/prompt"
)

var (
	_ appideas.Prompts = prompt.Builder{}
	_ appplans.Prompts = prompt.Builder{}
)

func TestBuilderMatchesPackagePrompts(t *testing.T) {
	var b prompt.Builder
	a := &ideas.Analysis{IdeaText: "Invoice reminders", ViabilityScore: 6}
	r := ideas.Refinement{IdeaText: "Invoice reminders for dentists"}

	if b.Analysis("Invoice reminders") != prompt.Analysis("Invoice reminders") {
		t.Fatal("analysis prompt differs")
	}
	if b.Refinement(a, r) != prompt.Refinement(a, r) {
		t.Fatal("refinement prompt differs")
	}
	if b.Plan(a) != prompt.Plan(a) {
		t.Fatal("plan prompt differs")
	}
}
