package prompt

import (
	"github.com/bryanwahyu/launchlens/internal/domain/ai"
	"github.com/bryanwahyu/launchlens/internal/domain/ideas"
)

// Builder exposes the prompts of this package to the analysis and plan services.
type Builder struct{}

func (Builder) Analysis(ideaText string) ai.Prompt { return Analysis(ideaText) }

func (Builder) Refinement(parent *ideas.Analysis, r ideas.Refinement) ai.Prompt {
	return Refinement(parent, r)
}

func (Builder) Plan(a *ideas.Analysis) ai.Prompt { return Plan(a) }
