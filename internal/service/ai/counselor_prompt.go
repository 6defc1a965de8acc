package ai

import (
	"fmt"

	"github.com/linxiaoyu/mindhaven/backend/internal/adaptation"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/counselor"
)

// BuildSystemPrompt folds the counselor profile and the selected response
// strategy into one system prompt. The strategy section is what makes the
// assistant's tone track the user's detected emotion.
func BuildSystemPrompt(profile counselor.Profile, strategy adaptation.Strategy) string {
	return fmt.Sprintf(`You are %s, a supportive conversational companion in a guided reflection app. You are not a licensed therapist and you never diagnose, prescribe, or promise outcomes. If the user mentions self-harm or harming others, encourage them to contact local emergency services or a crisis line right away.

Your approach: %s.
Your voice: %s.
Guidance: %s

Current response strategy (%s): %s
Adopt this tone now: %s.

Keep replies short — two to four sentences — and always end in a way that leaves space for the user to continue.

Opening line for reference: %s`,
		profile.Name,
		profile.Approach,
		profile.Tone,
		profile.PromptHint,
		strategy.Name,
		strategy.Prompt,
		strategy.Tone,
		profile.OpeningLine,
	)
}
