// Package adaptation maps a fused primary emotion to the response strategy the
// assistant should adopt for its next turn.
package adaptation

import "github.com/linxiaoyu/mindhaven/backend/internal/model/emotion"

// Strategy describes how the assistant should respond to a given emotional
// state: a stable name, a tone directive folded into the LLM system prompt,
// and a canned reply used when no language model is configured.
type Strategy struct {
	Name   string `json:"name"`
	Tone   string `json:"tone"`
	Prompt string `json:"prompt"`
	Reply  string `json:"reply"`
}

var defaultStrategies = map[emotion.Label]Strategy{
	emotion.Happy: {
		Name:   "affirming",
		Tone:   "light, warm, celebratory",
		Prompt: "The user is in a positive state. Affirm what is going well and invite them to savor it.",
		Reply:  "It sounds like things are going well for you right now. What do you think has been helping the most?",
	},
	emotion.Sad: {
		Name:   "supportive",
		Tone:   "gentle, unhurried, acknowledging",
		Prompt: "The user is feeling low. Acknowledge the sadness before anything else and avoid rushing to fix it.",
		Reply:  "I'm hearing a real heaviness in what you're sharing. It's okay to sit with that for a moment — I'm here with you.",
	},
	emotion.Anxious: {
		Name:   "grounding",
		Tone:   "calm, steady, de-escalating",
		Prompt: "The user is anxious. Slow the pace, ground them in the present, and break worries into small pieces.",
		Reply:  "Let's slow down together for a moment. Could you take one deep breath and tell me the one thing that feels most pressing right now?",
	},
	emotion.Angry: {
		Name:   "validating",
		Tone:   "steady, non-defensive, curious",
		Prompt: "The user is angry. Validate that the feeling makes sense, then explore what sits underneath it.",
		Reply:  "That sounds genuinely frustrating, and your reaction makes sense. What part of this has been hardest to accept?",
	},
	emotion.Neutral: {
		Name:   "steady",
		Tone:   "natural, attentive, open",
		Prompt: "No strong emotional signal. Stay attentive and keep the conversation open.",
		Reply:  "Thank you for sharing that. What would you like to explore together today?",
	},
}

// Selector resolves a strategy for every label. It is table-driven so response
// policy can evolve independently of how emotions are inferred.
type Selector struct {
	table    map[emotion.Label]Strategy
	fallback Strategy
}

// NewSelector returns a selector with the built-in strategy table, with any
// supplied overrides applied on top.
func NewSelector(overrides map[emotion.Label]Strategy) *Selector {
	table := make(map[emotion.Label]Strategy, len(defaultStrategies))
	for label, strategy := range defaultStrategies {
		table[label] = strategy
	}
	for label, strategy := range overrides {
		table[label] = strategy
	}
	return &Selector{table: table, fallback: table[emotion.Neutral]}
}

// Select is total over labels: unknown or unmapped labels fall back to the
// neutral strategy rather than failing.
func (s *Selector) Select(label emotion.Label) Strategy {
	if strategy, ok := s.table[label]; ok {
		return strategy
	}
	return s.fallback
}
