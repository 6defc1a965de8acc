package sensing

import (
	"context"
	"strings"

	"github.com/linxiaoyu/mindhaven/backend/internal/model/emotion"
)

// 关键词命中一次的基础得分与感叹号的加成。
const (
	keywordScore     = 0.3
	exclamationBoost = 0.1
	maxExclamations  = 3
)

var keywordBuckets = map[emotion.Label][]string{
	emotion.Happy: {
		"happy", "glad", "great", "wonderful", "joy", "excited", "proud",
		"grateful", "thankful", "love", "amazing", "better", "relieved", "hopeful",
	},
	emotion.Sad: {
		"sad", "down", "depressed", "lonely", "empty", "cry", "crying",
		"hopeless", "miserable", "grief", "hurt", "heartbroken", "tired of everything",
	},
	emotion.Angry: {
		"angry", "furious", "mad", "annoyed", "frustrated", "rage", "hate",
		"fed up", "unfair", "resent", "irritated", "pissed",
	},
	emotion.Anxious: {
		"anxious", "worried", "nervous", "afraid", "scared", "panic",
		"overwhelmed", "stressed", "on edge", "can't sleep", "racing", "dread", "restless",
	},
	emotion.Neutral: {
		"okay", "fine", "alright", "so-so", "nothing much",
	},
}

// TextChannel scores free text against keyword buckets. Deterministic:
// identical text always yields identical observations.
type TextChannel struct{}

// NewTextChannel returns the keyword-based text sensing channel.
func NewTextChannel() *TextChannel {
	return &TextChannel{}
}

// Source identifies this channel as the text sensor.
func (c *TextChannel) Source() emotion.Source {
	return emotion.SourceText
}

// Analyze scores the turn text. Empty text or zero keyword hits means no
// signal.
func (c *TextChannel) Analyze(_ context.Context, input Input) (emotion.Observation, bool, error) {
	normalized := strings.ToLower(strings.TrimSpace(input.Text))
	if normalized == "" {
		return emotion.Observation{}, false, nil
	}

	values := make(map[emotion.Label]float64)
	for label, keywords := range keywordBuckets {
		hits := 0
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				hits++
			}
		}
		if hits > 0 {
			values[label] = keywordScore * float64(hits)
		}
	}

	if exclamations := strings.Count(input.Text, "!"); exclamations > 0 && values[emotion.Happy] > 0 {
		if exclamations > maxExclamations {
			exclamations = maxExclamations
		}
		values[emotion.Happy] += exclamationBoost * float64(exclamations)
	}

	if len(values) == 0 {
		return emotion.Observation{}, false, nil
	}
	return emotion.New(emotion.SourceText, values), true, nil
}
