package sensing

import (
	"context"

	"github.com/linxiaoyu/mindhaven/backend/internal/model/emotion"
)

// StaticChannel always reports a fixed observation. It stands in for the
// facial and voice sensors until real models are wired up, and doubles as the
// fixture channel in tests.
type StaticChannel struct {
	source emotion.Source
	values map[emotion.Label]float64
}

// NewStaticChannel returns a channel that reports the given scores for the
// given source on every turn. Empty scores make the channel permanently
// silent.
func NewStaticChannel(source emotion.Source, values map[emotion.Label]float64) *StaticChannel {
	copied := make(map[emotion.Label]float64, len(values))
	for label, score := range values {
		copied[label] = score
	}
	return &StaticChannel{source: source, values: copied}
}

// Source returns the configured sensing source.
func (c *StaticChannel) Source() emotion.Source {
	return c.source
}

// Analyze reports the fixed observation.
func (c *StaticChannel) Analyze(context.Context, Input) (emotion.Observation, bool, error) {
	if len(c.values) == 0 {
		return emotion.Observation{}, false, nil
	}
	return emotion.New(c.source, c.values), true, nil
}
