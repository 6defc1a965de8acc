// Package sensing defines the contract between raw per-channel input and the
// emotion pipeline. Channels are pluggable so the fusion engine can be tested
// against fixed observation fixtures instead of live models.
package sensing

import (
	"context"

	"github.com/linxiaoyu/mindhaven/backend/internal/model/emotion"
)

// Input carries the raw material of one user turn. Fields a channel does not
// understand are simply ignored by it.
type Input struct {
	Text string
}

// Channel produces an emotion observation from raw input. ok=false means the
// channel had no signal for this turn and must be left out of fusion.
type Channel interface {
	Source() emotion.Source
	Analyze(ctx context.Context, input Input) (obs emotion.Observation, ok bool, err error)
}

// Observe runs every channel over the input and collects the observations
// that carried a signal. Channel errors abort the turn; a silent channel is
// not an error.
func Observe(ctx context.Context, channels []Channel, input Input) ([]emotion.Observation, error) {
	observations := make([]emotion.Observation, 0, len(channels))
	for _, channel := range channels {
		obs, ok, err := channel.Analyze(ctx, input)
		if err != nil {
			return nil, err
		}
		if ok {
			observations = append(observations, obs)
		}
	}
	return observations, nil
}
