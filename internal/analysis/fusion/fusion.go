// Package fusion 将多个通道的情绪观测合并为单一判断。
package fusion

import (
	"errors"

	"github.com/linxiaoyu/mindhaven/backend/internal/model/emotion"
)

// ErrNoObservations is returned when fusion is invoked without input; callers
// must supply at least one channel reading.
var ErrNoObservations = errors.New("no observations to fuse")

// Fuse merges channel observations into one judgment. Per-label scores are
// averaged over the channels that actually reported the label; channels that
// stayed silent on a label do not drag its mean down. A single observation
// keeps its source; more than one yields source=combined. The fused primary
// emotion and confidence are recomputed with the canonical arg-max rule.
//
// Fuse 是纯函数：相同输入永远得到相同输出。
func Fuse(observations ...emotion.Observation) (emotion.Observation, error) {
	if len(observations) == 0 {
		return emotion.Observation{}, ErrNoObservations
	}

	if len(observations) == 1 {
		obs := observations[0]
		return emotion.New(obs.Source, obs.Values), nil
	}

	sums := make(map[emotion.Label]float64)
	counts := make(map[emotion.Label]int)
	for _, obs := range observations {
		for label, score := range obs.Values {
			sums[label] += score
			counts[label]++
		}
	}

	fused := make(map[emotion.Label]float64, len(sums))
	for label, sum := range sums {
		fused[label] = sum / float64(counts[label])
	}

	return emotion.New(emotion.SourceCombined, fused), nil
}
