package emotion

// Label 表示系统识别的情绪标签，取值范围封闭。
type Label string

const (
	Happy   Label = "happy"
	Sad     Label = "sad"
	Angry   Label = "angry"
	Anxious Label = "anxious"
	Neutral Label = "neutral"
)

// CanonicalOrder 定义标签的规范顺序，得分相同时靠前者获胜。
var CanonicalOrder = []Label{Happy, Sad, Angry, Anxious, Neutral}

// Known reports whether the label belongs to the closed set.
func Known(label Label) bool {
	for _, l := range CanonicalOrder {
		if l == label {
			return true
		}
	}
	return false
}

// Source identifies the sensing channel that produced an observation.
type Source string

const (
	SourceFacial   Source = "facial"
	SourceVoice    Source = "voice"
	SourceText     Source = "text"
	SourceCombined Source = "combined"
)

// Observation 表示某个通道在某一时刻的情绪读数。
// 不变量：Confidence == Values[Primary]。
type Observation struct {
	Source     Source            `json:"source"`
	Values     map[Label]float64 `json:"values"`
	Primary    Label             `json:"primaryEmotion"`
	Confidence float64           `json:"confidence"`
}

// New builds an Observation from raw channel scores. Scores are clamped to
// [0,1], unknown labels are discarded, and the primary emotion is the arg-max
// with ties broken by canonical order. Zero usable labels yields neutral with
// confidence 0.
func New(source Source, values map[Label]float64) Observation {
	cleaned := make(map[Label]float64, len(values))
	for label, score := range values {
		if !Known(label) {
			continue
		}
		cleaned[label] = clamp(score)
	}

	obs := Observation{
		Source:     source,
		Values:     cleaned,
		Primary:    Neutral,
		Confidence: 0,
	}
	if len(cleaned) == 0 {
		return obs
	}

	first := true
	for _, label := range CanonicalOrder {
		score, ok := cleaned[label]
		if !ok {
			continue
		}
		if first || score > obs.Confidence {
			obs.Primary = label
			obs.Confidence = score
			first = false
		}
	}
	return obs
}

// Score returns the recorded score for a label, 0 when the channel did not
// report it.
func (o Observation) Score(label Label) float64 {
	return o.Values[label]
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
