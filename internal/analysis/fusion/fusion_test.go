package fusion

import (
	"errors"
	"math"
	"testing"

	"github.com/linxiaoyu/mindhaven/backend/internal/model/emotion"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFuseZeroObservations(t *testing.T) {
	if _, err := Fuse(); !errors.Is(err, ErrNoObservations) {
		t.Fatalf("expected ErrNoObservations, got %v", err)
	}
}

func TestFuseSingleObservationPreservesSource(t *testing.T) {
	in := emotion.New(emotion.SourceVoice, map[emotion.Label]float64{
		emotion.Angry:   0.6,
		emotion.Neutral: 0.2,
	})

	out, err := Fuse(in)
	if err != nil {
		t.Fatalf("Fuse err: %v", err)
	}
	if out.Source != emotion.SourceVoice {
		t.Fatalf("expected voice source, got %s", out.Source)
	}
	if len(out.Values) != len(in.Values) {
		t.Fatalf("label set changed: got %d labels, want %d", len(out.Values), len(in.Values))
	}
	if out.Primary != emotion.Angry || out.Confidence != 0.6 {
		t.Fatalf("unexpected judgment: %s/%f", out.Primary, out.Confidence)
	}
}

func TestFuseAveragesOnlyContributingChannels(t *testing.T) {
	facial := emotion.New(emotion.SourceFacial, map[emotion.Label]float64{emotion.Happy: 0.8})
	text := emotion.New(emotion.SourceText, map[emotion.Label]float64{
		emotion.Happy: 0.4,
		emotion.Sad:   0.2,
	})

	out, err := Fuse(facial, text)
	if err != nil {
		t.Fatalf("Fuse err: %v", err)
	}
	if out.Source != emotion.SourceCombined {
		t.Fatalf("expected combined source, got %s", out.Source)
	}
	if got := out.Values[emotion.Happy]; !approx(got, 0.6) {
		t.Fatalf("expected happy mean 0.6, got %f", got)
	}
	// sad was reported by one channel only: no zero-padding from the other.
	if got := out.Values[emotion.Sad]; !approx(got, 0.2) {
		t.Fatalf("expected sad 0.2, got %f", got)
	}
	if out.Primary != emotion.Happy || !approx(out.Confidence, 0.6) {
		t.Fatalf("unexpected judgment: %s/%f", out.Primary, out.Confidence)
	}
}

func TestFuseIsDeterministic(t *testing.T) {
	a := emotion.New(emotion.SourceFacial, map[emotion.Label]float64{emotion.Anxious: 0.5, emotion.Sad: 0.5})
	b := emotion.New(emotion.SourceText, map[emotion.Label]float64{emotion.Anxious: 0.5, emotion.Sad: 0.5})

	first, err := Fuse(a, b)
	if err != nil {
		t.Fatalf("Fuse err: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Fuse(a, b)
		if err != nil {
			t.Fatalf("Fuse err: %v", err)
		}
		if again.Primary != first.Primary || again.Confidence != first.Confidence {
			t.Fatalf("fusion drifted between runs: %s/%f vs %s/%f",
				again.Primary, again.Confidence, first.Primary, first.Confidence)
		}
	}
	if first.Primary != emotion.Sad {
		t.Fatalf("expected canonical tie-break to sad, got %s", first.Primary)
	}
}
