package sensing

import (
	"context"
	"testing"

	"github.com/linxiaoyu/mindhaven/backend/internal/model/emotion"
)

func TestTextChannelDetectsAnxiety(t *testing.T) {
	channel := NewTextChannel()
	obs, ok, err := channel.Analyze(context.Background(), Input{Text: "I feel anxious and I can't sleep"})
	if err != nil {
		t.Fatalf("Analyze err: %v", err)
	}
	if !ok {
		t.Fatal("expected a signal")
	}
	if obs.Primary != emotion.Anxious {
		t.Fatalf("expected anxious, got %s", obs.Primary)
	}
	if obs.Source != emotion.SourceText {
		t.Fatalf("expected text source, got %s", obs.Source)
	}
}

func TestTextChannelExclamationBoostsHappy(t *testing.T) {
	channel := NewTextChannel()
	plain, ok, _ := channel.Analyze(context.Background(), Input{Text: "I am happy today"})
	if !ok {
		t.Fatal("expected a signal")
	}
	boosted, ok, _ := channel.Analyze(context.Background(), Input{Text: "I am happy today!!"})
	if !ok {
		t.Fatal("expected a signal")
	}
	if boosted.Values[emotion.Happy] <= plain.Values[emotion.Happy] {
		t.Fatalf("exclamations should boost happy: %f vs %f",
			boosted.Values[emotion.Happy], plain.Values[emotion.Happy])
	}
}

func TestTextChannelSilentWithoutKeywords(t *testing.T) {
	channel := NewTextChannel()
	for _, text := range []string{"", "   ", "the meeting is at nine"} {
		if _, ok, err := channel.Analyze(context.Background(), Input{Text: text}); err != nil || ok {
			t.Fatalf("expected no signal for %q (ok=%v err=%v)", text, ok, err)
		}
	}
}

func TestTextChannelIsDeterministic(t *testing.T) {
	channel := NewTextChannel()
	first, _, _ := channel.Analyze(context.Background(), Input{Text: "worried and stressed about work"})
	for i := 0; i < 10; i++ {
		again, _, _ := channel.Analyze(context.Background(), Input{Text: "worried and stressed about work"})
		if again.Primary != first.Primary || again.Confidence != first.Confidence {
			t.Fatal("text channel must be deterministic")
		}
	}
}

func TestObserveSkipsSilentChannels(t *testing.T) {
	channels := []Channel{
		NewTextChannel(),
		NewStaticChannel(emotion.SourceFacial, map[emotion.Label]float64{emotion.Sad: 0.6}),
		NewStaticChannel(emotion.SourceVoice, nil), // silent
	}

	observations, err := Observe(context.Background(), channels, Input{Text: "feeling sad tonight"})
	if err != nil {
		t.Fatalf("Observe err: %v", err)
	}
	if len(observations) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(observations))
	}
	if observations[0].Source != emotion.SourceText || observations[1].Source != emotion.SourceFacial {
		t.Fatalf("unexpected sources: %s, %s", observations[0].Source, observations[1].Source)
	}
}
