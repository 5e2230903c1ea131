package sentiment

import (
	"testing"

	"github.com/seenimoa/smartreviewer/pkg/models"
)

func TestClassifyScenarios(t *testing.T) {
	tests := []struct {
		name string
		text string
		want models.SentimentResult
	}{
		{
			name: "positive",
			text: "This is a great success and a breakthrough!",
			want: models.SentimentResult{Sentiment: models.SentimentPositive, Score: 70},
		},
		{
			name: "negative",
			text: "This is a terrible crisis and a problem!",
			want: models.SentimentResult{Sentiment: models.SentimentNegative, Score: 30},
		},
		{
			name: "neutral no matches",
			text: "The article discusses weather patterns and temperature.",
			want: models.SentimentResult{Sentiment: models.SentimentNeutral, Score: 50},
		},
		{
			name: "tie",
			text: "Good plan, bad execution.",
			want: models.SentimentResult{Sentiment: models.SentimentNeutral, Score: 50},
		},
		{
			name: "empty",
			text: "",
			want: models.SentimentResult{Sentiment: models.SentimentNeutral, Score: 50},
		},
		{
			name: "case insensitive",
			text: "EXCELLENT QUARTER",
			want: models.SentimentResult{Sentiment: models.SentimentPositive, Score: 70},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestCountsSubstringMatching(t *testing.T) {
	// "winner" contains "win", "failure" contains "fail".
	pos, neg := Counts("The winner avoided failure")
	if pos != 1 || neg != 1 {
		t.Fatalf("Counts: got pos=%d neg=%d, want 1/1", pos, neg)
	}

	// "winter" contains none of the keywords.
	pos, neg = Counts("A cold winter")
	if pos != 0 || neg != 0 {
		t.Fatalf("Counts: got pos=%d neg=%d, want 0/0", pos, neg)
	}
}

func TestCountsRepeatedWordCountsOnce(t *testing.T) {
	// Three "crisis" hits still count once; two distinct positives win.
	got := Classify("crisis crisis crisis, but a great success")
	if got.Sentiment != models.SentimentPositive || got.Score != 70 {
		t.Fatalf("got %+v, want positive/70", got)
	}
}
