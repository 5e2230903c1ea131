package sentiment

import (
	"strings"

	"github.com/seenimoa/smartreviewer/pkg/models"
)

// ------------------------------------------------------------------
// Keyword-based sentiment classifier (offline, no LLM needed).
// The ai package uses it whenever the completion endpoint cannot
// produce a usable answer.
// ------------------------------------------------------------------

// Fixed scores returned by Classify. They are not a sliding scale.
const (
	PositiveScore = 70
	NeutralScore  = 50
	NegativeScore = 30
)

// positiveWords / negativeWords are matched as lowercase substrings,
// so "winner" counts as "win".
var positiveWords = []string{
	"good", "great", "excellent", "positive", "success", "win", "breakthrough",
}

var negativeWords = []string{
	"bad", "terrible", "negative", "fail", "crisis", "problem", "danger",
}

// Counts returns how many words of each list occur in text. Each word
// counts at most once regardless of how often it repeats.
func Counts(text string) (positive, negative int) {
	lower := strings.ToLower(text)
	return countContained(lower, positiveWords), countContained(lower, negativeWords)
}

// Classify labels text by comparing positive and negative keyword hits.
// Ties, including no hits at all, are neutral.
func Classify(text string) models.SentimentResult {
	pos, neg := Counts(text)

	switch {
	case pos > neg:
		return models.SentimentResult{Sentiment: models.SentimentPositive, Score: PositiveScore}
	case neg > pos:
		return models.SentimentResult{Sentiment: models.SentimentNegative, Score: NegativeScore}
	default:
		return models.SentimentResult{Sentiment: models.SentimentNeutral, Score: NeutralScore}
	}
}

func countContained(lower string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			n++
		}
	}
	return n
}
