package provider

import "strings"

// Word lists for headline sentiment scoring. None of the wired news sources
// ship sentiment, so providers score titles and summaries locally: each
// positive hit adds 1, each negative subtracts 1, and the sum is squashed
// into [-1, 1] by dividing by the hit count.
var (
	positiveWords = []string{
		"beat", "beats", "surge", "surges", "rally", "record", "growth",
		"upgrade", "upgraded", "outperform", "strong", "gain", "gains",
		"soar", "soars", "profit", "bullish", "exceed", "exceeds", "boost",
		"breakthrough", "win", "wins", "expand", "expands",
	}
	negativeWords = []string{
		"miss", "misses", "plunge", "plunges", "selloff", "drop", "drops",
		"downgrade", "downgraded", "underperform", "weak", "loss", "losses",
		"fall", "falls", "lawsuit", "probe", "investigation", "recall",
		"bearish", "cut", "cuts", "layoff", "layoffs", "warn", "warns",
		"decline", "declines",
	}
)

// ScoreSentiment returns a sentiment score in [-1, 1] for a piece of text.
// Text with no lexicon hits scores 0.
func ScoreSentiment(text string) float64 {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	var score, hits float64
	for _, w := range words {
		switch {
		case contains(positiveWords, w):
			score++
			hits++
		case contains(negativeWords, w):
			score--
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	return score / hits
}

func contains(list []string, w string) bool {
	for _, s := range list {
		if s == w {
			return true
		}
	}
	return false
}
