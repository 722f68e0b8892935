package dialog

import (
	"strings"
)

// Verdict is the classification of one gathered input.
type Verdict int

const (
	Unrecognized Verdict = iota
	Yes
	No
)

// Classifier decides whether a gathered input is affirmative or negative.
// It is an interface so the matching policy can be swapped without
// touching the state machine.
type Classifier interface {
	Classify(transcript, digits string) Verdict
}

// KeywordClassifier matches case-insensitive substrings against fixed
// keyword lists. Digit "1" is affirmative, "2" negative.
type KeywordClassifier struct {
	yesWords []string
	noWords  []string
}

// NewKeywordClassifier returns the default keyword policy, covering
// English and common Hindi responses heard over the phone.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		yesWords: []string{"yes", "yeah", "yep", "sure", "okay", "ok", "agreed", "fine", "haan", "han", "theek", "accha"},
		noWords:  []string{"no", "nope", "nahi", "nahin", "not interested", "don't", "dont"},
	}
}

// Classify implements Classifier.
func (c *KeywordClassifier) Classify(transcript, digits string) Verdict {
	switch strings.TrimSpace(digits) {
	case "1":
		return Yes
	case "2":
		return No
	}

	text := strings.ToLower(transcript)
	if text == "" {
		return Unrecognized
	}

	// Negatives first: "no, not okay" should not read as affirmative.
	for _, w := range c.noWords {
		if strings.Contains(text, w) {
			return No
		}
	}
	for _, w := range c.yesWords {
		if strings.Contains(text, w) {
			return Yes
		}
	}
	return Unrecognized
}
