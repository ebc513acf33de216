package domain

import "strings"

// ValidateQuestions checks a question set as a whole; one bad record rejects all of them.
func ValidateQuestions(questions []Question) error {
	if len(questions) == 0 {
		return &ContentError{Index: -1, Reason: "no questions"}
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Prompt) == "" {
			return &ContentError{Index: i, Reason: "empty prompt"}
		}
		if len(q.Options) < 2 {
			return &ContentError{Index: i, Reason: "fewer than two options"}
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return &ContentError{Index: i, Reason: "correct index out of range"}
		}
	}
	return nil
}
