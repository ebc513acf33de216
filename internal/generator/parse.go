package generator

import (
	"encoding/json"
	"strings"

	"quiz-room-service/internal/domain"
)

// record is one question as emitted by the text-generation service. Pointer
// fields distinguish "missing" from zero values during validation.
type record struct {
	Question           *string  `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex *int     `json:"correctAnswerIndex"`
	Difficulty         string   `json:"difficulty"`
}

// ParseQuestions extracts the JSON array from a model reply and validates it as
// a whole. Any malformed record fails the entire reply.
func ParseQuestions(raw string) ([]domain.Question, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start < 0 || end < start {
		return nil, &domain.ContentError{Index: -1, Reason: "reply does not contain a JSON list"}
	}

	var records []record
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &records); err != nil {
		return nil, &domain.ContentError{Index: -1, Reason: "reply is not a list of question objects"}
	}
	if len(records) == 0 {
		return nil, &domain.ContentError{Index: -1, Reason: "no questions"}
	}

	questions := make([]domain.Question, 0, len(records))
	for i, rec := range records {
		if rec.Question == nil {
			return nil, &domain.ContentError{Index: i, Reason: "missing question text"}
		}
		if rec.CorrectAnswerIndex == nil {
			return nil, &domain.ContentError{Index: i, Reason: "missing correct answer index"}
		}
		questions = append(questions, domain.Question{
			Prompt:       strings.TrimSpace(*rec.Question),
			Options:      rec.Options,
			CorrectIndex: *rec.CorrectAnswerIndex,
			Difficulty:   strings.TrimSpace(rec.Difficulty),
		})
	}
	if err := domain.ValidateQuestions(questions); err != nil {
		return nil, err
	}
	return questions, nil
}
