package services

import (
	"strings"

	"formdesk.link/models"
)

// ValidateSubmission checks a candidate answer set against the live tree of a form and returns
// the first failure as a *SubmissionError. Required questions are checked first in form order,
// then each answer in the order it was sent. live must contain live nodes only (see LiveTree);
// removed questions and options in it would be accepted.
func ValidateSubmission(live *models.Form, answers []CandidateAnswer) error {
	questions := make(map[uint]*models.Question, len(live.Questions))
	for i := range live.Questions {
		questions[live.Questions[i].ID] = &live.Questions[i]
	}

	answered := make(map[uint]struct{}, len(answers))
	for _, a := range answers {
		answered[a.QuestionID] = struct{}{}
	}
	for _, q := range live.Questions {
		if _, ok := answered[q.ID]; q.IsRequired && !ok {
			return &SubmissionError{Kind: MissingRequired, QuestionID: q.ID}
		}
	}

	seen := make(map[uint]struct{}, len(answers))
	for _, a := range answers {
		if _, dup := seen[a.QuestionID]; dup {
			return &SubmissionError{Kind: DuplicateAnswer, QuestionID: a.QuestionID}
		}
		seen[a.QuestionID] = struct{}{}

		q, ok := questions[a.QuestionID]
		if !ok {
			return &SubmissionError{Kind: UnknownQuestion, QuestionID: a.QuestionID}
		}
		if !answerMatchesKind(q, a) {
			return &SubmissionError{Kind: TypeMismatch, QuestionID: a.QuestionID}
		}
	}
	return nil
}

func answerMatchesKind(q *models.Question, a CandidateAnswer) bool {
	hasText := hasString(a.TextValue)
	hasFile := hasString(a.FilePath)
	hasOption := a.OptionID != nil && *a.OptionID != 0

	switch q.Kind {
	case models.QuestionTypeText:
		return hasText && !hasFile && !hasOption
	case models.QuestionTypeFile:
		return hasFile && !hasText && !hasOption
	case models.QuestionTypeChoice:
		if !hasOption || hasText || hasFile {
			return false
		}
		for _, o := range q.Options {
			if o.ID == *a.OptionID {
				return true
			}
		}
	}
	return false
}

func hasString(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

// normalizeAnswer keeps only the field matching the kind of q, so stored answers
// carry exactly one value.
func normalizeAnswer(q *models.Question, a CandidateAnswer) models.ResponseAnswer {
	answer := models.ResponseAnswer{QuestionID: q.ID}
	switch q.Kind {
	case models.QuestionTypeText:
		answer.TextValue = a.TextValue
	case models.QuestionTypeChoice:
		answer.OptionID = a.OptionID
	case models.QuestionTypeFile:
		answer.FilePath = a.FilePath
	}
	return answer
}
