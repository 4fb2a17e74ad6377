package services

import (
	"math"
	"sort"

	"formdesk.link/models"
)

type OptionSummary struct {
	OptionID   uint    `json:"option_id"`
	Text       string  `json:"text"`
	Removed    bool    `json:"removed"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

type QuestionSummary struct {
	QuestionID  uint                `json:"question_id"`
	Kind        models.QuestionType `json:"question_type"`
	Text        string              `json:"text"`
	Removed     bool                `json:"removed"`
	AnswerCount int64               `json:"answer_count"`
	Options     []OptionSummary     `json:"options,omitempty"`
}

// FormSummary aggregates every response of a form over its historical tree.
type FormSummary struct {
	FormID        uint              `json:"form_id"`
	Title         string            `json:"title"`
	ResponseCount int64             `json:"response_count"`
	Questions     []QuestionSummary `json:"questions"`
}

// BuildSummary counts answers per question and, for options, per option. form must be the full
// tree. Removed questions and options are kept and flagged so old answers stay labelled.
// Questions are listed live first in order, then removed ones by id.
func BuildSummary(form *models.Form, answers []models.ResponseAnswer, responseCount int64) *FormSummary {
	perQuestion := make(map[uint]int64)
	perOption := make(map[uint]int64)
	optionAnswers := make(map[uint]int64)
	for _, a := range answers {
		perQuestion[a.QuestionID]++
		if a.OptionID != nil {
			perOption[*a.OptionID]++
			optionAnswers[a.QuestionID]++
		}
	}

	questions := append([]models.Question(nil), form.Questions...)
	sortLiveFirst(questions)

	summary := &FormSummary{FormID: form.ID, Title: form.Title, ResponseCount: responseCount, Questions: make([]QuestionSummary, 0, len(questions))}
	for _, q := range questions {
		qs := QuestionSummary{
			QuestionID:  q.ID,
			Kind:        q.Kind,
			Text:        q.Text,
			Removed:     !q.IsLive(),
			AnswerCount: perQuestion[q.ID],
		}
		// A question that used to be a choice keeps its option tallies.
		if len(q.Options) > 0 {
			options := append([]models.QuestionOption(nil), q.Options...)
			sort.SliceStable(options, func(i, j int) bool {
				return liveFirstLess(options[i].OrderKey, options[i].ID, options[j].OrderKey, options[j].ID)
			})
			total := optionAnswers[q.ID]
			for _, o := range options {
				count := perOption[o.ID]
				qs.Options = append(qs.Options, OptionSummary{
					OptionID:   o.ID,
					Text:       o.Text,
					Removed:    !o.IsLive(),
					Count:      count,
					Percentage: percentage(count, total),
				})
			}
		}
		summary.Questions = append(summary.Questions, qs)
	}
	return summary
}

func sortLiveFirst(questions []models.Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		return liveFirstLess(questions[i].OrderKey, questions[i].ID, questions[j].OrderKey, questions[j].ID)
	})
}

func liveFirstLess(keyA int, idA uint, keyB int, idB uint) bool {
	liveA, liveB := keyA > 0, keyB > 0
	switch {
	case liveA != liveB:
		return liveA
	case liveA && keyA != keyB:
		return keyA < keyB
	default:
		return idA < idB
	}
}

// percentage is count/total as a percent rounded to two decimals.
func percentage(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)*10000/float64(total)) / 100
}
