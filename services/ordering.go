package services

import (
	"fmt"
	"sort"

	"formdesk.link/models"
)

// LiveOrderKey is the order key of the sibling at zero-based position i of a submitted list.
func LiveOrderKey(i int) int {
	return i + 1
}

// CheckContiguous verifies that the live keys (> 0) are exactly 1..N with no repeats.
// Removed keys (<= 0) are ignored.
func CheckContiguous(keys []int) error {
	live := make([]int, 0, len(keys))
	for _, k := range keys {
		if k > 0 {
			live = append(live, k)
		}
	}
	sort.Ints(live)
	for i, k := range live {
		if k != i+1 {
			return fmt.Errorf("live order keys %v are not contiguous from 1", live)
		}
	}
	return nil
}

// verifyTreeOrdering runs CheckContiguous over the questions of form and the options of each
// live question.
func verifyTreeOrdering(form *models.Form) error {
	keys := make([]int, len(form.Questions))
	for i, q := range form.Questions {
		keys[i] = q.OrderKey
		if !q.IsLive() {
			continue
		}
		optionKeys := make([]int, len(q.Options))
		for j, o := range q.Options {
			optionKeys[j] = o.OrderKey
		}
		if err := CheckContiguous(optionKeys); err != nil {
			return fmt.Errorf("question %d: %w", q.ID, err)
		}
	}
	if err := CheckContiguous(keys); err != nil {
		return fmt.Errorf("form %d: %w", form.ID, err)
	}
	return nil
}

// LiveTree returns a copy of form holding only live questions and live options, in order.
// The input is not modified.
func LiveTree(form *models.Form) *models.Form {
	live := *form
	live.Questions = make([]models.Question, 0, len(form.Questions))
	for _, q := range form.Questions {
		if !q.IsLive() {
			continue
		}
		options := make([]models.QuestionOption, 0, len(q.Options))
		for _, o := range q.Options {
			if o.IsLive() {
				options = append(options, o)
			}
		}
		sort.SliceStable(options, func(i, j int) bool { return options[i].OrderKey < options[j].OrderKey })
		q.Options = options
		live.Questions = append(live.Questions, q)
	}
	sort.SliceStable(live.Questions, func(i, j int) bool { return live.Questions[i].OrderKey < live.Questions[j].OrderKey })
	return &live
}
