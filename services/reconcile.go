package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"formdesk.link/models"
	"formdesk.link/repositories"
)

// QuestionChange is the write planned for one submitted question. For a created question the
// options to insert travel in Question.Options; for an existing one they are split into the
// three option lists.
type QuestionChange struct {
	Question        models.Question
	Create          bool
	CreateOptions   []models.QuestionOption
	UpdateOptions   []models.QuestionOption
	RemoveOptionIDs []uint
}

// ReconcilePlan is the full set of writes that turns the persisted tree into the submitted one.
type ReconcilePlan struct {
	Changes           []QuestionChange
	RemoveQuestionIDs []uint
}

// PlanReconciliation diffs the submitted questions against every persisted question of the form,
// removed ones included, without touching the store. Each persisted row can be claimed once;
// persisted live rows nobody claims are scheduled for removal.
func PlanReconciliation(persisted []models.Question, submitted []SubmittedQuestion) (*ReconcilePlan, error) {
	remaining := make(map[uint]*models.Question, len(persisted))
	for i := range persisted {
		remaining[persisted[i].ID] = &persisted[i]
	}
	consumed := make(map[uint]struct{}, len(submitted))

	plan := &ReconcilePlan{Changes: make([]QuestionChange, 0, len(submitted))}
	for i, sq := range submitted {
		orderKey := LiveOrderKey(i)
		identity := ClassifyIdentity(sq.ID)

		if identity.Kind == IdentityNew {
			change, err := planNewQuestion(sq, orderKey)
			if err != nil {
				return nil, err
			}
			plan.Changes = append(plan.Changes, change)
			continue
		}

		existing, ok := remaining[identity.ID]
		if !ok {
			reason := ReasonForeignQuestion
			if _, seen := consumed[identity.ID]; seen {
				reason = ReasonReferencedTwice
			}
			return nil, &IntegrityError{Entity: "question", ID: identity.ID, Reason: reason}
		}
		delete(remaining, identity.ID)
		consumed[identity.ID] = struct{}{}

		change, err := planExistingQuestion(existing, sq, orderKey)
		if err != nil {
			return nil, err
		}
		plan.Changes = append(plan.Changes, change)
	}

	for id, q := range remaining {
		if q.IsLive() {
			plan.RemoveQuestionIDs = append(plan.RemoveQuestionIDs, id)
		}
	}
	sort.Slice(plan.RemoveQuestionIDs, func(i, j int) bool { return plan.RemoveQuestionIDs[i] < plan.RemoveQuestionIDs[j] })
	return plan, nil
}

func planNewQuestion(sq SubmittedQuestion, orderKey int) (QuestionChange, error) {
	q := models.Question{
		Kind:       sq.Kind,
		Text:       sq.Text,
		IsRequired: sq.IsRequired,
		OrderKey:   orderKey,
	}
	if sq.Kind == models.QuestionTypeChoice {
		q.Options = make([]models.QuestionOption, 0, len(sq.Options))
		for j, so := range sq.Options {
			if identity := ClassifyIdentity(so.ID); identity.Kind == IdentityDurable {
				return QuestionChange{}, &IntegrityError{Entity: "option", ID: identity.ID, Reason: ReasonOptionOfNewQuestion}
			}
			q.Options = append(q.Options, models.QuestionOption{Text: so.Text, OrderKey: LiveOrderKey(j)})
		}
	}
	return QuestionChange{Question: q, Create: true}, nil
}

func planExistingQuestion(existing *models.Question, sq SubmittedQuestion, orderKey int) (QuestionChange, error) {
	change := QuestionChange{
		Question: models.Question{
			BaseModel:  models.BaseModel{ID: existing.ID},
			FormID:     existing.FormID,
			Kind:       sq.Kind,
			Text:       sq.Text,
			IsRequired: sq.IsRequired,
			OrderKey:   orderKey,
		},
	}

	remaining := make(map[uint]*models.QuestionOption, len(existing.Options))
	for i := range existing.Options {
		remaining[existing.Options[i].ID] = &existing.Options[i]
	}

	// Options of non-choice questions are never live; whatever was sent is ignored.
	if sq.Kind == models.QuestionTypeChoice {
		consumed := make(map[uint]struct{}, len(sq.Options))
		for j, so := range sq.Options {
			option := models.QuestionOption{QuestionID: existing.ID, Text: so.Text, OrderKey: LiveOrderKey(j)}

			identity := ClassifyIdentity(so.ID)
			if identity.Kind == IdentityNew {
				change.CreateOptions = append(change.CreateOptions, option)
				continue
			}
			if _, ok := remaining[identity.ID]; !ok {
				reason := ReasonForeignOption
				if _, seen := consumed[identity.ID]; seen {
					reason = ReasonReferencedTwice
				}
				return QuestionChange{}, &IntegrityError{Entity: "option", ID: identity.ID, Reason: reason}
			}
			delete(remaining, identity.ID)
			consumed[identity.ID] = struct{}{}

			option.ID = identity.ID
			change.UpdateOptions = append(change.UpdateOptions, option)
		}
	}

	for id, o := range remaining {
		if o.IsLive() {
			change.RemoveOptionIDs = append(change.RemoveOptionIDs, id)
		}
	}
	sort.Slice(change.RemoveOptionIDs, func(i, j int) bool { return change.RemoveOptionIDs[i] < change.RemoveOptionIDs[j] })
	return change, nil
}

// applyPlan performs the planned writes through repo. It must run inside the transaction that
// loaded the persisted tree the plan was computed from.
func applyPlan(ctx context.Context, repo repositories.IQuestionRepository, formID uint, plan *ReconcilePlan) error {
	for i := range plan.Changes {
		change := &plan.Changes[i]
		change.Question.FormID = formID

		if change.Create {
			if err := repo.Create(ctx, &change.Question); err != nil {
				return fmt.Errorf("create question: %w", err)
			}
			continue
		}

		if err := repo.Update(ctx, &change.Question); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return &IntegrityError{Entity: "question", ID: change.Question.ID, Reason: ReasonForeignQuestion}
			}
			return fmt.Errorf("update question %d: %w", change.Question.ID, err)
		}
		for j := range change.CreateOptions {
			if err := repo.CreateOption(ctx, &change.CreateOptions[j]); err != nil {
				return fmt.Errorf("create option: %w", err)
			}
		}
		for j := range change.UpdateOptions {
			if err := repo.UpdateOption(ctx, &change.UpdateOptions[j]); err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return &IntegrityError{Entity: "option", ID: change.UpdateOptions[j].ID, Reason: ReasonForeignOption}
				}
				return fmt.Errorf("update option %d: %w", change.UpdateOptions[j].ID, err)
			}
		}
		if err := repo.MarkOptionsRemoved(ctx, change.RemoveOptionIDs); err != nil {
			return fmt.Errorf("remove options: %w", err)
		}
	}

	if err := repo.MarkQuestionsRemoved(ctx, formID, plan.RemoveQuestionIDs); err != nil {
		return fmt.Errorf("remove questions: %w", err)
	}
	return nil
}
