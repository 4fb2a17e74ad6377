package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"formdesk.link/configs/configslog"
	"formdesk.link/models"
	"formdesk.link/pkg/metrics"
	"formdesk.link/pkg/queryparams"
	"formdesk.link/pkg/validation"
	"formdesk.link/repositories"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// IFormService manages form definitions.
type IFormService interface {
	CreateForm(ctx context.Context, ownerID uint, tree SubmittedForm) (*models.Form, error)
	ReconcileForm(ctx context.Context, formID, ownerID uint, tree SubmittedForm) (*models.Form, error)
	GetFormForOwner(ctx context.Context, formID, ownerID uint) (*models.Form, error)
	GetLiveForm(ctx context.Context, formID uint) (*models.Form, error)
	GetLiveFormByShareKey(ctx context.Context, key string) (*models.Form, error)
	ListFormsForOwner(ctx context.Context, ownerID uint, params queryparams.ListParams) (*queryparams.PaginatedResult, error)
	DeleteForm(ctx context.Context, formID, ownerID uint) error
}

// FormListItem is one row of an owner's form list.
type FormListItem struct {
	models.Form
	// Questions shadows the embedded tree, which list rows never load.
	Questions         []models.Question `json:"questions,omitempty"`
	LiveQuestionCount int64             `json:"live_question_count"`
	ResponseCount     int64             `json:"response_count"`
}

type FormService struct {
	db           *gorm.DB
	maxTxRetries int
}

func NewFormService(db *gorm.DB, maxTxRetries int) IFormService {
	if maxTxRetries < 0 {
		maxTxRetries = 0
	}
	return &FormService{db: db, maxTxRetries: maxTxRetries}
}

// ValidateSubmittedForm normalises tree in place and checks it against its validate tags.
func ValidateSubmittedForm(tree *SubmittedForm) error {
	tree.normalize()
	if err := validation.Struct(tree); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

func hashFormPassword(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		configslog.Log.Error("Form password hashing failed", zap.Error(err))
		return "", ErrPasswordHashing
	}
	return string(hashed), nil
}

// CreateForm stores a new form. Every node of tree is treated as new and durable ids are
// rejected, since nothing can belong to a form that does not exist yet.
func (s *FormService) CreateForm(ctx context.Context, ownerID uint, tree SubmittedForm) (*models.Form, error) {
	if ownerID == 0 {
		return nil, fmt.Errorf("%w: missing owner", ErrInvalidInput)
	}
	if err := ValidateSubmittedForm(&tree); err != nil {
		return nil, err
	}
	plan, err := PlanReconciliation(nil, tree.Questions)
	if err != nil {
		return nil, err
	}

	form := &models.Form{
		OwnerID:     ownerID,
		Title:       tree.Title,
		Description: tree.Description,
		IsActive:    true,
	}
	if tree.IsActive != nil {
		form.IsActive = *tree.IsActive
	}
	if tree.Password != nil {
		if form.PasswordHash, err = hashFormPassword(*tree.Password); err != nil {
			return nil, err
		}
	}

	var created *models.Form
	err = runInTx(ctx, s.db, s.maxTxRetries, "create_form", func(tx *gorm.DB) error {
		forms := repositories.NewFormRepository(tx)
		row := *form
		if err := forms.Create(ctx, &row); err != nil {
			return err
		}
		// plan is reused across retries; the copies keep ids from a failed attempt out of it.
		if err := applyPlan(ctx, repositories.NewQuestionRepository(tx), row.ID, clonePlan(plan)); err != nil {
			return err
		}
		var err error
		created, err = forms.FindTreeByID(ctx, row.ID)
		return err
	})
	if err != nil {
		configslog.Log.Error("Form creation failed", zap.Uint("owner_id", ownerID), zap.Error(err))
		return nil, err
	}
	configslog.Log.Info("Form created", zap.Uint("form_id", created.ID), zap.Uint("owner_id", ownerID), zap.Int("questions", len(created.Questions)))
	return created, nil
}

// ReconcileForm merges tree into the persisted definition of the form in one transaction that
// holds the form row locked. It returns the whole persisted tree, removed nodes included.
func (s *FormService) ReconcileForm(ctx context.Context, formID, ownerID uint, tree SubmittedForm) (*models.Form, error) {
	start := time.Now()
	result, err := s.reconcile(ctx, formID, ownerID, tree)
	metrics.ReconcileDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.Reconciliations.WithLabelValues(metrics.ResultOK).Inc()
		configslog.Log.Info("Form reconciled", zap.Uint("form_id", formID), zap.Uint("owner_id", ownerID))
	case errors.Is(err, ErrIntegrityViolation), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrFormNotFound):
		metrics.Reconciliations.WithLabelValues(metrics.ResultRejected).Inc()
		configslog.Log.Info("Form reconciliation rejected", zap.Uint("form_id", formID), zap.Error(err))
	default:
		metrics.Reconciliations.WithLabelValues(metrics.ResultError).Inc()
		configslog.Log.Error("Form reconciliation failed", zap.Uint("form_id", formID), zap.Error(err))
	}
	return result, err
}

func (s *FormService) reconcile(ctx context.Context, formID, ownerID uint, tree SubmittedForm) (*models.Form, error) {
	if err := ValidateSubmittedForm(&tree); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"title":       tree.Title,
		"description": tree.Description,
	}
	if tree.IsActive != nil {
		fields["is_active"] = *tree.IsActive
	}
	if tree.Password != nil {
		hash, err := hashFormPassword(*tree.Password)
		if err != nil {
			return nil, err
		}
		fields["password_hash"] = hash
	}

	var result *models.Form
	err := runInTx(ctx, s.db, s.maxTxRetries, "reconcile_form", func(tx *gorm.DB) error {
		forms := repositories.NewFormRepository(tx)
		questions := repositories.NewQuestionRepository(tx)

		if _, err := forms.LockByIDForOwner(ctx, formID, ownerID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrFormNotFound
			}
			return err
		}
		if err := forms.UpdateScalars(ctx, formID, fields); err != nil {
			return err
		}

		persisted, err := questions.FindAllByFormID(ctx, formID)
		if err != nil {
			return err
		}
		plan, err := PlanReconciliation(persisted, tree.Questions)
		if err != nil {
			return err
		}
		if err := applyPlan(ctx, questions, formID, plan); err != nil {
			return err
		}

		reloaded, err := forms.FindTreeByID(ctx, formID)
		if err != nil {
			return err
		}
		if err := verifyTreeOrdering(reloaded); err != nil {
			return fmt.Errorf("reconciled tree failed ordering check: %w", err)
		}
		result = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetFormForOwner returns the full historical tree: live nodes first in order, removed ones
// with their sentinel key.
func (s *FormService) GetFormForOwner(ctx context.Context, formID, ownerID uint) (*models.Form, error) {
	forms := repositories.NewFormRepository(s.db)
	if _, err := forms.FindByIDForOwner(ctx, formID, ownerID); err != nil {
		return nil, mapFormLookupError(err)
	}
	form, err := forms.FindTreeByID(ctx, formID)
	if err != nil {
		return nil, mapFormLookupError(err)
	}
	return form, nil
}

// GetLiveForm returns the live tree of an active form for respondents.
func (s *FormService) GetLiveForm(ctx context.Context, formID uint) (*models.Form, error) {
	form, err := repositories.NewFormRepository(s.db).FindTreeByID(ctx, formID)
	if err != nil {
		return nil, mapFormLookupError(err)
	}
	if !form.IsActive {
		return nil, ErrFormInactive
	}
	return LiveTree(form), nil
}

func (s *FormService) GetLiveFormByShareKey(ctx context.Context, key string) (*models.Form, error) {
	form, err := repositories.NewFormRepository(s.db).FindByShareKey(ctx, key)
	if err != nil {
		return nil, mapFormLookupError(err)
	}
	return s.GetLiveForm(ctx, form.ID)
}

// ListFormsForOwner pages through the owner's forms, most recently updated first by default.
func (s *FormService) ListFormsForOwner(ctx context.Context, ownerID uint, params queryparams.ListParams) (*queryparams.PaginatedResult, error) {
	params.Validate()
	forms, total, err := repositories.NewFormRepository(s.db).FindAllByOwnerIDPaginated(ctx, ownerID, params)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(forms))
	for i, f := range forms {
		ids[i] = f.ID
	}
	questionCounts, err := repositories.NewQuestionRepository(s.db).CountLiveByFormIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	responseCounts, err := repositories.NewResponseRepository(s.db).CountByFormIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]FormListItem, len(forms))
	for i, f := range forms {
		items[i] = FormListItem{Form: f, LiveQuestionCount: questionCounts[f.ID], ResponseCount: responseCounts[f.ID]}
	}
	return queryparams.NewPaginatedResult(items, total, params), nil
}

// DeleteForm removes the form and everything under it, responses included.
func (s *FormService) DeleteForm(ctx context.Context, formID, ownerID uint) error {
	err := runInTx(ctx, s.db, s.maxTxRetries, "delete_form", func(tx *gorm.DB) error {
		forms := repositories.NewFormRepository(tx)
		if _, err := forms.LockByIDForOwner(ctx, formID, ownerID); err != nil {
			return mapFormLookupError(err)
		}
		return forms.Delete(ctx, formID)
	})
	if err != nil {
		if !errors.Is(err, ErrFormNotFound) {
			configslog.Log.Error("Form deletion failed", zap.Uint("form_id", formID), zap.Error(err))
		}
		return err
	}
	configslog.Log.Info("Form deleted", zap.Uint("form_id", formID), zap.Uint("owner_id", ownerID))
	return nil
}

func mapFormLookupError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrFormNotFound
	}
	return err
}

// clonePlan copies the created questions and options of plan so a retried transaction starts
// from rows without ids.
func clonePlan(plan *ReconcilePlan) *ReconcilePlan {
	out := &ReconcilePlan{
		Changes:           make([]QuestionChange, len(plan.Changes)),
		RemoveQuestionIDs: plan.RemoveQuestionIDs,
	}
	for i, c := range plan.Changes {
		c.Question.Options = append([]models.QuestionOption(nil), c.Question.Options...)
		c.CreateOptions = append([]models.QuestionOption(nil), c.CreateOptions...)
		out.Changes[i] = c
	}
	return out
}

var _ IFormService = (*FormService)(nil)
