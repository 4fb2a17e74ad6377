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

// IResponseService accepts submissions and serves them back to the form owner.
type IResponseService interface {
	SubmitResponse(ctx context.Context, formID, respondentID uint, submission SubmittedResponse) (*models.FormResponse, error)
	ListResponses(ctx context.Context, formID, ownerID uint, params queryparams.ListParams) (*queryparams.PaginatedResult, error)
	GetResponse(ctx context.Context, formID, responseID, ownerID uint) (*models.FormResponse, error)
	GetResponseAnswers(ctx context.Context, formID, responseID, ownerID uint) ([]models.ResponseAnswer, error)
	SummarizeResponses(ctx context.Context, formID, ownerID uint) (*FormSummary, error)
}

type ResponseService struct {
	db           *gorm.DB
	maxTxRetries int
	now          func() time.Time
}

func NewResponseService(db *gorm.DB, maxTxRetries int) IResponseService {
	if maxTxRetries < 0 {
		maxTxRetries = 0
	}
	return &ResponseService{db: db, maxTxRetries: maxTxRetries, now: func() time.Time { return time.Now().UTC() }}
}

// SubmitResponse validates the answers against the live tree read in the same transaction that
// stores them, so a concurrent edit is seen either entirely or not at all.
func (s *ResponseService) SubmitResponse(ctx context.Context, formID, respondentID uint, submission SubmittedResponse) (*models.FormResponse, error) {
	response, err := s.submit(ctx, formID, respondentID, submission)
	switch {
	case err == nil:
		metrics.Submissions.WithLabelValues(metrics.ResultOK).Inc()
		configslog.Log.Info("Response stored", zap.Uint("form_id", formID), zap.Uint("response_id", response.ID))
	case errors.Is(err, ErrSubmissionInvalid), errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrFormNotFound), errors.Is(err, ErrFormInactive), errors.Is(err, ErrFormPasswordMismatch):
		metrics.Submissions.WithLabelValues(metrics.ResultRejected).Inc()
		configslog.Log.Info("Response rejected", zap.Uint("form_id", formID), zap.Error(err))
	default:
		metrics.Submissions.WithLabelValues(metrics.ResultError).Inc()
		configslog.Log.Error("Response submission failed", zap.Uint("form_id", formID), zap.Error(err))
	}
	return response, err
}

func (s *ResponseService) submit(ctx context.Context, formID, respondentID uint, submission SubmittedResponse) (*models.FormResponse, error) {
	if respondentID == 0 {
		return nil, fmt.Errorf("%w: missing respondent", ErrInvalidInput)
	}
	if err := validation.Struct(&submission); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	var stored *models.FormResponse
	err := runInTx(ctx, s.db, s.maxTxRetries, "submit_response", func(tx *gorm.DB) error {
		form, err := repositories.NewFormRepository(tx).FindTreeByID(ctx, formID)
		if err != nil {
			return mapFormLookupError(err)
		}
		if !form.IsActive {
			return ErrFormInactive
		}
		if form.HasPassword() {
			if bcrypt.CompareHashAndPassword([]byte(form.PasswordHash), []byte(submission.Password)) != nil {
				return ErrFormPasswordMismatch
			}
		}

		live := LiveTree(form)
		if err := ValidateSubmission(live, submission.Answers); err != nil {
			return err
		}

		byID := make(map[uint]*models.Question, len(live.Questions))
		for i := range live.Questions {
			byID[live.Questions[i].ID] = &live.Questions[i]
		}
		response := &models.FormResponse{
			FormID:       formID,
			RespondentID: respondentID,
			SubmittedAt:  s.now(),
			Answers:      make([]models.ResponseAnswer, 0, len(submission.Answers)),
		}
		for _, a := range submission.Answers {
			response.Answers = append(response.Answers, normalizeAnswer(byID[a.QuestionID], a))
		}
		if err := repositories.NewResponseRepository(tx).Create(ctx, response); err != nil {
			return err
		}
		stored = response
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *ResponseService) requireOwner(ctx context.Context, formID, ownerID uint) (*models.Form, error) {
	form, err := repositories.NewFormRepository(s.db).FindByIDForOwner(ctx, formID, ownerID)
	if err != nil {
		return nil, mapFormLookupError(err)
	}
	return form, nil
}

// ListResponses pages through the form's responses, newest first.
func (s *ResponseService) ListResponses(ctx context.Context, formID, ownerID uint, params queryparams.ListParams) (*queryparams.PaginatedResult, error) {
	if _, err := s.requireOwner(ctx, formID, ownerID); err != nil {
		return nil, err
	}
	params.Validate()
	responses, total, err := repositories.NewResponseRepository(s.db).FindAllByFormIDPaginated(ctx, formID, params)
	if err != nil {
		return nil, err
	}
	return queryparams.NewPaginatedResult(responses, total, params), nil
}

func (s *ResponseService) GetResponse(ctx context.Context, formID, responseID, ownerID uint) (*models.FormResponse, error) {
	if _, err := s.requireOwner(ctx, formID, ownerID); err != nil {
		return nil, err
	}
	response, err := repositories.NewResponseRepository(s.db).FindByID(ctx, formID, responseID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrResponseNotFound
		}
		return nil, err
	}
	return response, nil
}

// GetResponseAnswers returns the answers of one response ordered by the current position of
// their question; answers to removed questions come last.
func (s *ResponseService) GetResponseAnswers(ctx context.Context, formID, responseID, ownerID uint) ([]models.ResponseAnswer, error) {
	if _, err := s.GetResponse(ctx, formID, responseID, ownerID); err != nil {
		return nil, err
	}
	return repositories.NewResponseRepository(s.db).FindAnswers(ctx, responseID)
}

func (s *ResponseService) SummarizeResponses(ctx context.Context, formID, ownerID uint) (*FormSummary, error) {
	if _, err := s.requireOwner(ctx, formID, ownerID); err != nil {
		return nil, err
	}
	form, err := repositories.NewFormRepository(s.db).FindTreeByID(ctx, formID)
	if err != nil {
		return nil, mapFormLookupError(err)
	}
	responses := repositories.NewResponseRepository(s.db)
	answers, err := responses.FindAllAnswersByFormID(ctx, formID)
	if err != nil {
		return nil, err
	}
	counts, err := responses.CountByFormIDs(ctx, []uint{formID})
	if err != nil {
		return nil, err
	}
	return BuildSummary(form, answers, counts[formID]), nil
}

var _ IResponseService = (*ResponseService)(nil)
