package repositories

import (
	"context"
	"errors"

	"formdesk.link/configs/configslog"
	"formdesk.link/models"
	"formdesk.link/pkg/queryparams"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IResponseRepository interface {
	Create(ctx context.Context, response *models.FormResponse) error
	FindAllByFormIDPaginated(ctx context.Context, formID uint, params queryparams.ListParams) ([]models.FormResponse, int64, error)
	FindByID(ctx context.Context, formID, responseID uint) (*models.FormResponse, error)
	FindAnswers(ctx context.Context, responseID uint) ([]models.ResponseAnswer, error)
	FindAllAnswersByFormID(ctx context.Context, formID uint) ([]models.ResponseAnswer, error)
	CountByFormIDs(ctx context.Context, formIDs []uint) (map[uint]int64, error)
}

type ResponseRepository struct {
	db *gorm.DB
}

func NewResponseRepository(db *gorm.DB) IResponseRepository {
	return &ResponseRepository{db: db}
}

func (r *ResponseRepository) getDB(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// Create inserts the response and its answers.
func (r *ResponseRepository) Create(ctx context.Context, response *models.FormResponse) error {
	if response == nil || response.FormID == 0 {
		return errors.New("response without form cannot be created")
	}
	db := r.getDB(ctx)
	if err := db.Omit(clause.Associations).Create(response).Error; err != nil {
		configslog.Log.Error("ResponseRepository.Create: DB error", zap.Uint("form_id", response.FormID), zap.Error(err))
		return err
	}
	if len(response.Answers) == 0 {
		return nil
	}
	for i := range response.Answers {
		response.Answers[i].ResponseID = response.ID
	}
	if err := db.Omit(clause.Associations).Create(&response.Answers).Error; err != nil {
		configslog.Log.Error("ResponseRepository.Create answers: DB error", zap.Uint("response_id", response.ID), zap.Error(err))
		return err
	}
	return nil
}

func preloadAnswers(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Answers.Question").
		Preload("Answers.Option")
}

// FindAllByFormIDPaginated lists responses newest first with their answers. Answers keep
// pointing at removed questions and options, which are loaded like live ones.
func (r *ResponseRepository) FindAllByFormIDPaginated(ctx context.Context, formID uint, params queryparams.ListParams) ([]models.FormResponse, int64, error) {
	var responses []models.FormResponse
	var total int64

	query := r.getDB(ctx).Model(&models.FormResponse{}).Where("form_id = ?", formID)
	if err := query.Count(&total).Error; err != nil {
		configslog.Log.Error("ResponseRepository.Count: DB error", zap.Uint("form_id", formID), zap.Error(err))
		return nil, 0, err
	}
	if total == 0 {
		return responses, 0, nil
	}

	err := preloadAnswers(query).
		Order("submitted_at DESC, id DESC").
		Limit(params.PerPage).Offset(params.CalculateOffset()).
		Find(&responses).Error
	if err != nil {
		configslog.Log.Error("ResponseRepository.Find: DB error", zap.Uint("form_id", formID), zap.Error(err))
		return nil, total, err
	}
	return responses, total, nil
}

func (r *ResponseRepository) FindByID(ctx context.Context, formID, responseID uint) (*models.FormResponse, error) {
	var response models.FormResponse
	err := preloadAnswers(r.getDB(ctx)).
		Where("id = ? AND form_id = ?", responseID, formID).
		First(&response).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		configslog.Log.Error("ResponseRepository.FindByID: DB error", zap.Uint("id", responseID), zap.Error(err))
		return nil, err
	}
	return &response, nil
}

// FindAnswers returns the answers of one response: answers to live questions first in question
// order, then answers to removed questions.
func (r *ResponseRepository) FindAnswers(ctx context.Context, responseID uint) ([]models.ResponseAnswer, error) {
	var answers []models.ResponseAnswer
	err := r.getDB(ctx).
		Select("response_answers.*").
		Joins("JOIN questions ON questions.id = response_answers.question_id").
		Where("response_answers.response_id = ?", responseID).
		Order("CASE WHEN questions.order_key > 0 THEN 0 ELSE 1 END, questions.order_key ASC, response_answers.id ASC").
		Preload("Question").
		Preload("Option").
		Find(&answers).Error
	if err != nil {
		configslog.Log.Error("ResponseRepository.FindAnswers: DB error", zap.Uint("response_id", responseID), zap.Error(err))
		return nil, err
	}
	return answers, nil
}

// FindAllAnswersByFormID returns every answer ever given to the form, without preloads.
func (r *ResponseRepository) FindAllAnswersByFormID(ctx context.Context, formID uint) ([]models.ResponseAnswer, error) {
	var answers []models.ResponseAnswer
	err := r.getDB(ctx).
		Select("response_answers.*").
		Joins("JOIN form_responses ON form_responses.id = response_answers.response_id").
		Where("form_responses.form_id = ?", formID).
		Order("response_answers.id ASC").
		Find(&answers).Error
	if err != nil {
		configslog.Log.Error("ResponseRepository.FindAllAnswersByFormID: DB error", zap.Uint("form_id", formID), zap.Error(err))
		return nil, err
	}
	return answers, nil
}

func (r *ResponseRepository) CountByFormIDs(ctx context.Context, formIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(formIDs))
	if len(formIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		FormID uint
		Total  int64
	}
	err := r.getDB(ctx).Model(&models.FormResponse{}).
		Select("form_id, COUNT(*) AS total").
		Where("form_id IN ?", formIDs).
		Group("form_id").
		Scan(&rows).Error
	if err != nil {
		configslog.Log.Error("ResponseRepository.CountByFormIDs: DB error", zap.Error(err))
		return nil, err
	}
	for _, row := range rows {
		counts[row.FormID] = row.Total
	}
	return counts, nil
}

var _ IResponseRepository = (*ResponseRepository)(nil)
