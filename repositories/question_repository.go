package repositories

import (
	"context"
	"errors"

	"formdesk.link/configs/configslog"
	"formdesk.link/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IQuestionRepository writes questions and options. Rows are never deleted here:
// removal is an order key update.
type IQuestionRepository interface {
	FindAllByFormID(ctx context.Context, formID uint) ([]models.Question, error)
	Create(ctx context.Context, question *models.Question) error
	Update(ctx context.Context, question *models.Question) error
	CreateOption(ctx context.Context, option *models.QuestionOption) error
	UpdateOption(ctx context.Context, option *models.QuestionOption) error
	MarkQuestionsRemoved(ctx context.Context, formID uint, ids []uint) error
	MarkOptionsRemoved(ctx context.Context, ids []uint) error
	CountLiveByFormIDs(ctx context.Context, formIDs []uint) (map[uint]int64, error)
}

type QuestionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) IQuestionRepository {
	return &QuestionRepository{db: db}
}

func (r *QuestionRepository) getDB(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// FindAllByFormID returns every question of the form with its options, removed ones included.
func (r *QuestionRepository) FindAllByFormID(ctx context.Context, formID uint) ([]models.Question, error) {
	var questions []models.Question
	err := r.getDB(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("order_key ASC, id ASC") }).
		Where("form_id = ?", formID).
		Order("order_key ASC, id ASC").
		Find(&questions).Error
	if err != nil {
		configslog.Log.Error("QuestionRepository.FindAllByFormID: DB error", zap.Uint("form_id", formID), zap.Error(err))
		return nil, err
	}
	return questions, nil
}

// Create inserts the question and then its options, filling in their QuestionID.
func (r *QuestionRepository) Create(ctx context.Context, question *models.Question) error {
	if question == nil || question.FormID == 0 {
		return errors.New("question without form cannot be created")
	}
	db := r.getDB(ctx)
	if err := db.Omit(clause.Associations).Create(question).Error; err != nil {
		configslog.Log.Error("QuestionRepository.Create: DB error", zap.Uint("form_id", question.FormID), zap.Error(err))
		return err
	}
	for i := range question.Options {
		question.Options[i].QuestionID = question.ID
		if err := r.CreateOption(ctx, &question.Options[i]); err != nil {
			return err
		}
	}
	return nil
}

// Update writes the editable columns of a question that must belong to question.FormID.
func (r *QuestionRepository) Update(ctx context.Context, question *models.Question) error {
	result := r.getDB(ctx).Model(&models.Question{}).
		Where("id = ? AND form_id = ?", question.ID, question.FormID).
		Updates(map[string]interface{}{
			"kind":        question.Kind,
			"text":        question.Text,
			"is_required": question.IsRequired,
			"order_key":   question.OrderKey,
		})
	if result.Error != nil {
		configslog.Log.Error("QuestionRepository.Update: DB error", zap.Uint("id", question.ID), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *QuestionRepository) CreateOption(ctx context.Context, option *models.QuestionOption) error {
	if option == nil || option.QuestionID == 0 {
		return errors.New("option without question cannot be created")
	}
	if err := r.getDB(ctx).Create(option).Error; err != nil {
		configslog.Log.Error("QuestionRepository.CreateOption: DB error", zap.Uint("question_id", option.QuestionID), zap.Error(err))
		return err
	}
	return nil
}

// UpdateOption writes text and order key of an option that must belong to option.QuestionID.
func (r *QuestionRepository) UpdateOption(ctx context.Context, option *models.QuestionOption) error {
	result := r.getDB(ctx).Model(&models.QuestionOption{}).
		Where("id = ? AND question_id = ?", option.ID, option.QuestionID).
		Updates(map[string]interface{}{
			"text":      option.Text,
			"order_key": option.OrderKey,
		})
	if result.Error != nil {
		configslog.Log.Error("QuestionRepository.UpdateOption: DB error", zap.Uint("id", option.ID), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *QuestionRepository) MarkQuestionsRemoved(ctx context.Context, formID uint, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.getDB(ctx).Model(&models.Question{}).
		Where("form_id = ? AND id IN ?", formID, ids).
		Update("order_key", models.RemovedOrderKey).Error
	if err != nil {
		configslog.Log.Error("QuestionRepository.MarkQuestionsRemoved: DB error", zap.Uint("form_id", formID), zap.Uints("ids", ids), zap.Error(err))
	}
	return err
}

func (r *QuestionRepository) MarkOptionsRemoved(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.getDB(ctx).Model(&models.QuestionOption{}).
		Where("id IN ?", ids).
		Update("order_key", models.RemovedOrderKey).Error
	if err != nil {
		configslog.Log.Error("QuestionRepository.MarkOptionsRemoved: DB error", zap.Uints("ids", ids), zap.Error(err))
	}
	return err
}

// CountLiveByFormIDs returns the number of live questions per form. Forms without any are absent.
func (r *QuestionRepository) CountLiveByFormIDs(ctx context.Context, formIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(formIDs))
	if len(formIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		FormID uint
		Total  int64
	}
	err := r.getDB(ctx).Model(&models.Question{}).
		Select("form_id, COUNT(*) AS total").
		Where("form_id IN ? AND order_key > 0", formIDs).
		Group("form_id").
		Scan(&rows).Error
	if err != nil {
		configslog.Log.Error("QuestionRepository.CountLiveByFormIDs: DB error", zap.Error(err))
		return nil, err
	}
	for _, row := range rows {
		counts[row.FormID] = row.Total
	}
	return counts, nil
}

var _ IQuestionRepository = (*QuestionRepository)(nil)
