package repositories

import (
	"context"
	"errors"
	"strings"

	"formdesk.link/configs/configslog"
	"formdesk.link/models"
	"formdesk.link/pkg/queryparams"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IFormRepository persists forms and loads their question trees.
type IFormRepository interface {
	Create(ctx context.Context, form *models.Form) error
	FindByID(ctx context.Context, id uint) (*models.Form, error)
	FindTreeByID(ctx context.Context, id uint) (*models.Form, error)
	FindByIDForOwner(ctx context.Context, id, ownerID uint) (*models.Form, error)
	LockByIDForOwner(ctx context.Context, id, ownerID uint) (*models.Form, error)
	FindByShareKey(ctx context.Context, key string) (*models.Form, error)
	FindAllByOwnerIDPaginated(ctx context.Context, ownerID uint, params queryparams.ListParams) ([]models.Form, int64, error)
	UpdateScalars(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
}

// FormRepository implements IFormRepository on top of a gorm handle, which may be a transaction.
type FormRepository struct {
	db *gorm.DB
}

func NewFormRepository(db *gorm.DB) IFormRepository {
	return &FormRepository{db: db}
}

func (r *FormRepository) getDB(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// Create inserts the form row only; questions are written through IQuestionRepository.
func (r *FormRepository) Create(ctx context.Context, form *models.Form) error {
	if form == nil || form.OwnerID == 0 {
		return errors.New("form without owner cannot be created")
	}
	return r.getDB(ctx).Omit(clause.Associations).Create(form).Error
}

func (r *FormRepository) FindByID(ctx context.Context, id uint) (*models.Form, error) {
	var form models.Form
	if err := r.getDB(ctx).First(&form, id).Error; err != nil {
		return nil, r.notFoundOr("FindByID", id, err)
	}
	return &form, nil
}

// FindTreeByID loads the form with every question and option. Live nodes come first by order
// key; removed ones follow by id.
const liveFirstOrder = "CASE WHEN order_key > 0 THEN 0 ELSE 1 END, order_key ASC, id ASC"

func (r *FormRepository) FindTreeByID(ctx context.Context, id uint) (*models.Form, error) {
	var form models.Form
	err := r.getDB(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order(liveFirstOrder) }).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB { return db.Order(liveFirstOrder) }).
		First(&form, id).Error
	if err != nil {
		return nil, r.notFoundOr("FindTreeByID", id, err)
	}
	return &form, nil
}

func (r *FormRepository) FindByIDForOwner(ctx context.Context, id, ownerID uint) (*models.Form, error) {
	var form models.Form
	err := r.getDB(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&form).Error
	if err != nil {
		return nil, r.notFoundOr("FindByIDForOwner", id, err)
	}
	return &form, nil
}

// LockByIDForOwner is FindByIDForOwner with a row lock held until the surrounding transaction ends.
// SQLite has no row locks; its single writer already serialises the transaction.
func (r *FormRepository) LockByIDForOwner(ctx context.Context, id, ownerID uint) (*models.Form, error) {
	var form models.Form
	query := r.getDB(ctx)
	if query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := query.Where("id = ? AND owner_id = ?", id, ownerID).First(&form).Error
	if err != nil {
		return nil, r.notFoundOr("LockByIDForOwner", id, err)
	}
	return &form, nil
}

func (r *FormRepository) FindByShareKey(ctx context.Context, key string) (*models.Form, error) {
	if key == "" {
		return nil, ErrNotFound
	}
	var form models.Form
	err := r.getDB(ctx).Where("share_key = ?", key).First(&form).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		configslog.Log.Error("FormRepository.FindByShareKey: DB error", zap.String("share_key", key), zap.Error(err))
		return nil, err
	}
	return &form, nil
}

var formSortColumns = map[string]string{
	"id":         "forms.id",
	"created_at": "forms.created_at",
	"updated_at": "forms.updated_at",
	"title":      "forms.title",
}

// FindAllByOwnerIDPaginated lists an owner's forms without their trees.
func (r *FormRepository) FindAllByOwnerIDPaginated(ctx context.Context, ownerID uint, params queryparams.ListParams) ([]models.Form, int64, error) {
	var forms []models.Form
	var total int64

	query := r.getDB(ctx).Model(&models.Form{}).Where("forms.owner_id = ?", ownerID)
	if err := query.Count(&total).Error; err != nil {
		configslog.Log.Error("FormRepository.Count (by owner): DB error", zap.Uint("owner_id", ownerID), zap.Error(err))
		return nil, 0, err
	}
	if total == 0 {
		return forms, 0, nil
	}

	orderColumn, ok := formSortColumns[params.SortBy]
	if !ok {
		orderColumn = "forms.updated_at"
	}
	orderBy := strings.ToLower(params.OrderBy)
	if orderBy != "asc" && orderBy != "desc" {
		orderBy = queryparams.DefaultOrderBy
	}

	err := query.Order(orderColumn + " " + orderBy).Order("forms.id " + orderBy).
		Limit(params.PerPage).Offset(params.CalculateOffset()).
		Find(&forms).Error
	if err != nil {
		configslog.Log.Error("FormRepository.Find (by owner): DB error", zap.Uint("owner_id", ownerID), zap.Error(err))
		return nil, total, err
	}
	return forms, total, nil
}

// UpdateScalars writes the given columns, zero values included, and bumps updated_at.
func (r *FormRepository) UpdateScalars(ctx context.Context, id uint, fields map[string]interface{}) error {
	result := r.getDB(ctx).Model(&models.Form{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		configslog.Log.Error("FormRepository.UpdateScalars: DB error", zap.Uint("id", id), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete hard-deletes the form with its questions, options, responses and answers.
// It must run inside a transaction.
func (r *FormRepository) Delete(ctx context.Context, id uint) error {
	db := r.getDB(ctx)
	sub := db.Session(&gorm.Session{NewDB: true})

	responseIDs := sub.Model(&models.FormResponse{}).Select("id").Where("form_id = ?", id)
	if err := db.Where("response_id IN (?)", responseIDs).Delete(&models.ResponseAnswer{}).Error; err != nil {
		return err
	}
	if err := db.Where("form_id = ?", id).Delete(&models.FormResponse{}).Error; err != nil {
		return err
	}
	questionIDs := sub.Model(&models.Question{}).Select("id").Where("form_id = ?", id)
	if err := db.Where("question_id IN (?)", questionIDs).Delete(&models.QuestionOption{}).Error; err != nil {
		return err
	}
	if err := db.Where("form_id = ?", id).Delete(&models.Question{}).Error; err != nil {
		return err
	}
	result := db.Delete(&models.Form{}, id)
	if result.Error != nil {
		configslog.Log.Error("FormRepository.Delete: DB error", zap.Uint("id", id), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *FormRepository) notFoundOr(op string, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	configslog.Log.Error("FormRepository."+op+": DB error", zap.Uint("id", id), zap.Error(err))
	return err
}

var _ IFormRepository = (*FormRepository)(nil)
