package repository

import (
	"eduquiz_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(question *model.Question) error {
	return r.DB.Create(question).Error
}

// CreateBatch 批量建题，整体成功或整体失败。
func (r *QuestionRepository) CreateBatch(questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		for i := range questions {
			if err := tx.Create(&questions[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *QuestionRepository) FindByID(id string) (*model.Question, error) {
	var question model.Question
	if err := r.DB.Where("id = ?", id).First(&question).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

// ListByQuiz 返回按 order 排列的未删除题目；
// 评分与出卷都只走这一条查询路径。
func (r *QuestionRepository) ListByQuiz(quizID string) ([]model.Question, error) {
	var questions []model.Question
	if err := r.DB.Where("quiz_id = ?", quizID).
		Order("`order` ASC, created_at ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *QuestionRepository) CountByQuiz(quizID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Question{}).Where("quiz_id = ?", quizID).Count(&count).Error
	return count, err
}

func (r *QuestionRepository) SumPointsByQuiz(quizID string) (int, error) {
	var total struct{ Total int }
	err := r.DB.Model(&model.Question{}).
		Select("COALESCE(SUM(points), 0) AS total").
		Where("quiz_id = ?", quizID).
		Scan(&total).Error
	return total.Total, err
}

func (r *QuestionRepository) Update(question *model.Question) error {
	return r.DB.Save(question).Error
}

func (r *QuestionRepository) Delete(id string) error {
	return r.DB.Where("id = ?", id).Delete(&model.Question{}).Error
}
