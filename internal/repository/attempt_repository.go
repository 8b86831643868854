package repository

import (
	"time"

	"eduquiz_backend/internal/model"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// Create 插入新尝试。活跃键与 attempt_number 的唯一索引在并发开卷时
// 只允许一个胜出；冲突以 gorm.ErrDuplicatedKey 返回，由服务层兜底。
func (r *AttemptRepository) Create(attempt *model.QuizAttempt) error {
	return r.DB.Create(attempt).Error
}

func (r *AttemptRepository) FindByID(id string) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	if err := r.DB.Where("id = ?", id).First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepository) FindByIDAndStudent(id string, studentID uint) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	if err := r.DB.Where("id = ? AND student_id = ?", id, studentID).
		First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepository) FindInProgress(quizID string, studentID uint) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	if err := r.DB.Where("quiz_id = ? AND student_id = ? AND status = ?",
		quizID, studentID, model.AttemptInProgress).
		First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepository) CountByQuizAndStudent(quizID string, studentID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.QuizAttempt{}).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Count(&count).Error
	return count, err
}

func (r *AttemptRepository) ListByQuizAndStudent(quizID string, studentID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Order("attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) ListByQuiz(quizID string) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("quiz_id = ?", quizID).
		Order("student_id ASC, attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

// ListPendingManual 列出含待人工评分答案、已提交未终评的尝试。
func (r *AttemptRepository) ListPendingManual(quizID string) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("quiz_id = ? AND status = ?", quizID, model.AttemptSubmitted).
		Order("submitted_at ASC").
		Find(&attempts).Error
	return attempts, err
}

// ClaimSubmit 以守卫更新声明提交权：仅当尝试仍 in_progress 时
// 置为 submitted 并释放活跃键。返回 false 表示别处已提交过。
func (r *AttemptRepository) ClaimSubmit(id string, at time.Time, isAuto bool) (bool, error) {
	result := r.DB.Model(&model.QuizAttempt{}).
		Where("id = ? AND status = ?", id, model.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":            model.AttemptSubmitted,
			"submitted_at":      at,
			"is_auto_submitted": isAuto,
			"active_key":        nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *AttemptRepository) Save(attempt *model.QuizAttempt) error {
	return r.DB.Save(attempt).Error
}

// ReplaceAnswers 整体替换一次尝试的作答快照。
func (r *AttemptRepository) ReplaceAnswers(attemptID string, answers []model.AttemptAnswer) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return replaceAnswers(tx, attemptID, answers)
	})
}

// ReplaceAnswersInProgress 在同一事务内先锁定仍在答题中的尝试行，
// 再整体替换作答快照。守卫更新与 ClaimSubmit 在行锁上串行化，
// 保证保存进度不会覆盖并发提交已判分的答案。
// 返回 false 表示尝试已不在答题中，未做任何替换。
func (r *AttemptRepository) ReplaceAnswersInProgress(attemptID string, answers []model.AttemptAnswer) (bool, error) {
	replaced := false
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		guard := tx.Model(&model.QuizAttempt{}).
			Where("id = ? AND status = ?", attemptID, model.AttemptInProgress).
			Update("updated_at", time.Now())
		if guard.Error != nil {
			return guard.Error
		}
		if guard.RowsAffected == 0 {
			return nil
		}
		if err := replaceAnswers(tx, attemptID, answers); err != nil {
			return err
		}
		replaced = true
		return nil
	})
	return replaced, err
}

func replaceAnswers(tx *gorm.DB, attemptID string, answers []model.AttemptAnswer) error {
	if err := tx.Unscoped().Where("attempt_id = ?", attemptID).
		Delete(&model.AttemptAnswer{}).Error; err != nil {
		return err
	}
	for i := range answers {
		answers[i].AttemptID = attemptID
		if err := tx.Create(&answers[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *AttemptRepository) GetAnswers(attemptID string) ([]model.AttemptAnswer, error) {
	var answers []model.AttemptAnswer
	err := r.DB.Where("attempt_id = ?", attemptID).
		Order("created_at ASC").
		Find(&answers).Error
	return answers, err
}

func (r *AttemptRepository) FindAnswer(attemptID, questionID string) (*model.AttemptAnswer, error) {
	var answer model.AttemptAnswer
	if err := r.DB.Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&answer).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *AttemptRepository) SaveAnswer(answer *model.AttemptAnswer) error {
	return r.DB.Save(answer).Error
}

// SaveGraded 在一个事务里落盘评分后的答案与尝试汇总。
func (r *AttemptRepository) SaveGraded(attempt *model.QuizAttempt, answers []model.AttemptAnswer) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		for i := range answers {
			if err := tx.Save(&answers[i]).Error; err != nil {
				return err
			}
		}
		return tx.Save(attempt).Error
	})
}
