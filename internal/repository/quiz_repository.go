package repository

import (
	"context"
	"encoding/json"
	"time"

	"eduquiz_backend/internal/model"
	"eduquiz_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	quizCachePrefix = "eduquiz:quiz:"
	quizCacheTTL    = 60 * time.Second
)

type QuizRepository struct {
	DB  *gorm.DB
	RDB *redis.Client
}

func NewQuizRepository(db *gorm.DB, rdb *redis.Client) *QuizRepository {
	return &QuizRepository{DB: db, RDB: rdb}
}

func (r *QuizRepository) Create(quiz *model.Quiz) error {
	return r.DB.Create(quiz).Error
}

// FindByID 优先读缓存；未命中回源数据库并回填。
// 所有写路径都会让缓存失效，TTL 仅作兜底。
func (r *QuizRepository) FindByID(id string) (*model.Quiz, error) {
	if r.RDB != nil {
		raw, err := r.RDB.Get(context.Background(), quizCachePrefix+id).Bytes()
		if err == nil {
			var quiz model.Quiz
			if json.Unmarshal(raw, &quiz) == nil {
				return &quiz, nil
			}
		} else if err != redis.Nil {
			logger.Log.Warn("quiz cache read failed", zap.String("quizId", id), zap.Error(err))
		}
	}

	var quiz model.Quiz
	if err := r.DB.Where("id = ?", id).First(&quiz).Error; err != nil {
		return nil, err
	}
	r.fillCache(&quiz)
	return &quiz, nil
}

func (r *QuizRepository) fillCache(quiz *model.Quiz) {
	if r.RDB == nil {
		return
	}
	raw, err := json.Marshal(quiz)
	if err != nil {
		return
	}
	if err := r.RDB.Set(context.Background(), quizCachePrefix+quiz.ID, raw, quizCacheTTL).Err(); err != nil {
		logger.Log.Warn("quiz cache write failed", zap.String("quizId", quiz.ID), zap.Error(err))
	}
}

func (r *QuizRepository) invalidate(id string) {
	if r.RDB == nil {
		return
	}
	if err := r.RDB.Del(context.Background(), quizCachePrefix+id).Err(); err != nil {
		logger.Log.Warn("quiz cache invalidate failed", zap.String("quizId", id), zap.Error(err))
	}
}

func (r *QuizRepository) Update(quiz *model.Quiz) error {
	if err := r.DB.Save(quiz).Error; err != nil {
		return err
	}
	r.invalidate(quiz.ID)
	return nil
}

// Delete 软删测验及其题目，历史尝试保留。
func (r *QuizRepository) Delete(id string) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quiz_id = ?", id).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Quiz{}).Error
	})
	if err != nil {
		return err
	}
	r.invalidate(id)
	return nil
}

type QuizListRow struct {
	model.Quiz
	QuestionCount int64 `json:"questionCount"`
	AttemptCount  int64 `json:"attemptCount"`
}

func (r *QuizRepository) ListByCreator(creatorID uint, page, limit int) ([]QuizListRow, int64, error) {
	var total int64
	query := r.DB.Model(&model.Quiz{}).Where("creator_id = ?", creatorID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var quizzes []model.Quiz
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&quizzes).Error; err != nil {
		return nil, 0, err
	}

	rows := make([]QuizListRow, 0, len(quizzes))
	for i := range quizzes {
		row := QuizListRow{Quiz: quizzes[i]}
		r.DB.Model(&model.Question{}).Where("quiz_id = ?", quizzes[i].ID).Count(&row.QuestionCount)
		r.DB.Model(&model.QuizAttempt{}).Where("quiz_id = ?", quizzes[i].ID).Count(&row.AttemptCount)
		rows = append(rows, row)
	}
	return rows, total, nil
}

func (r *QuizRepository) ListPublished(page, limit int) ([]model.Quiz, int64, error) {
	var total int64
	query := r.DB.Model(&model.Quiz{}).Where("status = ?", model.QuizPublished)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var quizzes []model.Quiz
	if err := query.Order("published_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&quizzes).Error; err != nil {
		return nil, 0, err
	}
	return quizzes, total, nil
}
