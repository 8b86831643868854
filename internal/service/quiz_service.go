package service

import (
	"encoding/json"
	"errors"
	"time"

	"eduquiz_backend/internal/model"
	"eduquiz_backend/internal/repository"
	"eduquiz_backend/internal/util"
	"eduquiz_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type QuizService struct {
	Quizzes   *repository.QuizRepository
	Questions *repository.QuestionRepository
	Attempts  *repository.AttemptRepository
}

func NewQuizService(quizzes *repository.QuizRepository, questions *repository.QuestionRepository,
	attempts *repository.AttemptRepository) *QuizService {
	return &QuizService{Quizzes: quizzes, Questions: questions, Attempts: attempts}
}

// QuestionInput 建题载荷
type QuestionInput struct {
	Type          model.QuestionType     `json:"type" binding:"required"`
	Content       string                 `json:"content" binding:"required"`
	Options       []model.QuestionOption `json:"options"`
	CorrectAnswer string                 `json:"correctAnswer"`
	Points        int                    `json:"points"`
	Order         int                    `json:"order"`
	Explanation   string                 `json:"explanation"`
}

// QuizInput 建卷/改卷载荷
type QuizInput struct {
	Title                  string          `json:"title" binding:"required"`
	Description            string          `json:"description"`
	Duration               int             `json:"duration"`
	MaxAttempts            int             `json:"maxAttempts"`
	StartAt                *time.Time      `json:"startAt"`
	EndAt                  *time.Time      `json:"endAt"`
	AllowLateSubmissions   bool            `json:"allowLateSubmissions"`
	ShuffleQuestions       bool            `json:"shuffleQuestions"`
	ShuffleOptions         bool            `json:"shuffleOptions"`
	ShowResultsAfterSubmit *bool           `json:"showResultsAfterSubmit"`
	ShowCorrectAnswers     bool            `json:"showCorrectAnswers"`
	AllowReviewAfterSubmit *bool           `json:"allowReviewAfterSubmit"`
	PassingScore           int             `json:"passingScore"`
	Questions              []QuestionInput `json:"questions"`
}

func (in *QuizInput) apply(quiz *model.Quiz) {
	quiz.Title = in.Title
	quiz.Description = in.Description
	quiz.Duration = in.Duration
	quiz.MaxAttempts = in.MaxAttempts
	if quiz.MaxAttempts < 1 {
		quiz.MaxAttempts = 1
	}
	quiz.StartAt = in.StartAt
	quiz.EndAt = in.EndAt
	quiz.AllowLateSubmissions = in.AllowLateSubmissions
	quiz.ShuffleQuestions = in.ShuffleQuestions
	quiz.ShuffleOptions = in.ShuffleOptions
	quiz.ShowResultsAfterSubmit = in.ShowResultsAfterSubmit == nil || *in.ShowResultsAfterSubmit
	quiz.ShowCorrectAnswers = in.ShowCorrectAnswers
	quiz.AllowReviewAfterSubmit = in.AllowReviewAfterSubmit == nil || *in.AllowReviewAfterSubmit
	quiz.PassingScore = in.PassingScore
}

func buildQuestion(quizID string, in *QuestionInput) (*model.Question, error) {
	q := &model.Question{
		QuizID:        quizID,
		Type:          in.Type,
		Content:       in.Content,
		CorrectAnswer: in.CorrectAnswer,
		Points:        in.Points,
		Order:         in.Order,
		Explanation:   in.Explanation,
	}
	if len(in.Options) > 0 {
		raw, err := json.Marshal(in.Options)
		if err != nil {
			return nil, err
		}
		q.Options = raw
	}
	return q, nil
}

// CreateQuiz 建卷；随卷提交的题目批量建入，整体成功或整体失败。
func (s *QuizService) CreateQuiz(creatorID uint, in *QuizInput) (*model.Quiz, error) {
	quiz := &model.Quiz{CreatorID: creatorID, Status: model.QuizDraft}
	in.apply(quiz)
	if err := s.Quizzes.Create(quiz); err != nil {
		return nil, err
	}

	if len(in.Questions) > 0 {
		questions := make([]model.Question, 0, len(in.Questions))
		for i := range in.Questions {
			q, err := buildQuestion(quiz.ID, &in.Questions[i])
			if err != nil {
				return nil, err
			}
			questions = append(questions, *q)
		}
		if err := s.Questions.CreateBatch(questions); err != nil {
			return nil, err
		}
	}

	logger.Log.Info("quiz created",
		zap.String("quizId", quiz.ID),
		zap.Uint("creatorId", creatorID),
		zap.Int("questions", len(in.Questions)))
	return quiz, nil
}

func (s *QuizService) findOwned(quizID string, callerID uint, role model.UserRole) (*model.Quiz, error) {
	quiz, err := s.Quizzes.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}
	if role != model.Admin && quiz.CreatorID != callerID {
		return nil, util.ErrPermissionDenied
	}
	return quiz, nil
}

func (s *QuizService) UpdateQuiz(quizID string, callerID uint, role model.UserRole,
	in *QuizInput) (*model.Quiz, error) {

	quiz, err := s.findOwned(quizID, callerID, role)
	if err != nil {
		return nil, err
	}
	in.apply(quiz)
	if err := s.Quizzes.Update(quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) DeleteQuiz(quizID string, callerID uint, role model.UserRole) error {
	if _, err := s.findOwned(quizID, callerID, role); err != nil {
		return err
	}
	return s.Quizzes.Delete(quizID)
}

// QuizDetail 测验详情（教师视角，含完整题目）
type QuizDetail struct {
	Quiz      *model.Quiz      `json:"quiz"`
	Questions []model.Question `json:"questions"`
}

func (s *QuizService) GetQuiz(quizID string, callerID uint, role model.UserRole) (*QuizDetail, error) {
	quiz, err := s.findOwned(quizID, callerID, role)
	if err != nil {
		return nil, err
	}
	questions, err := s.Questions.ListByQuiz(quizID)
	if err != nil {
		return nil, err
	}
	return &QuizDetail{Quiz: quiz, Questions: questions}, nil
}

func (s *QuizService) ListByCreator(creatorID uint, page, limit int) ([]repository.QuizListRow, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.Quizzes.ListByCreator(creatorID, page, limit)
}

func (s *QuizService) ListPublished(page, limit int) ([]model.Quiz, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.Quizzes.ListPublished(page, limit)
}

func (s *QuizService) AddQuestion(quizID string, callerID uint, role model.UserRole,
	in *QuestionInput) (*model.Question, error) {

	if _, err := s.findOwned(quizID, callerID, role); err != nil {
		return nil, err
	}
	q, err := buildQuestion(quizID, in)
	if err != nil {
		return nil, err
	}
	if err := s.Questions.Create(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuizService) UpdateQuestion(quizID, questionID string, callerID uint,
	role model.UserRole, in *QuestionInput) (*model.Question, error) {

	if _, err := s.findOwned(quizID, callerID, role); err != nil {
		return nil, err
	}
	q, err := s.Questions.FindByID(questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}
	if q.QuizID != quizID {
		return nil, util.ErrQuestionNotFound
	}

	q.Type = in.Type
	q.Content = in.Content
	q.CorrectAnswer = in.CorrectAnswer
	q.Points = in.Points
	q.Order = in.Order
	q.Explanation = in.Explanation
	q.Options = nil
	if len(in.Options) > 0 {
		raw, merr := json.Marshal(in.Options)
		if merr != nil {
			return nil, merr
		}
		q.Options = raw
	}
	if err := s.Questions.Update(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuizService) DeleteQuestion(quizID, questionID string, callerID uint, role model.UserRole) error {
	if _, err := s.findOwned(quizID, callerID, role); err != nil {
		return err
	}
	q, err := s.Questions.FindByID(questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuestionNotFound
		}
		return err
	}
	if q.QuizID != quizID {
		return util.ErrQuestionNotFound
	}
	return s.Questions.Delete(questionID)
}

// Publish 发布测验：至少一道题，并把题目分值汇总固定到 maxScore。
func (s *QuizService) Publish(quizID string, callerID uint, role model.UserRole) (*model.Quiz, error) {
	quiz, err := s.findOwned(quizID, callerID, role)
	if err != nil {
		return nil, err
	}
	if quiz.Status == model.QuizPublished {
		return quiz, nil
	}

	count, err := s.Questions.CountByQuiz(quizID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, util.ErrQuizNoQuestions
	}

	total, err := s.Questions.SumPointsByQuiz(quizID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	quiz.MaxScore = total
	quiz.Status = model.QuizPublished
	quiz.PublishedAt = &now
	if err := s.Quizzes.Update(quiz); err != nil {
		return nil, err
	}

	logger.Log.Info("quiz published",
		zap.String("quizId", quiz.ID),
		zap.Int("maxScore", total),
		zap.Int64("questions", count))
	return quiz, nil
}

// Close 停止接受新尝试；已有尝试与结果不受影响。
func (s *QuizService) Close(quizID string, callerID uint, role model.UserRole) (*model.Quiz, error) {
	quiz, err := s.findOwned(quizID, callerID, role)
	if err != nil {
		return nil, err
	}
	quiz.Status = model.QuizClosed
	if err := s.Quizzes.Update(quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// ListQuizAttempts 教师查看某测验全部尝试。
func (s *QuizService) ListQuizAttempts(quizID string, callerID uint,
	role model.UserRole) ([]model.QuizAttempt, error) {

	if _, err := s.findOwned(quizID, callerID, role); err != nil {
		return nil, err
	}
	return s.Attempts.ListByQuiz(quizID)
}
