package service

import (
	"errors"
	"time"

	"eduquiz_backend/internal/model"
	"eduquiz_backend/internal/repository"
	"eduquiz_backend/internal/util"
	"eduquiz_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type GradingService struct {
	Quizzes   *repository.QuizRepository
	Questions *repository.QuestionRepository
	Attempts  *repository.AttemptRepository
	Notifier  NotificationPort
}

func NewGradingService(quizzes *repository.QuizRepository, questions *repository.QuestionRepository,
	attempts *repository.AttemptRepository, notifier NotificationPort) *GradingService {
	return &GradingService{
		Quizzes:   quizzes,
		Questions: questions,
		Attempts:  attempts,
		Notifier:  notifier,
	}
}

func (s *GradingService) loadSubmitted(attemptID string) (*model.QuizAttempt, *model.Quiz, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrAttemptNotFound
		}
		return nil, nil, err
	}
	if attempt.StatusVal == model.AttemptInProgress {
		return nil, nil, util.ErrAttemptNotSubmitted
	}
	quiz, err := s.Quizzes.FindByID(attempt.QuizID)
	if err != nil {
		return nil, nil, err
	}
	return attempt, quiz, nil
}

// GradeAnswer 人工评定单题。questionId 按原值精确匹配已存答案行。
// 重新聚合后若全部判定完毕则尝试终评为 graded。
func (s *GradingService) GradeAnswer(graderID uint, attemptID, questionID string,
	points int, feedback string) (*model.QuizAttempt, error) {

	attempt, quiz, err := s.loadSubmitted(attemptID)
	if err != nil {
		return nil, err
	}

	answer, err := s.Attempts.FindAnswer(attemptID, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAnswerNotFound
		}
		return nil, err
	}

	answer.PointsAwarded = intPtr(points)
	answer.IsCorrect = boolPtr(points > 0)
	answer.Feedback = feedback
	if err := s.Attempts.SaveAnswer(answer); err != nil {
		return nil, err
	}

	answers, err := s.Attempts.GetAnswers(attemptID)
	if err != nil {
		return nil, err
	}
	summary := CalculateScore(answers, attempt.ManualScore, quiz.MaxScore)
	s.applySummary(attempt, quiz, summary, graderID)
	if summary.AllGraded && attempt.StatusVal == model.AttemptSubmitted {
		attempt.StatusVal = model.AttemptGraded
	}

	if err := s.Attempts.Save(attempt); err != nil {
		return nil, err
	}
	if attempt.StatusVal == model.AttemptGraded {
		s.Notifier.AttemptGraded(attempt)
	}
	return attempt, nil
}

// GradeOverall 整卷人工给分：manualScore 覆盖逐题累加，状态强制 graded，
// 直到 regrade 显式清除为止一直生效。
func (s *GradingService) GradeOverall(graderID uint, attemptID string,
	score int, feedback string) (*model.QuizAttempt, error) {

	attempt, quiz, err := s.loadSubmitted(attemptID)
	if err != nil {
		return nil, err
	}

	attempt.ManualScore = intPtr(score)
	attempt.GraderFeedback = feedback

	answers, err := s.Attempts.GetAnswers(attemptID)
	if err != nil {
		return nil, err
	}
	summary := CalculateScore(answers, attempt.ManualScore, quiz.MaxScore)
	s.applySummary(attempt, quiz, summary, graderID)
	attempt.StatusVal = model.AttemptGraded

	if err := s.Attempts.Save(attempt); err != nil {
		return nil, err
	}

	logger.Log.Info("attempt graded overall",
		zap.String("attemptId", attempt.ID),
		zap.Uint("graderId", graderID),
		zap.Int("manualScore", score))
	s.Notifier.AttemptGraded(attempt)
	return attempt, nil
}

// Regrade 按当前题目定义重跑自动判分，并丢弃整卷人工分。
// 覆盖 manualScore 是约定行为：重判之后以自动判分为准。
func (s *GradingService) Regrade(graderID uint, attemptID string) (*model.QuizAttempt, error) {
	attempt, quiz, err := s.loadSubmitted(attemptID)
	if err != nil {
		return nil, err
	}

	questions, err := s.Questions.ListByQuiz(attempt.QuizID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	answers, err := s.Attempts.GetAnswers(attemptID)
	if err != nil {
		return nil, err
	}
	for i := range answers {
		q := byID[answers[i].QuestionID]
		if q == nil {
			// 题目已被移除，保留原判定
			continue
		}
		answers[i].IsCorrect = CheckAnswer(q, &answers[i])
		answers[i].PointsAwarded = PointsFor(q, answers[i].IsCorrect)
	}

	attempt.ManualScore = nil
	summary := CalculateScore(answers, nil, quiz.MaxScore)
	s.applySummary(attempt, quiz, summary, graderID)
	if summary.AllGraded {
		attempt.StatusVal = model.AttemptGraded
	} else {
		attempt.StatusVal = model.AttemptSubmitted
	}

	if err := s.Attempts.SaveGraded(attempt, answers); err != nil {
		return nil, err
	}

	logger.Log.Info("attempt regraded",
		zap.String("attemptId", attempt.ID),
		zap.Uint("graderId", graderID),
		zap.Int("score", attempt.Score))
	if attempt.StatusVal == model.AttemptGraded {
		s.Notifier.AttemptGraded(attempt)
	}
	return attempt, nil
}

func (s *GradingService) applySummary(attempt *model.QuizAttempt, quiz *model.Quiz,
	summary ScoreSummary, graderID uint) {
	now := time.Now()
	attempt.Score = summary.Score
	attempt.Percentage = summary.Percentage
	attempt.IsPassed = Passed(summary.Percentage, quiz.PassingScore)
	attempt.GradedByID = &graderID
	attempt.GradedAt = &now
}

// ListPendingGrading 列出待人工评分的尝试（已提交未终评）。
func (s *GradingService) ListPendingGrading(quizID string) ([]model.QuizAttempt, error) {
	if _, err := s.Quizzes.FindByID(quizID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}
	return s.Attempts.ListPendingManual(quizID)
}
