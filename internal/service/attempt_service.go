package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"eduquiz_backend/internal/model"
	"eduquiz_backend/internal/repository"
	"eduquiz_backend/internal/util"
	"eduquiz_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AttemptService struct {
	Quizzes   *repository.QuizRepository
	Questions *repository.QuestionRepository
	Attempts  *repository.AttemptRepository
	Notifier  NotificationPort
}

func NewAttemptService(quizzes *repository.QuizRepository, questions *repository.QuestionRepository,
	attempts *repository.AttemptRepository, notifier NotificationPort) *AttemptService {
	return &AttemptService{
		Quizzes:   quizzes,
		Questions: questions,
		Attempts:  attempts,
		Notifier:  notifier,
	}
}

// AnswerSubmission 客户端提交的单题作答
type AnswerSubmission struct {
	QuestionID      string   `json:"questionId" binding:"required"`
	SelectedOptions []string `json:"selectedOptions"`
	WrittenAnswer   string   `json:"writtenAnswer"`
}

// StudentOption 发给学生的选项（不带 isCorrect）
type StudentOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// StudentQuestion 发给学生的题面
type StudentQuestion struct {
	ID      string             `json:"id"`
	Type    model.QuestionType `json:"type"`
	Content string             `json:"content"`
	Points  int                `json:"points"`
	Options []StudentOption    `json:"options,omitempty"`
}

// StartResult startAttempt 的响应：恢复已有尝试时 Resumed 为 true。
type StartResult struct {
	Attempt       *model.QuizAttempt `json:"attempt"`
	Questions     []StudentQuestion  `json:"questions"`
	TimeRemaining int                `json:"timeRemaining"`
	Resumed       bool               `json:"resumed"`
}

// StartAttempt 开始或恢复一次尝试。并发开卷依赖 active_key 唯一索引：
// 两个并发请求最多一个插入成功，失败方转为恢复胜出方的尝试。
func (s *AttemptService) StartAttempt(studentID uint, quizID string) (*StartResult, error) {
	quiz, err := s.Quizzes.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}
	if quiz.Status != model.QuizPublished {
		return nil, util.ErrQuizNotPublished
	}

	now := time.Now()
	open, late := quiz.WindowOpen(now)
	if !open {
		if quiz.StartAt != nil && now.Before(*quiz.StartAt) {
			return nil, util.ErrQuizNotStarted
		}
		return nil, util.ErrQuizEnded
	}

	if existing, err := s.Attempts.FindInProgress(quizID, studentID); err == nil {
		return s.buildStartResult(quiz, existing, now, true)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	count, err := s.Attempts.CountByQuizAndStudent(quizID, studentID)
	if err != nil {
		return nil, err
	}
	if count >= int64(quiz.MaxAttempts) {
		return nil, util.ErrMaxAttemptsReached
	}

	questions, err := s.Questions.ListByQuiz(quizID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrQuizNoQuestions
	}

	ids := make([]string, len(questions))
	for i := range questions {
		ids[i] = questions[i].ID
	}
	if quiz.ShuffleQuestions {
		rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	}
	order, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}

	activeKey := fmt.Sprintf("%s:%d", quizID, studentID)
	attempt := &model.QuizAttempt{
		QuizID:         quizID,
		StudentID:      studentID,
		AttemptNumber:  int(count) + 1,
		ActiveKey:      &activeKey,
		StatusVal:      model.AttemptInProgress,
		StartedAt:      now,
		ExpiresAt:      now.Add(time.Duration(quiz.Duration) * time.Minute),
		IsLate:         late,
		QuestionsOrder: order,
	}
	if err := s.Attempts.Create(attempt); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 并发开卷输掉的请求：改走恢复路径
			winner, ferr := s.Attempts.FindInProgress(quizID, studentID)
			if ferr != nil {
				if errors.Is(ferr, gorm.ErrRecordNotFound) {
					return nil, util.ErrMaxAttemptsReached
				}
				return nil, ferr
			}
			return s.buildStartResult(quiz, winner, now, true)
		}
		return nil, err
	}

	logger.Log.Info("attempt started",
		zap.String("quizId", quizID),
		zap.Uint("studentId", studentID),
		zap.Int("attemptNumber", attempt.AttemptNumber),
		zap.Bool("late", late))
	s.Notifier.AttemptStarted(attempt)

	return s.buildStartResult(quiz, attempt, now, false)
}

func (s *AttemptService) buildStartResult(quiz *model.Quiz, attempt *model.QuizAttempt,
	now time.Time, resumed bool) (*StartResult, error) {

	questions, err := s.Questions.ListByQuiz(quiz.ID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	out := make([]StudentQuestion, 0, len(questions))
	for _, id := range attempt.QuestionIDs() {
		q := byID[id]
		if q == nil {
			continue // 题目在尝试开始后被移除
		}
		sq := StudentQuestion{
			ID:      q.ID,
			Type:    q.Type,
			Content: q.Content,
			Points:  q.Points,
		}
		if q.HasOptions() {
			opts := q.DecodeOptions()
			if quiz.ShuffleOptions {
				shuffleOptions(opts, attempt.ID, q.ID)
			}
			for _, opt := range opts {
				sq.Options = append(sq.Options, StudentOption{ID: opt.ID, Text: opt.Text})
			}
		}
		out = append(out, sq)
	}

	return &StartResult{
		Attempt:       attempt,
		Questions:     out,
		TimeRemaining: attempt.TimeRemaining(now),
		Resumed:       resumed,
	}, nil
}

// shuffleOptions 用 (attemptID, questionID) 派生的种子做确定性洗牌，
// 同一尝试内恢复多少次顺序都不变，且无须落库。
func shuffleOptions(opts []model.QuestionOption, attemptID, questionID string) {
	h := fnv.New64a()
	h.Write([]byte(attemptID))
	h.Write([]byte{0})
	h.Write([]byte(questionID))
	r := rand.New(rand.NewSource(int64(h.Sum64())))
	r.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
}

// SaveProgress 整体替换作答快照。过期判定只信服务端 expiresAt。
func (s *AttemptService) SaveProgress(studentID uint, attemptID string,
	answers []AnswerSubmission) (int, error) {

	attempt, err := s.Attempts.FindByIDAndStudent(attemptID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, util.ErrAttemptNotFound
		}
		return 0, err
	}
	if attempt.StatusVal != model.AttemptInProgress {
		return 0, util.ErrAttemptSubmitted
	}

	now := time.Now()
	if attempt.HasExpired(now) {
		return 0, util.ErrAttemptTimeExpired
	}

	rows, err := s.answerRows(attempt, answers, false)
	if err != nil {
		return 0, err
	}
	// 守卫替换：并发提交抢先落盘时放弃本次保存，不覆盖已判分答案
	ok, err := s.Attempts.ReplaceAnswersInProgress(attempt.ID, rows)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, util.ErrAttemptSubmitted
	}
	return attempt.TimeRemaining(now), nil
}

// answerRows 把提交载荷转换为答案行；graded 为 true 时附带自动判分，
// 并为遗漏的题目补零分占位行。
func (s *AttemptService) answerRows(attempt *model.QuizAttempt,
	answers []AnswerSubmission, graded bool) ([]model.AttemptAnswer, error) {

	questions, err := s.Questions.ListByQuiz(attempt.QuizID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	rows := make([]model.AttemptAnswer, 0, len(questions))
	answered := make(map[string]bool, len(answers))
	for _, sub := range answers {
		q := byID[sub.QuestionID]
		if q == nil {
			return nil, util.ErrInvalidAnswerPayload
		}
		if answered[sub.QuestionID] {
			return nil, util.ErrInvalidAnswerPayload
		}
		answered[sub.QuestionID] = true

		row := model.AttemptAnswer{
			AttemptID:     attempt.ID,
			QuestionID:    q.ID,
			WrittenAnswer: sub.WrittenAnswer,
		}
		if len(sub.SelectedOptions) > 0 {
			raw, merr := json.Marshal(sub.SelectedOptions)
			if merr != nil {
				return nil, util.ErrInvalidAnswerPayload
			}
			row.SelectedOptions = raw
		}
		if graded {
			row.IsCorrect = CheckAnswer(q, &row)
			row.PointsAwarded = PointsFor(q, row.IsCorrect)
		}
		rows = append(rows, row)
	}

	if graded {
		for i := range questions {
			if answered[questions[i].ID] {
				continue
			}
			rows = append(rows, model.AttemptAnswer{
				AttemptID:     attempt.ID,
				QuestionID:    questions[i].ID,
				IsCorrect:     boolPtr(false),
				PointsAwarded: intPtr(0),
				Feedback:      "Not answered",
			})
		}
	}
	return rows, nil
}

// Submit 提交尝试并自动判分。守卫更新保证重试不会二次计分；
// 迟交的尝试即使全部可自动判分也停留在 submitted 等教师复核。
func (s *AttemptService) Submit(studentID uint, attemptID string,
	answers []AnswerSubmission, isAutoSubmit bool) (*SubmitView, error) {

	attempt, err := s.Attempts.FindByIDAndStudent(attemptID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}

	quiz, err := s.Quizzes.FindByID(attempt.QuizID)
	if err != nil {
		return nil, err
	}

	// 载荷校验与判分先于状态声明，避免坏载荷留下半提交状态
	rows, err := s.answerRows(attempt, answers, true)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	claimed, err := s.Attempts.ClaimSubmit(attempt.ID, now, isAutoSubmit)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, util.ErrAttemptSubmitted
	}
	attempt.StatusVal = model.AttemptSubmitted
	attempt.SubmittedAt = &now
	attempt.IsAutoSubmitted = isAutoSubmit
	attempt.ActiveKey = nil

	summary := CalculateScore(rows, nil, quiz.MaxScore)
	attempt.Score = summary.Score
	attempt.Percentage = summary.Percentage
	attempt.IsPassed = Passed(summary.Percentage, quiz.PassingScore)
	if summary.AllGraded && !attempt.IsLate {
		attempt.StatusVal = model.AttemptGraded
	}

	if err := s.Attempts.ReplaceAnswers(attempt.ID, rows); err != nil {
		return nil, err
	}
	if err := s.Attempts.Save(attempt); err != nil {
		return nil, err
	}

	logger.Log.Info("attempt submitted",
		zap.String("attemptId", attempt.ID),
		zap.String("status", string(attempt.StatusVal)),
		zap.Int("score", attempt.Score),
		zap.Bool("auto", isAutoSubmit))
	s.Notifier.AttemptSubmitted(attempt)

	return BuildSubmitView(quiz, attempt), nil
}

// AttemptStatusView getAttemptStatus 的只读投影
type AttemptStatusView struct {
	AttemptID     string              `json:"attemptId"`
	QuizID        string              `json:"quizId"`
	Status        model.AttemptStatus `json:"status"`
	AttemptNumber int                 `json:"attemptNumber"`
	StartedAt     time.Time           `json:"startedAt"`
	ExpiresAt     time.Time           `json:"expiresAt"`
	TimeRemaining int                 `json:"timeRemaining"`
	Expired       bool                `json:"expired"`
	AnsweredCount int                 `json:"answeredCount"`
	QuestionCount int                 `json:"questionCount"`
}

func (s *AttemptService) GetStatus(studentID uint, attemptID string) (*AttemptStatusView, error) {
	attempt, err := s.Attempts.FindByIDAndStudent(attemptID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}

	answers, err := s.Attempts.GetAnswers(attempt.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &AttemptStatusView{
		AttemptID:     attempt.ID,
		QuizID:        attempt.QuizID,
		Status:        attempt.StatusVal,
		AttemptNumber: attempt.AttemptNumber,
		StartedAt:     attempt.StartedAt,
		ExpiresAt:     attempt.ExpiresAt,
		TimeRemaining: attempt.TimeRemaining(now),
		Expired:       attempt.HasExpired(now),
		AnsweredCount: len(answers),
		QuestionCount: len(attempt.QuestionIDs()),
	}, nil
}

// GetResults 按调用者角色返回结果视图。学生只能看自己的尝试。
func (s *AttemptService) GetResults(callerID uint, role model.UserRole,
	attemptID string) (*ResultsView, error) {

	var attempt *model.QuizAttempt
	var err error
	if role == model.Teacher || role == model.Admin {
		attempt, err = s.Attempts.FindByID(attemptID)
	} else {
		attempt, err = s.Attempts.FindByIDAndStudent(attemptID, callerID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.StatusVal == model.AttemptInProgress {
		return nil, util.ErrAttemptNotSubmitted
	}

	quiz, err := s.Quizzes.FindByID(attempt.QuizID)
	if err != nil {
		return nil, err
	}
	questions, err := s.Questions.ListByQuiz(attempt.QuizID)
	if err != nil {
		return nil, err
	}
	answers, err := s.Attempts.GetAnswers(attempt.ID)
	if err != nil {
		return nil, err
	}
	return BuildResultsView(quiz, attempt, questions, answers, role), nil
}

// AttemptSummary 学生尝试列表条目；分数字段受结果可见性约束。
type AttemptSummary struct {
	AttemptID     string              `json:"attemptId"`
	AttemptNumber int                 `json:"attemptNumber"`
	Status        model.AttemptStatus `json:"status"`
	StartedAt     time.Time           `json:"startedAt"`
	SubmittedAt   *time.Time          `json:"submittedAt,omitempty"`
	IsLate        bool                `json:"isLate"`
	Score         *int                `json:"score,omitempty"`
	Percentage    *int                `json:"percentage,omitempty"`
	IsPassed      *bool               `json:"isPassed,omitempty"`
}

func (s *AttemptService) ListStudentAttempts(studentID uint, quizID string) ([]AttemptSummary, error) {
	quiz, err := s.Quizzes.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	attempts, err := s.Attempts.ListByQuizAndStudent(quizID, studentID)
	if err != nil {
		return nil, err
	}

	out := make([]AttemptSummary, 0, len(attempts))
	for i := range attempts {
		a := &attempts[i]
		summary := AttemptSummary{
			AttemptID:     a.ID,
			AttemptNumber: a.AttemptNumber,
			Status:        a.StatusVal,
			StartedAt:     a.StartedAt,
			SubmittedAt:   a.SubmittedAt,
			IsLate:        a.IsLate,
		}
		if quiz.ShowResultsAfterSubmit && a.StatusVal != model.AttemptInProgress {
			summary.Score = intPtr(a.Score)
			summary.Percentage = intPtr(a.Percentage)
			summary.IsPassed = boolPtr(a.IsPassed)
		}
		out = append(out, summary)
	}
	return out, nil
}
