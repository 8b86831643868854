package service

import (
	"encoding/json"
	"testing"
	"time"

	"eduquiz_backend/internal/model"
	"eduquiz_backend/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testEnv struct {
	db        *gorm.DB
	quizzes   *repository.QuizRepository
	questions *repository.QuestionRepository
	attempts  *repository.AttemptRepository

	attempt *AttemptService
	grading *GradingService
	quiz    *QuizService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	// 内存库随连接销毁，固定单连接
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&model.Quiz{},
		&model.Question{},
		&model.QuizAttempt{},
		&model.AttemptAnswer{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	env := &testEnv{
		db:        db,
		quizzes:   repository.NewQuizRepository(db, nil),
		questions: repository.NewQuestionRepository(db),
		attempts:  repository.NewAttemptRepository(db),
	}
	env.attempt = NewAttemptService(env.quizzes, env.questions, env.attempts, NopNotifier{})
	env.grading = NewGradingService(env.quizzes, env.questions, env.attempts, NopNotifier{})
	env.quiz = NewQuizService(env.quizzes, env.questions, env.attempts)
	return env
}

// seedQuiz 建一个已发布的测验；mutate 可覆盖默认配置。
func (env *testEnv) seedQuiz(t *testing.T, mutate func(*model.Quiz)) *model.Quiz {
	t.Helper()
	now := time.Now()
	quiz := &model.Quiz{
		Title:                  "Test Quiz",
		CreatorID:              1,
		Duration:               30,
		MaxAttempts:            1,
		ShowResultsAfterSubmit: true,
		AllowReviewAfterSubmit: true,
		Status:                 model.QuizPublished,
		PublishedAt:            &now,
	}
	if mutate != nil {
		mutate(quiz)
	}
	if err := env.quizzes.Create(quiz); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	return quiz
}

func optionsJSON(t *testing.T, opts []model.QuestionOption) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(opts)
	if err != nil {
		t.Fatalf("marshal options: %v", err)
	}
	return raw
}

// seedMCQ 单选题，选项 a（正确）/b/c。
func (env *testEnv) seedMCQ(t *testing.T, quizID string, points, order int) *model.Question {
	t.Helper()
	q := &model.Question{
		QuizID:  quizID,
		Type:    model.MCQSingle,
		Content: "pick the right one",
		Options: optionsJSON(t, []model.QuestionOption{
			{ID: "a", Text: "right", IsCorrect: true},
			{ID: "b", Text: "wrong"},
			{ID: "c", Text: "also wrong"},
		}),
		Points: points,
		Order:  order,
	}
	if err := env.questions.Create(q); err != nil {
		t.Fatalf("seed question: %v", err)
	}
	return q
}

func (env *testEnv) seedLongAnswer(t *testing.T, quizID string, points, order int) *model.Question {
	t.Helper()
	q := &model.Question{
		QuizID:  quizID,
		Type:    model.LongAnswer,
		Content: "explain in your own words",
		Points:  points,
		Order:   order,
	}
	if err := env.questions.Create(q); err != nil {
		t.Fatalf("seed question: %v", err)
	}
	return q
}

func (env *testEnv) setMaxScore(t *testing.T, quiz *model.Quiz, maxScore int) {
	t.Helper()
	quiz.MaxScore = maxScore
	if err := env.quizzes.Update(quiz); err != nil {
		t.Fatalf("set max score: %v", err)
	}
}
