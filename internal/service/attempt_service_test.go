package service

import (
	"errors"
	"testing"
	"time"

	"eduquiz_backend/internal/model"
	"eduquiz_backend/internal/util"
)

const studentID uint = 42

func TestStartAttemptScenario(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, nil)
	env.seedMCQ(t, quiz.ID, 1, 1)
	env.seedMCQ(t, quiz.ID, 1, 2)
	env.seedMCQ(t, quiz.ID, 1, 3)
	env.setMaxScore(t, quiz, 3)

	result, err := env.attempt.StartAttempt(studentID, quiz.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if result.Resumed {
		t.Error("first start must create, not resume")
	}
	if result.Attempt.AttemptNumber != 1 {
		t.Errorf("attemptNumber = %d, want 1", result.Attempt.AttemptNumber)
	}
	if len(result.Questions) != 3 {
		t.Fatalf("questions = %d, want 3", len(result.Questions))
	}
	wantExpiry := result.Attempt.StartedAt.Add(30 * time.Minute)
	if !result.Attempt.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expiresAt = %v, want startedAt+30m", result.Attempt.ExpiresAt)
	}
	if result.TimeRemaining <= 0 || result.TimeRemaining > 30*60 {
		t.Errorf("timeRemaining = %d, want within (0, 1800]", result.TimeRemaining)
	}
}

func TestStartAttemptIdempotentResume(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, func(q *model.Quiz) { q.MaxAttempts = 3 })
	env.seedMCQ(t, quiz.ID, 1, 1)

	first, err := env.attempt.StartAttempt(studentID, quiz.ID)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	second, err := env.attempt.StartAttempt(studentID, quiz.ID)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}

	if !second.Resumed {
		t.Error("second start must resume")
	}
	if second.Attempt.ID != first.Attempt.ID {
		t.Errorf("resumed a different attempt: %s != %s", second.Attempt.ID, first.Attempt.ID)
	}
	if second.Attempt.AttemptNumber != first.Attempt.AttemptNumber {
		t.Error("attemptNumber must not change on resume")
	}

	count, err := env.attempts.CountByQuizAndStudent(quiz.ID, studentID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("attempts = %d, want 1", count)
	}
}

func TestStartAttemptGuards(t *testing.T) {
	env := newTestEnv(t)

	t.Run("quiz not found", func(t *testing.T) {
		_, err := env.attempt.StartAttempt(studentID, "no-such-quiz")
		if !errors.Is(err, util.ErrQuizNotFound) {
			t.Errorf("err = %v, want ErrQuizNotFound", err)
		}
	})

	t.Run("draft quiz", func(t *testing.T) {
		quiz := env.seedQuiz(t, func(q *model.Quiz) { q.Status = model.QuizDraft })
		_, err := env.attempt.StartAttempt(studentID, quiz.ID)
		if !errors.Is(err, util.ErrQuizNotPublished) {
			t.Errorf("err = %v, want ErrQuizNotPublished", err)
		}
	})

	t.Run("window not open yet", func(t *testing.T) {
		future := time.Now().Add(time.Hour)
		quiz := env.seedQuiz(t, func(q *model.Quiz) { q.StartAt = &future })
		_, err := env.attempt.StartAttempt(studentID, quiz.ID)
		if !errors.Is(err, util.ErrQuizNotStarted) {
			t.Errorf("err = %v, want ErrQuizNotStarted", err)
		}
	})

	t.Run("window closed", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		quiz := env.seedQuiz(t, func(q *model.Quiz) { q.EndAt = &past })
		_, err := env.attempt.StartAttempt(studentID, quiz.ID)
		if !errors.Is(err, util.ErrQuizEnded) {
			t.Errorf("err = %v, want ErrQuizEnded", err)
		}
	})

	t.Run("no questions", func(t *testing.T) {
		quiz := env.seedQuiz(t, nil)
		_, err := env.attempt.StartAttempt(studentID, quiz.ID)
		if !errors.Is(err, util.ErrQuizNoQuestions) {
			t.Errorf("err = %v, want ErrQuizNoQuestions", err)
		}
	})
}

func TestAttemptCap(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, func(q *model.Quiz) { q.MaxAttempts = 2 })
	env.seedMCQ(t, quiz.ID, 1, 1)
	env.setMaxScore(t, quiz, 1)

	for i := 0; i < 2; i++ {
		result, err := env.attempt.StartAttempt(studentID, quiz.ID)
		if err != nil {
			t.Fatalf("start %d: %v", i+1, err)
		}
		if _, err := env.attempt.Submit(studentID, result.Attempt.ID, nil, false); err != nil {
			t.Fatalf("submit %d: %v", i+1, err)
		}
	}

	_, err := env.attempt.StartAttempt(studentID, quiz.ID)
	if !errors.Is(err, util.ErrMaxAttemptsReached) {
		t.Errorf("third start: err = %v, want ErrMaxAttemptsReached", err)
	}
}

func TestSubmitFullyAutoGraded(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, func(q *model.Quiz) { q.PassingScore = 60 })
	q1 := env.seedMCQ(t, quiz.ID, 1, 1)
	q2 := env.seedMCQ(t, quiz.ID, 1, 2)
	q3 := env.seedMCQ(t, quiz.ID, 1, 3)
	env.setMaxScore(t, quiz, 3)

	started, err := env.attempt.StartAttempt(studentID, quiz.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	view, err := env.attempt.Submit(studentID, started.Attempt.ID, []AnswerSubmission{
		{QuestionID: q1.ID, SelectedOptions: []string{"a"}},
		{QuestionID: q2.ID, SelectedOptions: []string{"a"}},
		{QuestionID: q3.ID, SelectedOptions: []string{"b"}},
	}, false)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if view.Status != model.AttemptGraded {
		t.Errorf("status = %s, want graded", view.Status)
	}
	if view.Score == nil || *view.Score != 2 {
		t.Errorf("score = %v, want 2", view.Score)
	}
	if view.MaxScore == nil || *view.MaxScore != 3 {
		t.Errorf("maxScore = %v, want 3", view.MaxScore)
	}
	if view.Percentage == nil || *view.Percentage != 67 {
		t.Errorf("percentage = %v, want 67", view.Percentage)
	}
	if view.IsPassed == nil || !*view.IsPassed {
		t.Error("67% with passingScore 60 should pass")
	}
}

func TestSubmitSynthesizesMissingAnswers(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, nil)
	q1 := env.seedMCQ(t, quiz.ID, 1, 1)
	env.seedMCQ(t, quiz.ID, 1, 2)
	env.setMaxScore(t, quiz, 2)

	started, err := env.attempt.StartAttempt(studentID, quiz.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := env.attempt.Submit(studentID, started.Attempt.ID, []AnswerSubmission{
		{QuestionID: q1.ID, SelectedOptions: []string{"a"}},
	}, false); err != nil {
		t.Fatalf("submit: %v", err)
	}

	answers, err := env.attempts.GetAnswers(started.Attempt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(answers) != 2 {
		t.Fatalf("answers = %d, want 2 (one synthesized)", len(answers))
	}
	var synthesized *model.AttemptAnswer
	for i := range answers {
		if answers[i].QuestionID != q1.ID {
			synthesized = &answers[i]
		}
	}
	if synthesized == nil {
		t.Fatal("missing synthesized answer row")
	}
	if synthesized.PointsAwarded == nil || *synthesized.PointsAwarded != 0 {
		t.Error("unanswered question scores zero")
	}
	if synthesized.Feedback != "Not answered" {
		t.Errorf("feedback = %q", synthesized.Feedback)
	}
}

func TestSubmitRetrySafe(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, nil)
	q1 := env.seedMCQ(t, quiz.ID, 1, 1)
	env.setMaxScore(t, quiz, 1)

	started, err := env.attempt.StartAttempt(studentID, quiz.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	payload := []AnswerSubmission{{QuestionID: q1.ID, SelectedOptions: []string{"a"}}}
	if _, err := env.attempt.Submit(studentID, started.Attempt.ID, payload, false); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = env.attempt.Submit(studentID, started.Attempt.ID, payload, false)
	if !errors.Is(err, util.ErrAttemptSubmitted) {
		t.Errorf("retry: err = %v, want ErrAttemptSubmitted", err)
	}

	// 重试不得二次计分
	attempt, err := env.attempts.FindByID(started.Attempt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if attempt.Score != 1 {
		t.Errorf("score = %d, want 1", attempt.Score)
	}
	answers, _ := env.attempts.GetAnswers(started.Attempt.ID)
	if len(answers) != 1 {
		t.Errorf("answers = %d, want 1", len(answers))
	}
}

func TestLateAttemptStaysSubmitted(t *testing.T) {
	env := newTestEnv(t)
	past := time.Now().Add(-time.Hour)
	quiz := env.seedQuiz(t, func(q *model.Quiz) {
		q.EndAt = &past
		q.AllowLateSubmissions = true
	})
	q1 := env.seedMCQ(t, quiz.ID, 1, 1)
	env.setMaxScore(t, quiz, 1)

	started, err := env.attempt.StartAttempt(studentID, quiz.ID)
	if err != nil {
		t.Fatalf("late start: %v", err)
	}
	if !started.Attempt.IsLate {
		t.Error("attempt after endAt must be flagged late")
	}

	view, err := env.attempt.Submit(studentID, started.Attempt.ID, []AnswerSubmission{
		{QuestionID: q1.ID, SelectedOptions: []string{"a"}},
	}, false)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if view.Status != model.AttemptSubmitted {
		t.Errorf("late attempts need review: status = %s, want submitted", view.Status)
	}
	if view.Score == nil || *view.Score != 1 {
		t.Errorf("auto-grading still runs: score = %v, want 1", view.Score)
	}
}

func TestSaveProgressLifecycle(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, nil)
	q1 := env.seedMCQ(t, quiz.ID, 1, 1)
	env.setMaxScore(t, quiz, 1)

	started, err := env.attempt.StartAttempt(studentID, quiz.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	remaining, err := env.attempt.SaveProgress(studentID, started.Attempt.ID, []AnswerSubmission{
		{QuestionID: q1.ID, SelectedOptions: []string{"b"}},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if remaining <= 0 {
		t.Errorf("timeRemaining = %d, want > 0", remaining)
	}

	answers, err := env.attempts.GetAnswers(started.Attempt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(answers) != 1 {
		t.Fatalf("answers = %d, want 1", len(answers))
	}
	if answers[0].PointsAwarded != nil || answers[0].IsCorrect != nil {
		t.Error("saved progress must not be graded")
	}

	// 整体替换：第二次保存换答案不追加
	if _, err := env.attempt.SaveProgress(studentID, started.Attempt.ID, []AnswerSubmission{
		{QuestionID: q1.ID, SelectedOptions: []string{"a"}},
	}); err != nil {
		t.Fatalf("second save: %v", err)
	}
	answers, _ = env.attempts.GetAnswers(started.Attempt.ID)
	if len(answers) != 1 {
		t.Errorf("answers = %d after replace, want 1", len(answers))
	}
	if got := answers[0].SelectedOptionIDs(); len(got) != 1 || got[0] != "a" {
		t.Errorf("selected = %v, want [a]", got)
	}
}

func TestSaveProgressCannotOverwriteSubmittedAnswers(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, nil)
	q1 := env.seedMCQ(t, quiz.ID, 1, 1)
	env.setMaxScore(t, quiz, 1)

	started, err := env.attempt.StartAttempt(studentID, quiz.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := env.attempt.Submit(studentID, started.Attempt.ID, []AnswerSubmission{
		{QuestionID: q1.ID, SelectedOptions: []string{"a"}},
	}, false); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// 与提交竞态的保存：状态守卫必须拒绝替换
	ok, err := env.attempts.ReplaceAnswersInProgress(started.Attempt.ID, []model.AttemptAnswer{
		{QuestionID: q1.ID, WrittenAnswer: "stale"},
	})
	if err != nil {
		t.Fatalf("guarded replace: %v", err)
	}
	if ok {
		t.Fatal("replace must be refused once the attempt left in_progress")
	}

	answers, err := env.attempts.GetAnswers(started.Attempt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(answers) != 1 {
		t.Fatalf("answers = %d, want 1", len(answers))
	}
	if answers[0].PointsAwarded == nil || *answers[0].PointsAwarded != 1 {
		t.Error("graded answer rows must survive a losing save")
	}
}

func TestSaveProgressRejectsExpired(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, nil)
	q1 := env.seedMCQ(t, quiz.ID, 1, 1)

	started, err := env.attempt.StartAttempt(studentID, quiz.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	started.Attempt.ExpiresAt = time.Now().Add(-time.Minute)
	if err := env.attempts.Save(started.Attempt); err != nil {
		t.Fatal(err)
	}

	_, err = env.attempt.SaveProgress(studentID, started.Attempt.ID, []AnswerSubmission{
		{QuestionID: q1.ID, SelectedOptions: []string{"a"}},
	})
	if !errors.Is(err, util.ErrAttemptTimeExpired) {
		t.Errorf("err = %v, want ErrAttemptTimeExpired", err)
	}
}

func TestSaveProgressRejectsUnknownQuestion(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, nil)
	env.seedMCQ(t, quiz.ID, 1, 1)

	started, err := env.attempt.StartAttempt(studentID, quiz.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err = env.attempt.SaveProgress(studentID, started.Attempt.ID, []AnswerSubmission{
		{QuestionID: "not-in-this-quiz", SelectedOptions: []string{"a"}},
	})
	if !errors.Is(err, util.ErrInvalidAnswerPayload) {
		t.Errorf("err = %v, want ErrInvalidAnswerPayload", err)
	}
}

func TestShuffledOrderStableAcrossResume(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, func(q *model.Quiz) {
		q.ShuffleQuestions = true
		q.MaxAttempts = 2
	})
	ids := map[string]bool{}
	for i := 1; i <= 6; i++ {
		q := env.seedMCQ(t, quiz.ID, 1, i)
		ids[q.ID] = true
	}
	env.setMaxScore(t, quiz, 6)

	first, err := env.attempt.StartAttempt(studentID, quiz.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	order := first.Attempt.QuestionIDs()
	if len(order) != 6 {
		t.Fatalf("order length = %d, want 6", len(order))
	}
	seen := map[string]bool{}
	for _, id := range order {
		if !ids[id] || seen[id] {
			t.Fatalf("order %v is not a permutation of the question set", order)
		}
		seen[id] = true
	}

	resumed, err := env.attempt.StartAttempt(studentID, quiz.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	got := resumed.Attempt.QuestionIDs()
	for i := range order {
		if got[i] != order[i] {
			t.Fatalf("order changed on resume: %v != %v", got, order)
		}
	}
	for i, q := range resumed.Questions {
		if q.ID != order[i] {
			t.Errorf("question payload order mismatch at %d", i)
		}
	}
}

func TestGetStatusAndOwnership(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, nil)
	env.seedMCQ(t, quiz.ID, 1, 1)

	started, err := env.attempt.StartAttempt(studentID, quiz.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	status, err := env.attempt.GetStatus(studentID, started.Attempt.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Status != model.AttemptInProgress || status.Expired {
		t.Errorf("unexpected status view: %+v", status)
	}
	if status.QuestionCount != 1 {
		t.Errorf("questionCount = %d, want 1", status.QuestionCount)
	}

	// 他人的尝试不可见
	if _, err := env.attempt.GetStatus(studentID+1, started.Attempt.ID); !errors.Is(err, util.ErrAttemptNotFound) {
		t.Errorf("foreign attempt: err = %v, want ErrAttemptNotFound", err)
	}
}

func TestGetResultsVisibility(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, func(q *model.Quiz) { q.ShowResultsAfterSubmit = false })
	q1 := env.seedMCQ(t, quiz.ID, 1, 1)
	env.setMaxScore(t, quiz, 1)

	started, err := env.attempt.StartAttempt(studentID, quiz.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := env.attempt.GetResults(studentID, model.Student, started.Attempt.ID); !errors.Is(err, util.ErrAttemptNotSubmitted) {
		t.Errorf("in-progress results: err = %v, want ErrAttemptNotSubmitted", err)
	}

	if _, err := env.attempt.Submit(studentID, started.Attempt.ID, []AnswerSubmission{
		{QuestionID: q1.ID, SelectedOptions: []string{"a"}},
	}, false); err != nil {
		t.Fatalf("submit: %v", err)
	}

	studentView, err := env.attempt.GetResults(studentID, model.Student, started.Attempt.ID)
	if err != nil {
		t.Fatalf("student results: %v", err)
	}
	if !studentView.ResultsHidden || studentView.Score != nil {
		t.Error("student view should be hidden")
	}

	teacherView, err := env.attempt.GetResults(1, model.Teacher, started.Attempt.ID)
	if err != nil {
		t.Fatalf("teacher results: %v", err)
	}
	if teacherView.ResultsHidden || teacherView.Score == nil || *teacherView.Score != 1 {
		t.Errorf("teacher view = %+v, want full score", teacherView)
	}
}

func TestListStudentAttempts(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, func(q *model.Quiz) { q.MaxAttempts = 2 })
	q1 := env.seedMCQ(t, quiz.ID, 1, 1)
	env.setMaxScore(t, quiz, 1)

	first, err := env.attempt.StartAttempt(studentID, quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.attempt.Submit(studentID, first.Attempt.ID, []AnswerSubmission{
		{QuestionID: q1.ID, SelectedOptions: []string{"a"}},
	}, false); err != nil {
		t.Fatal(err)
	}
	if _, err := env.attempt.StartAttempt(studentID, quiz.ID); err != nil {
		t.Fatal(err)
	}

	summaries, err := env.attempt.ListStudentAttempts(studentID, quiz.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries = %d, want 2", len(summaries))
	}
	if summaries[0].AttemptNumber != 1 || summaries[1].AttemptNumber != 2 {
		t.Error("summaries must be ordered by attemptNumber")
	}
	if summaries[0].Score == nil || *summaries[0].Score != 1 {
		t.Error("graded attempt exposes its score")
	}
	if summaries[1].Score != nil {
		t.Error("in-progress attempt must not expose a score")
	}
}
