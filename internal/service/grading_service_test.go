package service

import (
	"errors"
	"testing"

	"eduquiz_backend/internal/model"
	"eduquiz_backend/internal/util"
)

const graderID uint = 9

// submitMixedAttempt 提交一份含主观题的答卷：1 分单选答对 + 5 分问答待评。
func submitMixedAttempt(t *testing.T, env *testEnv) (*model.Quiz, *model.Question, *model.Question, string) {
	t.Helper()
	quiz := env.seedQuiz(t, func(q *model.Quiz) { q.PassingScore = 50 })
	mcq := env.seedMCQ(t, quiz.ID, 1, 1)
	essay := env.seedLongAnswer(t, quiz.ID, 5, 2)
	env.setMaxScore(t, quiz, 6)

	started, err := env.attempt.StartAttempt(studentID, quiz.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	view, err := env.attempt.Submit(studentID, started.Attempt.ID, []AnswerSubmission{
		{QuestionID: mcq.ID, SelectedOptions: []string{"a"}},
		{QuestionID: essay.ID, WrittenAnswer: "a thoughtful essay"},
	}, false)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if view.Status != model.AttemptSubmitted {
		t.Fatalf("status = %s, want submitted (manual grading pending)", view.Status)
	}
	return quiz, mcq, essay, started.Attempt.ID
}

func TestGradeAnswerCompletesGrading(t *testing.T) {
	env := newTestEnv(t)
	_, _, essay, attemptID := submitMixedAttempt(t, env)

	attempt, err := env.grading.GradeAnswer(graderID, attemptID, essay.ID, 5, "good")
	if err != nil {
		t.Fatalf("gradeAnswer: %v", err)
	}

	if attempt.StatusVal != model.AttemptGraded {
		t.Errorf("status = %s, want graded once all answers settle", attempt.StatusVal)
	}
	if attempt.Score != 6 {
		t.Errorf("score = %d, want 6", attempt.Score)
	}
	if attempt.Percentage != 100 {
		t.Errorf("percentage = %d, want 100", attempt.Percentage)
	}
	if !attempt.IsPassed {
		t.Error("100% with passingScore 50 should pass")
	}
	if attempt.GradedByID == nil || *attempt.GradedByID != graderID {
		t.Error("grader stamp missing")
	}
	if attempt.GradedAt == nil {
		t.Error("gradedAt stamp missing")
	}

	answer, err := env.attempts.FindAnswer(attemptID, essay.ID)
	if err != nil {
		t.Fatal(err)
	}
	if answer.PointsAwarded == nil || *answer.PointsAwarded != 5 {
		t.Errorf("pointsAwarded = %v, want 5", answer.PointsAwarded)
	}
	if answer.IsCorrect == nil || !*answer.IsCorrect {
		t.Error("positive points imply isCorrect")
	}
	if answer.Feedback != "good" {
		t.Errorf("feedback = %q", answer.Feedback)
	}
}

func TestGradeAnswerZeroPoints(t *testing.T) {
	env := newTestEnv(t)
	_, _, essay, attemptID := submitMixedAttempt(t, env)

	attempt, err := env.grading.GradeAnswer(graderID, attemptID, essay.ID, 0, "off topic")
	if err != nil {
		t.Fatalf("gradeAnswer: %v", err)
	}
	if attempt.Score != 1 {
		t.Errorf("score = %d, want 1 (mcq only)", attempt.Score)
	}

	answer, _ := env.attempts.FindAnswer(attemptID, essay.ID)
	if answer.IsCorrect == nil || *answer.IsCorrect {
		t.Error("zero points imply not correct")
	}
}

func TestGradeAnswerUnknownQuestion(t *testing.T) {
	env := newTestEnv(t)
	_, _, _, attemptID := submitMixedAttempt(t, env)

	_, err := env.grading.GradeAnswer(graderID, attemptID, "wrong-id", 3, "")
	if !errors.Is(err, util.ErrAnswerNotFound) {
		t.Errorf("err = %v, want ErrAnswerNotFound", err)
	}
}

func TestGradeOverallManualPrecedence(t *testing.T) {
	env := newTestEnv(t)
	_, _, _, attemptID := submitMixedAttempt(t, env)

	attempt, err := env.grading.GradeOverall(graderID, attemptID, 4, "solid overall")
	if err != nil {
		t.Fatalf("gradeOverall: %v", err)
	}

	if attempt.StatusVal != model.AttemptGraded {
		t.Errorf("status = %s, want graded (forced)", attempt.StatusVal)
	}
	if attempt.Score != 4 {
		t.Errorf("score = %d, want the manual 4 despite per-question sum", attempt.Score)
	}
	if attempt.Percentage != 67 {
		t.Errorf("percentage = %d, want 67 (4/6)", attempt.Percentage)
	}
	if attempt.ManualScore == nil || *attempt.ManualScore != 4 {
		t.Error("manualScore must be persisted")
	}
	if attempt.GraderFeedback != "solid overall" {
		t.Errorf("feedback = %q", attempt.GraderFeedback)
	}
}

func TestRegradeDiscardsManualOverride(t *testing.T) {
	env := newTestEnv(t)
	_, _, essay, attemptID := submitMixedAttempt(t, env)

	if _, err := env.grading.GradeOverall(graderID, attemptID, 4, ""); err != nil {
		t.Fatalf("gradeOverall: %v", err)
	}

	attempt, err := env.grading.Regrade(graderID, attemptID)
	if err != nil {
		t.Fatalf("regrade: %v", err)
	}

	if attempt.ManualScore != nil {
		t.Error("regrade must clear manualScore")
	}
	if attempt.Score != 1 {
		t.Errorf("score = %d, want auto sum 1 (essay back to pending)", attempt.Score)
	}
	if attempt.StatusVal != model.AttemptSubmitted {
		t.Errorf("status = %s, want submitted (essay pending again)", attempt.StatusVal)
	}

	answer, _ := env.attempts.FindAnswer(attemptID, essay.ID)
	if answer.PointsAwarded != nil {
		t.Error("long answer returns to manual-pending after regrade")
	}
}

func TestRegradeAppliesCurrentQuestionDefinitions(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, nil)
	q1 := env.seedMCQ(t, quiz.ID, 1, 1)
	env.setMaxScore(t, quiz, 1)

	started, err := env.attempt.StartAttempt(studentID, quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	// 学生选了 b（按当前定义是错的）
	if _, err := env.attempt.Submit(studentID, started.Attempt.ID, []AnswerSubmission{
		{QuestionID: q1.ID, SelectedOptions: []string{"b"}},
	}, false); err != nil {
		t.Fatal(err)
	}

	// 教师更正答案：b 才是正确选项
	q1.Options = optionsJSON(t, []model.QuestionOption{
		{ID: "a", Text: "right"},
		{ID: "b", Text: "wrong", IsCorrect: true},
		{ID: "c", Text: "also wrong"},
	})
	if err := env.questions.Update(q1); err != nil {
		t.Fatal(err)
	}

	attempt, err := env.grading.Regrade(graderID, started.Attempt.ID)
	if err != nil {
		t.Fatalf("regrade: %v", err)
	}
	if attempt.Score != 1 {
		t.Errorf("score = %d, want 1 after correction", attempt.Score)
	}
	if attempt.StatusVal != model.AttemptGraded {
		t.Errorf("status = %s, want graded", attempt.StatusVal)
	}
}

func TestGradeInProgressAttemptRejected(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, nil)
	env.seedMCQ(t, quiz.ID, 1, 1)

	started, err := env.attempt.StartAttempt(studentID, quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.grading.GradeOverall(graderID, started.Attempt.ID, 1, ""); !errors.Is(err, util.ErrAttemptNotSubmitted) {
		t.Errorf("err = %v, want ErrAttemptNotSubmitted", err)
	}
}

func TestListPendingGrading(t *testing.T) {
	env := newTestEnv(t)
	quiz, _, essay, attemptID := submitMixedAttempt(t, env)

	pending, err := env.grading.ListPendingGrading(quiz.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != attemptID {
		t.Fatalf("pending = %v, want the submitted attempt", pending)
	}

	if _, err := env.grading.GradeAnswer(graderID, attemptID, essay.ID, 5, ""); err != nil {
		t.Fatal(err)
	}
	pending, err = env.grading.ListPendingGrading(quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %d after grading, want 0", len(pending))
	}
}
