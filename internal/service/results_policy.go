package service

import (
	"eduquiz_backend/internal/model"
)

// AnswerReview 结果视图中单题的回顾条目
type AnswerReview struct {
	QuestionID      string                 `json:"questionId"`
	Type            model.QuestionType     `json:"type"`
	Content         string                 `json:"content"`
	Points          int                    `json:"points"`
	SelectedOptions []string               `json:"selectedOptions,omitempty"`
	WrittenAnswer   string                 `json:"writtenAnswer,omitempty"`
	IsCorrect       *bool                  `json:"isCorrect,omitempty"`
	PointsAwarded   *int                   `json:"pointsAwarded,omitempty"`
	Feedback        string                 `json:"feedback,omitempty"`
	CorrectOptions  []string               `json:"correctOptions,omitempty"`
	CorrectAnswer   string                 `json:"correctAnswer,omitempty"`
	Explanation     string                 `json:"explanation,omitempty"`
	Options         []model.QuestionOption `json:"options,omitempty"`
}

// ResultsView getResults 的响应体。隐藏结果时只保留确认字段，
// 分数相关字段整体缺省而不是置空，避免泄露结构。
type ResultsView struct {
	AttemptID     string              `json:"attemptId"`
	QuizID        string              `json:"quizId"`
	Status        model.AttemptStatus `json:"status"`
	SubmittedAt   *string             `json:"submittedAt,omitempty"`
	ResultsHidden bool                `json:"resultsHidden,omitempty"`

	Score       *int           `json:"score,omitempty"`
	MaxScore    *int           `json:"maxScore,omitempty"`
	Percentage  *int           `json:"percentage,omitempty"`
	IsPassed    *bool          `json:"isPassed,omitempty"`
	IsLate      *bool          `json:"isLate,omitempty"`
	GradedAt    *string        `json:"gradedAt,omitempty"`
	Feedback    string         `json:"feedback,omitempty"`
	Answers     []AnswerReview `json:"answers,omitempty"`
	AttemptMeta *AttemptMeta   `json:"attempt,omitempty"`
}

// AttemptMeta 教师视角附带的尝试元信息
type AttemptMeta struct {
	StudentID       uint `json:"studentId"`
	AttemptNumber   int  `json:"attemptNumber"`
	IsAutoSubmitted bool `json:"isAutoSubmitted"`
}

// BuildResultsView 按角色投影尝试结果。教师与管理员总是全量可见；
// 学生逐项受 showResultsAfterSubmit / allowReviewAfterSubmit /
// showCorrectAnswers 约束。
func BuildResultsView(quiz *model.Quiz, attempt *model.QuizAttempt,
	questions []model.Question, answers []model.AttemptAnswer, role model.UserRole) *ResultsView {

	view := &ResultsView{
		AttemptID: attempt.ID,
		QuizID:    attempt.QuizID,
		Status:    attempt.StatusVal,
	}
	if attempt.SubmittedAt != nil {
		s := attempt.SubmittedAt.Format("2006-01-02T15:04:05Z07:00")
		view.SubmittedAt = &s
	}

	fullAccess := role == model.Teacher || role == model.Admin
	if !fullAccess && !quiz.ShowResultsAfterSubmit {
		view.ResultsHidden = true
		return view
	}

	view.Score = intPtr(attempt.Score)
	view.MaxScore = intPtr(quiz.MaxScore)
	view.Percentage = intPtr(attempt.Percentage)
	view.IsPassed = boolPtr(attempt.IsPassed)
	view.IsLate = boolPtr(attempt.IsLate)
	view.Feedback = attempt.GraderFeedback
	if attempt.GradedAt != nil {
		g := attempt.GradedAt.Format("2006-01-02T15:04:05Z07:00")
		view.GradedAt = &g
	}
	if fullAccess {
		view.AttemptMeta = &AttemptMeta{
			StudentID:       attempt.StudentID,
			AttemptNumber:   attempt.AttemptNumber,
			IsAutoSubmitted: attempt.IsAutoSubmitted,
		}
	}

	if !fullAccess && !quiz.AllowReviewAfterSubmit {
		return view
	}

	showKeys := fullAccess || quiz.ShowCorrectAnswers
	byQuestion := make(map[string]*model.AttemptAnswer, len(answers))
	for i := range answers {
		byQuestion[answers[i].QuestionID] = &answers[i]
	}

	for i := range questions {
		q := &questions[i]
		review := AnswerReview{
			QuestionID: q.ID,
			Type:       q.Type,
			Content:    q.Content,
			Points:     q.Points,
		}
		if a := byQuestion[q.ID]; a != nil {
			review.SelectedOptions = a.SelectedOptionIDs()
			review.WrittenAnswer = a.WrittenAnswer
			review.IsCorrect = a.IsCorrect
			review.PointsAwarded = a.PointsAwarded
			review.Feedback = a.Feedback
		}
		if q.HasOptions() {
			opts := q.DecodeOptions()
			if showKeys {
				review.Options = opts
				for _, opt := range opts {
					if opt.IsCorrect {
						review.CorrectOptions = append(review.CorrectOptions, opt.ID)
					}
				}
			} else {
				// 学生回顾时隐藏 isCorrect 标记
				sanitized := make([]model.QuestionOption, 0, len(opts))
				for _, opt := range opts {
					sanitized = append(sanitized, model.QuestionOption{ID: opt.ID, Text: opt.Text})
				}
				review.Options = sanitized
			}
		}
		if showKeys {
			review.CorrectAnswer = q.CorrectAnswer
			review.Explanation = q.Explanation
		}
		view.Answers = append(view.Answers, review)
	}
	return view
}

// SubmitView 提交后的即时响应；对学生同样受 showResultsAfterSubmit 约束。
type SubmitView struct {
	AttemptID     string              `json:"attemptId"`
	Status        model.AttemptStatus `json:"status"`
	SubmittedAt   string              `json:"submittedAt"`
	IsLate        bool                `json:"isLate"`
	ResultsHidden bool                `json:"resultsHidden,omitempty"`

	Score      *int  `json:"score,omitempty"`
	MaxScore   *int  `json:"maxScore,omitempty"`
	Percentage *int  `json:"percentage,omitempty"`
	IsPassed   *bool `json:"isPassed,omitempty"`
}

func BuildSubmitView(quiz *model.Quiz, attempt *model.QuizAttempt) *SubmitView {
	view := &SubmitView{
		AttemptID: attempt.ID,
		Status:    attempt.StatusVal,
		IsLate:    attempt.IsLate,
	}
	if attempt.SubmittedAt != nil {
		view.SubmittedAt = attempt.SubmittedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	if !quiz.ShowResultsAfterSubmit {
		view.ResultsHidden = true
		return view
	}
	view.Score = intPtr(attempt.Score)
	view.MaxScore = intPtr(quiz.MaxScore)
	view.Percentage = intPtr(attempt.Percentage)
	view.IsPassed = boolPtr(attempt.IsPassed)
	return view
}
