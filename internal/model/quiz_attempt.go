package model

import (
	"encoding/json"
	"time"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptGraded     AttemptStatus = "graded"
	AttemptTimedOut   AttemptStatus = "timed_out"
)

// swagger:model QuizAttempt
type QuizAttempt struct {
	UUIDBase
	QuizID        string `gorm:"index;type:varchar(36);not null;uniqueIndex:idx_attempt_no,priority:1" json:"quizId"`
	StudentID     uint   `gorm:"index;type:bigint unsigned;not null;uniqueIndex:idx_attempt_no,priority:2" json:"studentId"`
	AttemptNumber int    `gorm:"not null;uniqueIndex:idx_attempt_no,priority:3" json:"attemptNumber"`

	// ActiveKey 为 "quizID:studentID"，仅 in_progress 期间持有；
	// 唯一索引保证同一学生同一测验至多一个进行中的尝试。
	ActiveKey *string `gorm:"size:73;uniqueIndex" json:"-"`

	StatusVal       AttemptStatus `gorm:"column:status;size:20;default:'in_progress'" json:"status"`
	StartedAt       time.Time     `json:"startedAt"`
	ExpiresAt       time.Time     `json:"expiresAt"`
	SubmittedAt     *time.Time    `json:"submittedAt,omitempty"`
	IsAutoSubmitted bool          `gorm:"default:false" json:"isAutoSubmitted"`
	IsLate          bool          `gorm:"default:false" json:"isLate"`

	// 开始时固定的题目顺序快照（JSON 数组，题目ID）
	QuestionsOrder json.RawMessage `gorm:"type:json" json:"questionsOrder"`

	Score          int        `gorm:"default:0" json:"score"`
	ManualScore    *int       `json:"manualScore,omitempty"`
	Percentage     int        `gorm:"default:0" json:"percentage"`
	IsPassed       bool       `gorm:"default:false" json:"isPassed"`
	GradedByID     *uint      `gorm:"type:bigint unsigned" json:"gradedById,omitempty"`
	GradedAt       *time.Time `json:"gradedAt,omitempty"`
	GraderFeedback string     `gorm:"type:text" json:"graderFeedback"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// HasExpired reports whether the server-side deadline has passed at t.
func (a *QuizAttempt) HasExpired(t time.Time) bool {
	return !t.Before(a.ExpiresAt)
}

// TimeRemaining returns whole seconds left before expiry, floored at zero.
func (a *QuizAttempt) TimeRemaining(t time.Time) int {
	remaining := int(a.ExpiresAt.Sub(t).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// QuestionIDs decodes the persisted order snapshot.
func (a *QuizAttempt) QuestionIDs() []string {
	var ids []string
	if len(a.QuestionsOrder) > 0 {
		_ = json.Unmarshal(a.QuestionsOrder, &ids)
	}
	return ids
}

// AttemptAnswer 一次尝试中对单题的作答与评分结果
type AttemptAnswer struct {
	UUIDBase
	AttemptID       string          `gorm:"index;type:varchar(36);not null" json:"attemptId"`
	QuestionID      string          `gorm:"index;type:varchar(36);not null" json:"questionId"`
	SelectedOptions json.RawMessage `gorm:"type:json" json:"selectedOptions,omitempty"`
	WrittenAnswer   string          `gorm:"type:text" json:"writtenAnswer"`
	IsCorrect       *bool           `json:"isCorrect,omitempty"`
	PointsAwarded   *int            `json:"pointsAwarded,omitempty"` // null 表示待人工评分
	Feedback        string          `gorm:"type:text" json:"feedback"`
}

func (AttemptAnswer) TableName() string {
	return "quiz_attempt_answers"
}

// SelectedOptionIDs decodes the submitted option ID list.
func (a *AttemptAnswer) SelectedOptionIDs() []string {
	var ids []string
	if len(a.SelectedOptions) > 0 {
		_ = json.Unmarshal(a.SelectedOptions, &ids)
	}
	return ids
}
