package model

import "time"

type QuizStatus string

const (
	QuizDraft     QuizStatus = "draft"
	QuizPublished QuizStatus = "published"
	QuizClosed    QuizStatus = "closed"
)

// swagger:model Quiz
type Quiz struct {
	UUIDBase
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	CreatorID   uint   `gorm:"index;type:bigint unsigned" json:"creatorId"`

	Duration    int        `gorm:"default:0" json:"duration"` // 答题时长（分钟）
	MaxAttempts int        `gorm:"default:1" json:"maxAttempts"`
	StartAt     *time.Time `json:"startAt,omitempty"`
	EndAt       *time.Time `json:"endAt,omitempty"`

	// 可见性开关不带列默认值：带 default 标签时 gorm 会在插入中省略
	// 零值字段，false 会被列默认值悄悄改写成 true。默认值由服务层给。
	AllowLateSubmissions   bool `gorm:"default:false" json:"allowLateSubmissions"`
	ShuffleQuestions       bool `gorm:"default:false" json:"shuffleQuestions"`
	ShuffleOptions         bool `gorm:"default:false" json:"shuffleOptions"`
	ShowResultsAfterSubmit bool `json:"showResultsAfterSubmit"`
	ShowCorrectAnswers     bool `gorm:"default:false" json:"showCorrectAnswers"`
	AllowReviewAfterSubmit bool `json:"allowReviewAfterSubmit"`

	PassingScore int        `gorm:"default:0" json:"passingScore"` // 0 表示不判定及格
	MaxScore     int        `gorm:"default:0" json:"maxScore"`     // 发布时由题目分值汇总固定
	Status       QuizStatus `gorm:"size:20;default:'draft'" json:"status"`
	PublishedAt  *time.Time `json:"publishedAt,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// WindowOpen reports whether new attempts are accepted at t.
// A closed window still admits late attempts when AllowLateSubmissions is set.
func (q *Quiz) WindowOpen(t time.Time) (open bool, late bool) {
	if q.StartAt != nil && t.Before(*q.StartAt) {
		return false, false
	}
	if q.EndAt != nil && t.After(*q.EndAt) {
		return q.AllowLateSubmissions, true
	}
	return true, false
}
