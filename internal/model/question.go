package model

import "encoding/json"

type QuestionType string

const (
	MCQSingle   QuestionType = "mcq_single"
	MCQMultiple QuestionType = "mcq_multiple"
	TrueFalse   QuestionType = "true_false"
	ShortAnswer QuestionType = "short_answer"
	LongAnswer  QuestionType = "long_answer"
)

// QuestionOption 选择题选项；只有 mcq/true_false 类型使用
type QuestionOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// swagger:model Question
type Question struct {
	UUIDBase
	QuizID        string          `gorm:"index;type:varchar(36);not null" json:"quizId"`
	Type          QuestionType    `gorm:"size:50;not null" json:"type"`
	Content       string          `gorm:"type:text;not null" json:"content"`
	Options       json.RawMessage `gorm:"type:json" json:"options,omitempty"`
	CorrectAnswer string          `gorm:"type:text" json:"correctAnswer"` // short_answer 使用
	Points        int             `gorm:"default:0" json:"points"`
	Order         int             `gorm:"default:0" json:"order"`
	Explanation   string          `gorm:"type:text" json:"explanation"`
}

func (Question) TableName() string {
	return "quiz_questions"
}

// HasOptions reports whether the question type is option-based.
func (q *Question) HasOptions() bool {
	switch q.Type {
	case MCQSingle, MCQMultiple, TrueFalse:
		return true
	}
	return false
}

// DecodeOptions parses the stored option list. Returns nil on absent or
// malformed options; only the list relevant to the type is authoritative.
func (q *Question) DecodeOptions() []QuestionOption {
	if len(q.Options) == 0 || !q.HasOptions() {
		return nil
	}
	var opts []QuestionOption
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil
	}
	return opts
}
