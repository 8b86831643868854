package service

import (
	"strings"

	"eduquiz_backend/internal/model"
)

// CheckAnswer 对单题作答做自动判分。
// 返回 nil 表示该题无法自动判定，需人工评分
// （主观题，或未配置参考答案的简答题）。
func CheckAnswer(q *model.Question, a *model.AttemptAnswer) *bool {
	switch q.Type {
	case model.MCQSingle, model.TrueFalse:
		return checkSingleChoice(q, a.SelectedOptionIDs())
	case model.MCQMultiple:
		return checkMultipleChoice(q, a.SelectedOptionIDs())
	case model.ShortAnswer:
		key := strings.TrimSpace(q.CorrectAnswer)
		if key == "" {
			return nil
		}
		got := strings.TrimSpace(a.WrittenAnswer)
		return boolPtr(strings.EqualFold(got, key))
	case model.LongAnswer:
		return nil
	}
	return boolPtr(false)
}

func checkSingleChoice(q *model.Question, selected []string) *bool {
	if len(selected) != 1 {
		return boolPtr(false)
	}
	for _, opt := range q.DecodeOptions() {
		if opt.ID == selected[0] {
			return boolPtr(opt.IsCorrect)
		}
	}
	return boolPtr(false)
}

// checkMultipleChoice 要求选中集合与正确集合完全一致，不给部分分。
func checkMultipleChoice(q *model.Question, selected []string) *bool {
	chosen := make(map[string]bool, len(selected))
	for _, id := range selected {
		chosen[id] = true
	}

	matched := 0
	for _, opt := range q.DecodeOptions() {
		if opt.IsCorrect {
			if !chosen[opt.ID] {
				return boolPtr(false)
			}
			matched++
		} else if chosen[opt.ID] {
			return boolPtr(false)
		}
	}
	return boolPtr(matched == len(chosen))
}

// PointsFor 由判定结果换算得分；无法判定时返回 nil（待人工）。
func PointsFor(q *model.Question, isCorrect *bool) *int {
	if isCorrect == nil {
		return nil
	}
	points := 0
	if *isCorrect {
		points = q.Points
	}
	return intPtr(points)
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }
