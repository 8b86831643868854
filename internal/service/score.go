package service

import (
	"math"

	"eduquiz_backend/internal/model"
)

// ScoreSummary 一次尝试的聚合评分结果
type ScoreSummary struct {
	Score      int
	Percentage int
	AllGraded  bool
}

// CalculateScore 汇总尝试得分。整卷人工分（manualScore）只覆盖分数；
// AllGraded 严格按答案判定：只要存在一条待人工评分的答案即为 false，
// 状态是否强制 graded 由调用方决定。
func CalculateScore(answers []model.AttemptAnswer, manualScore *int, maxScore int) ScoreSummary {
	summary := ScoreSummary{AllGraded: true}

	total := 0
	for i := range answers {
		if answers[i].PointsAwarded == nil {
			summary.AllGraded = false
			continue
		}
		total += *answers[i].PointsAwarded
	}

	if manualScore != nil {
		summary.Score = *manualScore
	} else {
		summary.Score = total
	}
	summary.Percentage = Percentage(summary.Score, maxScore)
	return summary
}

// Percentage 四舍五入到整数百分比；满分为 0 时恒为 0。
func Percentage(score, maxScore int) int {
	if maxScore <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(maxScore) * 100))
}

// Passed 判定及格；passingScore 为 0 表示不判定，恒为 false。
func Passed(percentage, passingScore int) bool {
	return passingScore > 0 && percentage >= passingScore
}
