package service

import (
	"context"
	"encoding/json"
	"time"

	"eduquiz_backend/internal/model"
	"eduquiz_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// NotificationPort 尝试生命周期事件出口。实现必须是“尽力而为”：
// 投递失败只记日志，绝不影响答题与评分主流程。
type NotificationPort interface {
	AttemptStarted(attempt *model.QuizAttempt)
	AttemptSubmitted(attempt *model.QuizAttempt)
	AttemptGraded(attempt *model.QuizAttempt)
}

const attemptEventChannel = "eduquiz:attempt_events"

type attemptEvent struct {
	Event     string              `json:"event"`
	AttemptID string              `json:"attemptId"`
	QuizID    string              `json:"quizId"`
	StudentID uint                `json:"studentId"`
	Status    model.AttemptStatus `json:"status"`
	At        time.Time           `json:"at"`
}

// RedisNotifier 把尝试事件发布到 Redis 频道，供通知网关订阅。
type RedisNotifier struct {
	RDB *redis.Client
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{RDB: rdb}
}

func (n *RedisNotifier) publish(event string, attempt *model.QuizAttempt) {
	payload, err := json.Marshal(attemptEvent{
		Event:     event,
		AttemptID: attempt.ID,
		QuizID:    attempt.QuizID,
		StudentID: attempt.StudentID,
		Status:    attempt.StatusVal,
		At:        time.Now(),
	})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.RDB.Publish(ctx, attemptEventChannel, payload).Err(); err != nil {
		logger.Log.Warn("attempt event publish failed",
			zap.String("event", event),
			zap.String("attemptId", attempt.ID),
			zap.Error(err))
	}
}

func (n *RedisNotifier) AttemptStarted(attempt *model.QuizAttempt) {
	go n.publish("attempt_started", attempt)
}

func (n *RedisNotifier) AttemptSubmitted(attempt *model.QuizAttempt) {
	go n.publish("attempt_submitted", attempt)
}

func (n *RedisNotifier) AttemptGraded(attempt *model.QuizAttempt) {
	go n.publish("attempt_graded", attempt)
}

// NopNotifier 空实现，用于不接通知网关的部署
type NopNotifier struct{}

func (NopNotifier) AttemptStarted(*model.QuizAttempt)   {}
func (NopNotifier) AttemptSubmitted(*model.QuizAttempt) {}
func (NopNotifier) AttemptGraded(*model.QuizAttempt)    {}
