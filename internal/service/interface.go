package service

import (
	"context"
)

// EventProducer publishes platform events. Failures are advisory: services
// log them and carry on.
type EventProducer interface {
	Send(ctx context.Context, topic string, key string, message interface{}) error
}

const (
	TopicTaskAssigned  = "task-assigned"
	TopicTaskSubmitted = "task-submitted"
	TopicTaskConfirmed = "task-confirmed"
	TopicOrphanReport  = "orphan-report"
)
