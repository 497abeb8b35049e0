package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Millis is an epoch-milliseconds timestamp, the wire format used by all
// stored documents.
type Millis = int64

func NowMillis() Millis {
	return time.Now().UnixMilli()
}

// TaskItem is one content reference in a task: either a literal sentence
// or a numeric problem identifier, depending on the task's source type.
// It marshals as a bare JSON string or number.
type TaskItem struct {
	Sentence string
	Number   int64
	IsNumber bool
}

func SentenceItem(s string) TaskItem {
	return TaskItem{Sentence: s}
}

func NumberItem(n int64) TaskItem {
	return TaskItem{Number: n, IsNumber: true}
}

func (i TaskItem) MarshalJSON() ([]byte, error) {
	if i.IsNumber {
		return json.Marshal(i.Number)
	}
	return json.Marshal(i.Sentence)
}

func (i *TaskItem) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*i = TaskItem{Sentence: s}
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*i = TaskItem{Number: n, IsNumber: true}
		return nil
	}
	return fmt.Errorf("task item must be a string or an integer, got %s", data)
}

// TaskDescriptor is one unit of assigned work inside an assignment document.
type TaskDescriptor struct {
	TaskID     string     `json:"taskId"`
	Type       ModuleType `json:"type"`
	Items      []TaskItem `json:"items"`
	Rate       float64    `json:"rate,omitempty"`
	SourceType SourceType `json:"sourceType,omitempty"`
	AssignedAt Millis     `json:"assignedAt,omitempty"`
}
