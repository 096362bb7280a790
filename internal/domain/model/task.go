package model

import "time"

type TaskType string

const (
	TaskTypeText      TaskType = "text"
	TaskTypeImage     TaskType = "image"
	TaskTypeVideo     TaskType = "video"
	TaskTypeAudio     TaskType = "audio"
	TaskTypeDocument  TaskType = "document"
	TaskTypeCode      TaskType = "code"
	TaskTypeComposite TaskType = "composite"
)

// ValidTaskType rejects unknown type tags at the boundary so the worker
// dispatch never sees a tag it cannot match exhaustively.
func ValidTaskType(t TaskType) bool {
	switch t {
	case TaskTypeText, TaskTypeImage, TaskTypeVideo, TaskTypeAudio,
		TaskTypeDocument, TaskTypeCode, TaskTypeComposite:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusRunning TaskStatus = "running"
	TaskStatusSuccess TaskStatus = "success"
	TaskStatusFailed  TaskStatus = "failed"
)

type TaskPriority int

const (
	PriorityLow    TaskPriority = 0
	PriorityNormal TaskPriority = 1
	PriorityHigh   TaskPriority = 2
	PriorityUrgent TaskPriority = 3
)

func ParsePriority(s string) TaskPriority {
	switch s {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	case "urgent":
		return PriorityUrgent
	default:
		return PriorityNormal
	}
}

func (p TaskPriority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "normal"
	}
}

// Task is one atomic unit of work dispatched to a single provider model.
type Task struct {
	ID       string
	UserID   string
	Type     TaskType
	Model    string
	Priority TaskPriority

	Status     TaskStatus
	Progress   int
	RetryCount int
	MaxRetries int
	LastError  string

	Input      map[string]any
	ResultData map[string]any
	Cost       int64

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// Terminal reports whether the task reached a final state. Terminal tasks
// must never transition again; completion signals for them are no-ops.
func (t *Task) Terminal() bool {
	return t.Status == TaskStatusSuccess || t.Status == TaskStatusFailed
}

// MarkRunning is a no-op unless the task is still pending.
func (t *Task) MarkRunning(now time.Time) bool {
	if t.Status != TaskStatusPending {
		return false
	}
	t.Status = TaskStatusRunning
	t.StartedAt = &now
	t.UpdatedAt = now
	return true
}

// Complete moves the task to success. Returns false if already terminal.
func (t *Task) Complete(result map[string]any, now time.Time) bool {
	if t.Terminal() {
		return false
	}
	t.Status = TaskStatusSuccess
	t.Progress = 100
	t.ResultData = result
	t.CompletedAt = &now
	t.UpdatedAt = now
	return true
}

// Fail moves the task to failed. Returns false if already terminal.
func (t *Task) Fail(errMsg string, now time.Time) bool {
	if t.Terminal() {
		return false
	}
	t.Status = TaskStatusFailed
	t.LastError = errMsg
	t.CompletedAt = &now
	t.UpdatedAt = now
	return true
}

// SetProgress enforces the non-decreasing progress invariant while running.
func (t *Task) SetProgress(p int) {
	if t.Status != TaskStatusRunning {
		return
	}
	if p > 100 {
		p = 100
	}
	if p > t.Progress {
		t.Progress = p
	}
}
