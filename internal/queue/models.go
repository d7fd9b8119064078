package queue

import "time"

// Status is the lifecycle state of a conversion request.
type Status string

const (
	// StatusPending marks a request waiting to be picked up.
	StatusPending Status = "pending"
	// StatusConverting marks a request currently being processed.
	StatusConverting Status = "converting"
	// StatusCompleted marks a request whose output exists in full.
	StatusCompleted Status = "completed"
	// StatusFailed marks a request that stopped with an error. Its
	// conversion directory, when recorded, is still resumable.
	StatusFailed Status = "failed"
)

// Item is one conversion request.
type Item struct {
	ID           int64
	RequestID    string
	InputPath    string
	OutputDir    string
	FOV          int
	Status       Status
	JobDir       string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
