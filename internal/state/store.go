// Package state persists build run history in SQLite.
//
// The store is optional: when no state path is configured the pipeline
// runs without it. Schema changes go through goose migrations so an
// existing history database upgrades in place.
package state

import "time"

// RunStatus is the lifecycle state of a build run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded build run.
type Run struct {
	ID          string
	InputPath   string
	Status      RunStatus
	NodeCount   int
	EdgeCount   int
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// Store records build runs.
type Store interface {
	CreateRun(inputPath string) (*Run, error)
	CompleteRun(id string, status RunStatus, nodeCount, edgeCount int, errMsg string) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)
	Close() error
}
