package storage

import "errors"

// ErrNotFound is returned by mutations that target a missing row.
// Lookups return (nil, nil) instead.
var ErrNotFound = errors.New("not found")

// Default page size for list queries
const defaultListLimit = 100

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory mock)
// and makes testing with mocks straightforward.
type Repository interface {
	ClientRepository
	TaskRepository
	AnalysisRepository
	SampleRepository

	// GetStats returns aggregate statistics
	GetStats() (*Stats, error)

	Close() error
}

// ClientRepository handles client records
type ClientRepository interface {
	// SaveClient inserts or updates a client. An empty ID is assigned a new UUID.
	SaveClient(client *Client) error

	// GetClient retrieves a client by ID, returning nil if it does not exist
	GetClient(id string) (*Client, error)

	// ListClients returns clients ordered by name
	ListClients(filters ClientFilters) ([]Client, error)

	// DeleteClient removes a client and its tasks. Saved analyses and
	// sample runs are kept and detached from the client.
	DeleteClient(id string) error
}

// TaskRepository handles engagement tasks and their checklists
type TaskRepository interface {
	// SaveTask inserts or updates a task. An empty ID is assigned a new UUID,
	// as is every checklist item without one.
	SaveTask(task *Task) error

	// GetTask retrieves a task by ID, returning nil if it does not exist
	GetTask(id string) (*Task, error)

	// ListTasks returns tasks ordered by due date, undated last
	ListTasks(filters TaskFilters) ([]Task, error)

	// DeleteTask removes a task
	DeleteTask(id string) error

	// SetChecklistItem marks a checklist item done or not done
	SetChecklistItem(taskID, itemID string, done bool) (*Task, error)
}

// AnalysisRepository handles saved variance analyses
type AnalysisRepository interface {
	SaveVarianceAnalysis(analysis *VarianceAnalysis) error
	GetVarianceAnalysis(id string) (*VarianceAnalysis, error)

	// ListVarianceAnalyses returns the newest analyses first. An empty
	// clientID lists analyses for all clients.
	ListVarianceAnalyses(clientID string, limit int) ([]VarianceAnalysis, error)
}

// SampleRepository handles saved sample selections
type SampleRepository interface {
	SaveSampleRun(run *SampleRun) error
	GetSampleRun(id string) (*SampleRun, error)

	// ListSampleRuns returns the newest runs first. An empty clientID lists
	// runs for all clients.
	ListSampleRuns(clientID string, limit int) ([]SampleRun, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
