package storage

import (
	"time"

	"github.com/eshaffer321/auditflow/internal/domain/sampling"
	"github.com/eshaffer321/auditflow/internal/domain/variance"
)

// Client statuses
const (
	ClientStatusActive   = "active"
	ClientStatusInactive = "inactive"
	ClientStatusProspect = "prospect"
)

// Client is an audit client of the firm
type Client struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ContactName   string    `json:"contact_name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Industry      string    `json:"industry"`
	FiscalYearEnd string    `json:"fiscal_year_end"` // MM-DD
	Status        string    `json:"status"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Task statuses
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusReview     = "review"
	TaskStatusDone       = "done"
)

// Task priorities
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

// Task is a unit of engagement work, optionally tied to a client
type Task struct {
	ID          string          `json:"id"`
	ClientID    string          `json:"client_id,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Priority    string          `json:"priority"`
	AssignedTo  string          `json:"assigned_to"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	Checklist   []ChecklistItem `json:"checklist"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ChecklistItem is a single step of a task's checklist
type ChecklistItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// IsOverdue reports whether the task is open and past its due date
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Status != TaskStatusDone && t.DueDate != nil && t.DueDate.Before(now)
}

// ChecklistProgress returns completed and total checklist items
func (t *Task) ChecklistProgress() (done, total int) {
	for _, item := range t.Checklist {
		if item.Done {
			done++
		}
	}
	return done, len(t.Checklist)
}

// VarianceAnalysis is a saved trial-balance comparison
type VarianceAnalysis struct {
	ID         string                     `json:"id"`
	ClientID   string                     `json:"client_id,omitempty"`
	Name       string                     `json:"name"`
	Thresholds variance.Thresholds        `json:"thresholds"`
	Records    []variance.AccountVariance `json:"records"`
	Summary    variance.Summary           `json:"summary"`
	CreatedAt  time.Time                  `json:"created_at"`
}

// SampleRun is a saved sample selection
type SampleRun struct {
	ID        string              `json:"id"`
	ClientID  string              `json:"client_id,omitempty"`
	Name      string              `json:"name"`
	Module    sampling.ModuleKind `json:"module"`
	Params    sampling.Params     `json:"params"`
	Seed      uint64              `json:"seed"`
	Result    sampling.Result     `json:"result"`
	CreatedAt time.Time           `json:"created_at"`
}

// ClientFilters defines filters for listing clients
type ClientFilters struct {
	Status string // Filter by status (empty = all)
	Search string // Case-insensitive name match (empty = all)
	Limit  int    // Max results (0 = default 100)
	Offset int
}

// TaskFilters defines filters for listing tasks
type TaskFilters struct {
	ClientID   string
	Status     string
	AssignedTo string
	Limit      int // Max results (0 = default 100)
	Offset     int
}

// Stats holds aggregate counts for dashboards
type Stats struct {
	ClientCount        int `json:"client_count"`
	ActiveClientCount  int `json:"active_client_count"`
	TaskCount          int `json:"task_count"`
	OpenTaskCount      int `json:"open_task_count"`
	OverdueTaskCount   int `json:"overdue_task_count"`
	AnalysisCount      int `json:"analysis_count"`
	FlaggedAccounts    int `json:"flagged_accounts"`
	SampleRunCount     int `json:"sample_run_count"`
	SampledTransaction int `json:"sampled_transactions"`
}
