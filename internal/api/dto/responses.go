package dto

import (
	"time"

	"github.com/eshaffer321/auditflow/internal/domain/sampling"
	"github.com/eshaffer321/auditflow/internal/domain/variance"
	"github.com/eshaffer321/auditflow/internal/infrastructure/storage"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ClientListResponse is returned when listing clients.
type ClientListResponse struct {
	Clients []storage.Client `json:"clients"`
	Count   int              `json:"count"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// TaskResponse is a task with derived progress fields.
type TaskResponse struct {
	storage.Task
	ChecklistDone  int  `json:"checklist_done"`
	ChecklistTotal int  `json:"checklist_total"`
	Overdue        bool `json:"overdue"`
}

// NewTaskResponse derives progress for task as of now.
func NewTaskResponse(task storage.Task, now time.Time) TaskResponse {
	done, total := task.ChecklistProgress()
	return TaskResponse{
		Task:           task,
		ChecklistDone:  done,
		ChecklistTotal: total,
		Overdue:        task.IsOverdue(now),
	}
}

// TaskListResponse is returned when listing tasks.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Count int            `json:"count"`
}

// VarianceResponse is a variance analysis. Records are omitted in list views.
type VarianceResponse struct {
	ID         string                     `json:"id,omitempty"`
	ClientID   string                     `json:"client_id,omitempty"`
	Name       string                     `json:"name"`
	Thresholds variance.Thresholds        `json:"thresholds"`
	Summary    variance.Summary           `json:"summary"`
	Records    []variance.AccountVariance `json:"records,omitempty"`
	CreatedAt  string                     `json:"created_at"`
}

// NewVarianceResponse converts an analysis. Records are included when
// withRecords is set, optionally filtered to the given flags.
func NewVarianceResponse(a *storage.VarianceAnalysis, withRecords bool, flags ...variance.Flag) VarianceResponse {
	resp := VarianceResponse{
		ID:         a.ID,
		ClientID:   a.ClientID,
		Name:       a.Name,
		Thresholds: a.Thresholds,
		Summary:    a.Summary,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
	if withRecords {
		resp.Records = a.Records
		if len(flags) > 0 {
			resp.Records = variance.FilterByFlag(a.Records, flags...)
		}
	}
	return resp
}

// VarianceListResponse is returned when listing analyses.
type VarianceListResponse struct {
	Analyses []VarianceResponse `json:"analyses"`
	Count    int                `json:"count"`
}

// SampleResponse is a sample run. The sample itself is omitted in list views.
type SampleResponse struct {
	ID                string                 `json:"id,omitempty"`
	ClientID          string                 `json:"client_id,omitempty"`
	Name              string                 `json:"name"`
	Module            sampling.ModuleKind    `json:"module"`
	Strategy          sampling.Strategy      `json:"strategy"`
	Params            sampling.Params        `json:"params"`
	Seed              uint64                 `json:"seed"`
	PopulationSize    int                    `json:"population_size"`
	SampleSize        int                    `json:"sample_size"`
	StrategySelected  int                    `json:"strategy_selected"`
	RelatedPartyAdded int                    `json:"related_party_added"`
	Strata            *sampling.Strata       `json:"strata,omitempty"`
	Sample            []sampling.Transaction `json:"sample,omitempty"`
	CreatedAt         string                 `json:"created_at"`
}

// NewSampleResponse converts a sample run.
func NewSampleResponse(run *storage.SampleRun, withSample bool) SampleResponse {
	resp := SampleResponse{
		ID:                run.ID,
		ClientID:          run.ClientID,
		Name:              run.Name,
		Module:            run.Module,
		Strategy:          run.Result.Strategy,
		Params:            run.Params,
		Seed:              run.Seed,
		PopulationSize:    run.Result.PopulationSize,
		SampleSize:        len(run.Result.Sample),
		StrategySelected:  run.Result.StrategySelected,
		RelatedPartyAdded: run.Result.RelatedPartyAdded,
		Strata:            run.Result.Strata,
		CreatedAt:         run.CreatedAt.Format(time.RFC3339),
	}
	if withSample {
		resp.Sample = run.Result.Sample
	}
	return resp
}

// SampleListResponse is returned when listing sample runs.
type SampleListResponse struct {
	Samples []SampleResponse `json:"samples"`
	Count   int              `json:"count"`
}

// StatsResponse is returned by the stats endpoint.
type StatsResponse struct {
	storage.Stats
	GeneratedAt string `json:"generated_at"`
}
