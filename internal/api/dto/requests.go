package dto

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/eshaffer321/auditflow/internal/domain/sampling"
	"github.com/eshaffer321/auditflow/internal/domain/variance"
	"github.com/eshaffer321/auditflow/internal/infrastructure/storage"
)

var fiscalYearEndPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])-(0[1-9]|[12][0-9]|3[01])$`)

// ClientRequest is the body of POST /api/clients and PUT /api/clients/{id}.
type ClientRequest struct {
	Name          string `json:"name"`
	ContactName   string `json:"contact_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Industry      string `json:"industry"`
	FiscalYearEnd string `json:"fiscal_year_end"`
	Status        string `json:"status"`
	Notes         string `json:"notes"`
}

// Validate checks required fields and enum values.
func (r ClientRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	switch r.Status {
	case "", storage.ClientStatusActive, storage.ClientStatusInactive, storage.ClientStatusProspect:
	default:
		return fmt.Errorf("invalid status %q", r.Status)
	}
	if r.FiscalYearEnd != "" && !fiscalYearEndPattern.MatchString(r.FiscalYearEnd) {
		return errors.New("fiscal_year_end must be MM-DD")
	}
	if r.Email != "" && !strings.Contains(r.Email, "@") {
		return errors.New("email is invalid")
	}
	return nil
}

// Apply copies the request onto client.
func (r ClientRequest) Apply(client *storage.Client) {
	client.Name = strings.TrimSpace(r.Name)
	client.ContactName = r.ContactName
	client.Email = r.Email
	client.Phone = r.Phone
	client.Industry = r.Industry
	client.FiscalYearEnd = r.FiscalYearEnd
	client.Status = r.Status
	client.Notes = r.Notes
}

// TaskRequest is the body of POST /api/tasks and PUT /api/tasks/{id}.
type TaskRequest struct {
	ClientID    string                  `json:"client_id"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Status      string                  `json:"status"`
	Priority    string                  `json:"priority"`
	AssignedTo  string                  `json:"assigned_to"`
	DueDate     string                  `json:"due_date"` // YYYY-MM-DD, empty for none
	Checklist   []storage.ChecklistItem `json:"checklist"`
}

// Validate checks required fields, enum values and the due date.
func (r TaskRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	switch r.Status {
	case "", storage.TaskStatusTodo, storage.TaskStatusInProgress, storage.TaskStatusReview, storage.TaskStatusDone:
	default:
		return fmt.Errorf("invalid status %q", r.Status)
	}
	switch r.Priority {
	case "", storage.TaskPriorityLow, storage.TaskPriorityMedium, storage.TaskPriorityHigh:
	default:
		return fmt.Errorf("invalid priority %q", r.Priority)
	}
	if _, err := r.dueDate(); err != nil {
		return err
	}
	for _, item := range r.Checklist {
		if strings.TrimSpace(item.Text) == "" {
			return errors.New("checklist items need text")
		}
	}
	return nil
}

// Apply copies the request onto task. Call Validate first.
func (r TaskRequest) Apply(task *storage.Task) {
	task.ClientID = r.ClientID
	task.Title = strings.TrimSpace(r.Title)
	task.Description = r.Description
	task.Status = r.Status
	task.Priority = r.Priority
	task.AssignedTo = r.AssignedTo
	task.DueDate, _ = r.dueDate()
	task.Checklist = r.Checklist
}

func (r TaskRequest) dueDate() (*time.Time, error) {
	if r.DueDate == "" {
		return nil, nil
	}
	due, err := time.Parse(sampling.DateLayout, r.DueDate)
	if err != nil {
		return nil, errors.New("due_date must be YYYY-MM-DD")
	}
	return &due, nil
}

// ChecklistItemRequest is the body of PATCH /api/tasks/{id}/checklist/{itemID}.
type ChecklistItemRequest struct {
	Done bool `json:"done"`
}

// VarianceRequest is the body of POST /api/variance.
type VarianceRequest struct {
	ClientID       string                    `json:"client_id"`
	Name           string                    `json:"name"`
	ModeratePct    *float64                  `json:"moderate_pct"`
	SignificantPct *float64                  `json:"significant_pct"`
	Accounts       []variance.AccountBalance `json:"accounts"`
	Save           bool                      `json:"save"`
}

// Thresholds merges the request's overrides with defaults. Returns nil when
// neither threshold was given.
func (r VarianceRequest) Thresholds(defaults variance.Thresholds) *variance.Thresholds {
	if r.ModeratePct == nil && r.SignificantPct == nil {
		return nil
	}
	t := defaults
	if r.ModeratePct != nil {
		t.Moderate = *r.ModeratePct
	}
	if r.SignificantPct != nil {
		t.Significant = *r.SignificantPct
	}
	return &t
}

// ThresholdsRequest is the body of PUT /api/variance/{id}/thresholds.
// A missing threshold keeps the analysis's current value.
type ThresholdsRequest struct {
	ModeratePct    *float64 `json:"moderate_pct"`
	SignificantPct *float64 `json:"significant_pct"`
}

// Merge applies the overrides to current.
func (r ThresholdsRequest) Merge(current variance.Thresholds) variance.Thresholds {
	if r.ModeratePct != nil {
		current.Moderate = *r.ModeratePct
	}
	if r.SignificantPct != nil {
		current.Significant = *r.SignificantPct
	}
	return current
}

// SampleRequest is the body of POST /api/samples.
type SampleRequest struct {
	ClientID              string                     `json:"client_id"`
	Name                  string                     `json:"name"`
	Module                string                     `json:"module"`
	Strategy              string                     `json:"strategy"`
	Percentage            *float64                   `json:"percentage"`
	HighThreshold         *float64                   `json:"high_threshold"`
	MediumThreshold       *float64                   `json:"medium_threshold"`
	RelatedParties        []string                   `json:"related_parties"`
	IncludeRelatedParties bool                       `json:"include_related_parties"`
	Seed                  *uint64                    `json:"seed"`
	Transactions          []sampling.WireTransaction `json:"transactions"`
	Save                  bool                       `json:"save"`
}

// Params resolves the strategy and merges overrides with the defaults
// returned by defaults for that strategy.
func (r SampleRequest) Params(defaults func(sampling.Strategy) sampling.Params) (sampling.Params, error) {
	strategy, err := sampling.ParseStrategy(r.Strategy)
	if err != nil {
		return sampling.Params{}, err
	}

	p := defaults(strategy)
	if r.Percentage != nil {
		p.Percentage = *r.Percentage
	}
	if r.HighThreshold != nil {
		p.HighThreshold = *r.HighThreshold
	}
	if r.MediumThreshold != nil {
		p.MediumThreshold = *r.MediumThreshold
	}
	p.RelatedParties = r.RelatedParties
	p.IncludeRelatedParties = r.IncludeRelatedParties
	return p, nil
}

// Population converts the transactions. Transactions without their own
// module take the request's module.
func (r SampleRequest) Population(module sampling.ModuleKind) ([]sampling.Transaction, error) {
	out := make([]sampling.Transaction, 0, len(r.Transactions))
	for _, w := range r.Transactions {
		t, err := w.Transaction(module)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ModuleKind parses the module, defaulting to purchase.
func (r SampleRequest) ModuleKind() (sampling.ModuleKind, error) {
	if r.Module == "" {
		return sampling.ModulePurchase, nil
	}
	return sampling.ParseModuleKind(r.Module)
}
