package storage

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps, making tests fast and isolated.
type MockRepository struct {
	mu       sync.Mutex
	clients  map[string]Client
	tasks    map[string]Task
	analyses map[string]VarianceAnalysis
	samples  map[string]SampleRun

	// Hooks for test assertions
	SaveClientCalled    bool
	SaveTaskCalled      bool
	SaveAnalysisCalled  bool
	LastSavedAnalysis   *VarianceAnalysis
	SaveSampleRunCalled bool
	LastSavedSampleRun  *SampleRun

	// Error injection for testing error paths
	SaveClientErr    error
	GetClientErr     error
	ListClientsErr   error
	SaveTaskErr      error
	GetTaskErr       error
	ListTasksErr     error
	SaveAnalysisErr  error
	GetAnalysisErr   error
	ListAnalysesErr  error
	SaveSampleRunErr error
	GetSampleRunErr  error
	ListSamplesErr   error
	GetStatsErr      error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		clients:  make(map[string]Client),
		tasks:    make(map[string]Task),
		analyses: make(map[string]VarianceAnalysis),
		samples:  make(map[string]SampleRun),
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// SaveClient stores a copy of client
func (m *MockRepository) SaveClient(client *Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveClientCalled = true
	if m.SaveClientErr != nil {
		return m.SaveClientErr
	}

	now := time.Now().UTC()
	if client.ID == "" {
		client.ID = uuid.NewString()
	}
	if client.CreatedAt.IsZero() {
		client.CreatedAt = now
	}
	if client.Status == "" {
		client.Status = ClientStatusActive
	}
	client.UpdatedAt = now

	m.clients[client.ID] = *client
	return nil
}

// GetClient returns a copy of the stored client, or nil
func (m *MockRepository) GetClient(id string) (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetClientErr != nil {
		return nil, m.GetClientErr
	}
	client, ok := m.clients[id]
	if !ok {
		return nil, nil
	}
	return &client, nil
}

// ListClients filters and sorts clients by name
func (m *MockRepository) ListClients(filters ClientFilters) ([]Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListClientsErr != nil {
		return nil, m.ListClientsErr
	}

	search := strings.ToLower(filters.Search)
	out := []Client{}
	for _, c := range m.clients {
		if filters.Status != "" && c.Status != filters.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) {
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Client) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return page(out, filters.Offset, filters.Limit), nil
}

// DeleteClient removes a client and its tasks
func (m *MockRepository) DeleteClient(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[id]; !ok {
		return ErrNotFound
	}
	delete(m.clients, id)
	for taskID, task := range m.tasks {
		if task.ClientID == id {
			delete(m.tasks, taskID)
		}
	}
	for analysisID, a := range m.analyses {
		if a.ClientID == id {
			a.ClientID = ""
			m.analyses[analysisID] = a
		}
	}
	for runID, run := range m.samples {
		if run.ClientID == id {
			run.ClientID = ""
			m.samples[runID] = run
		}
	}
	return nil
}

// SaveTask stores a copy of task
func (m *MockRepository) SaveTask(task *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveTaskCalled = true
	if m.SaveTaskErr != nil {
		return m.SaveTaskErr
	}

	now := time.Now().UTC()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.Status == "" {
		task.Status = TaskStatusTodo
	}
	if task.Priority == "" {
		task.Priority = TaskPriorityMedium
	}
	task.UpdatedAt = now
	assignChecklistIDs(task.Checklist)
	task.Checklist = checklistOrEmpty(task.Checklist)

	stored := *task
	stored.Checklist = slices.Clone(task.Checklist)
	m.tasks[task.ID] = stored
	return nil
}

// GetTask returns a copy of the stored task, or nil
func (m *MockRepository) GetTask(id string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetTaskErr != nil {
		return nil, m.GetTaskErr
	}
	task, ok := m.tasks[id]
	if !ok {
		return nil, nil
	}
	task.Checklist = slices.Clone(task.Checklist)
	return &task, nil
}

// ListTasks filters tasks and orders them by due date, undated last
func (m *MockRepository) ListTasks(filters TaskFilters) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListTasksErr != nil {
		return nil, m.ListTasksErr
	}

	out := []Task{}
	for _, t := range m.tasks {
		if filters.ClientID != "" && t.ClientID != filters.ClientID {
			continue
		}
		if filters.Status != "" && t.Status != filters.Status {
			continue
		}
		if filters.AssignedTo != "" && t.AssignedTo != filters.AssignedTo {
			continue
		}
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b Task) int {
		switch {
		case a.DueDate == nil && b.DueDate != nil:
			return 1
		case a.DueDate != nil && b.DueDate == nil:
			return -1
		case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Compare(*b.DueDate)
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return page(out, filters.Offset, filters.Limit), nil
}

// DeleteTask removes a task
func (m *MockRepository) DeleteTask(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

// SetChecklistItem marks a checklist item on a stored task
func (m *MockRepository) SetChecklistItem(taskID, itemID string, done bool) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	task.Checklist = slices.Clone(task.Checklist)
	if !setChecklistItem(&task, itemID, done) {
		return nil, ErrNotFound
	}
	task.UpdatedAt = time.Now().UTC()
	m.tasks[taskID] = task

	out := task
	out.Checklist = slices.Clone(task.Checklist)
	return &out, nil
}

// SaveVarianceAnalysis stores a copy of analysis
func (m *MockRepository) SaveVarianceAnalysis(analysis *VarianceAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveAnalysisCalled = true
	m.LastSavedAnalysis = analysis
	if m.SaveAnalysisErr != nil {
		return m.SaveAnalysisErr
	}
	if analysis.ID == "" {
		analysis.ID = uuid.NewString()
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now().UTC()
	}
	stored := *analysis
	stored.Records = slices.Clone(analysis.Records)
	m.analyses[analysis.ID] = stored
	return nil
}

// GetVarianceAnalysis returns the stored analysis, or nil
func (m *MockRepository) GetVarianceAnalysis(id string) (*VarianceAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetAnalysisErr != nil {
		return nil, m.GetAnalysisErr
	}
	analysis, ok := m.analyses[id]
	if !ok {
		return nil, nil
	}
	return &analysis, nil
}

// ListVarianceAnalyses returns analyses newest first
func (m *MockRepository) ListVarianceAnalyses(clientID string, limit int) ([]VarianceAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListAnalysesErr != nil {
		return nil, m.ListAnalysesErr
	}

	out := []VarianceAnalysis{}
	for _, a := range m.analyses {
		if clientID == "" || a.ClientID == clientID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b VarianceAnalysis) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return page(out, 0, limit), nil
}

// SaveSampleRun stores a copy of run
func (m *MockRepository) SaveSampleRun(run *SampleRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveSampleRunCalled = true
	m.LastSavedSampleRun = run
	if m.SaveSampleRunErr != nil {
		return m.SaveSampleRunErr
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	m.samples[run.ID] = *run
	return nil
}

// GetSampleRun returns the stored run, or nil
func (m *MockRepository) GetSampleRun(id string) (*SampleRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetSampleRunErr != nil {
		return nil, m.GetSampleRunErr
	}
	run, ok := m.samples[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

// ListSampleRuns returns runs newest first
func (m *MockRepository) ListSampleRuns(clientID string, limit int) ([]SampleRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListSamplesErr != nil {
		return nil, m.ListSamplesErr
	}

	out := []SampleRun{}
	for _, r := range m.samples {
		if clientID == "" || r.ClientID == clientID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b SampleRun) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return page(out, 0, limit), nil
}

// GetStats computes statistics from the in-memory data
func (m *MockRepository) GetStats() (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetStatsErr != nil {
		return nil, m.GetStatsErr
	}

	now := time.Now()
	stats := &Stats{ClientCount: len(m.clients), TaskCount: len(m.tasks)}
	for _, c := range m.clients {
		if c.Status == ClientStatusActive {
			stats.ActiveClientCount++
		}
	}
	for _, t := range m.tasks {
		if t.Status != TaskStatusDone {
			stats.OpenTaskCount++
		}
		if t.IsOverdue(now) {
			stats.OverdueTaskCount++
		}
	}
	for _, a := range m.analyses {
		stats.AnalysisCount++
		stats.FlaggedAccounts += a.Summary.FlaggedCount()
	}
	for _, r := range m.samples {
		stats.SampleRunCount++
		stats.SampledTransaction += len(r.Result.Sample)
	}
	return stats, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[max(offset, 0):]
	return items[:min(len(items), normalizeLimit(limit))]
}
