package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/eshaffer321/auditflow/internal/domain/sampling"
)

// Storage provides SQLite database access for engagement records.
// It implements the Repository interface.
type Storage struct {
	db     *sql.DB
	logger *slog.Logger
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	return NewStorageWithLogger(dbPath, slog.Default())
}

// NewStorageWithLogger creates a storage instance that reports migrations to logger
func NewStorageWithLogger(dbPath string, logger *slog.Logger) (*Storage, error) {
	db, err := sql.Open("sqlite3", withForeignKeys(dbPath))
	if err != nil {
		return nil, err
	}

	// Each in-memory connection is a separate database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// The DSN flag applies to every pooled connection; this verifies it took
	var fkEnabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil || fkEnabled != 1 {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %v", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	s := &Storage{db: db, logger: logger}

	// Run all pending migrations
	if err := s.runMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// ================================================================
// CLIENTS
// ================================================================

// SaveClient inserts or updates a client
func (s *Storage) SaveClient(client *Client) error {
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

	// ON CONFLICT keeps the row so dependent tasks survive an update
	query := `
	INSERT INTO clients
	(id, name, contact_name, email, phone, industry, fiscal_year_end, status, notes, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		contact_name = excluded.contact_name,
		email = excluded.email,
		phone = excluded.phone,
		industry = excluded.industry,
		fiscal_year_end = excluded.fiscal_year_end,
		status = excluded.status,
		notes = excluded.notes,
		updated_at = excluded.updated_at
	`

	_, err := s.db.Exec(query,
		client.ID,
		client.Name,
		client.ContactName,
		client.Email,
		client.Phone,
		client.Industry,
		client.FiscalYearEnd,
		client.Status,
		client.Notes,
		client.CreatedAt,
		client.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}
	return nil
}

const clientColumns = `id, name, contact_name, email, phone, industry, fiscal_year_end, status, notes, created_at, updated_at`

// GetClient retrieves a client by ID
func (s *Storage) GetClient(id string) (*Client, error) {
	row := s.db.QueryRow(`SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)

	client, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

// ListClients returns clients matching filters, ordered by name
func (s *Storage) ListClients(filters ClientFilters) ([]Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE 1=1`
	args := []interface{}{}

	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}
	if filters.Search != "" {
		query += " AND name LIKE ?"
		args = append(args, "%"+filters.Search+"%")
	}

	query += " ORDER BY name COLLATE NOCASE LIMIT ? OFFSET ?"
	args = append(args, normalizeLimit(filters.Limit), filters.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	clients := []Client{}
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *client)
	}
	return clients, rows.Err()
}

// DeleteClient removes a client. Tasks cascade via the foreign key; analyses
// and sample runs have their client_id set to NULL.
func (s *Storage) DeleteClient(id string) error {
	return s.deleteByID("clients", id)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClient(row rowScanner) (*Client, error) {
	c := &Client{}
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.ContactName,
		&c.Email,
		&c.Phone,
		&c.Industry,
		&c.FiscalYearEnd,
		&c.Status,
		&c.Notes,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ================================================================
// TASKS
// ================================================================

// SaveTask inserts or updates a task
func (s *Storage) SaveTask(task *Task) error {
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

	checklistJSON, err := json.Marshal(checklistOrEmpty(task.Checklist))
	if err != nil {
		return fmt.Errorf("failed to encode checklist: %w", err)
	}

	var dueDate interface{}
	if task.DueDate != nil {
		dueDate = task.DueDate.UTC()
	}

	query := `
	INSERT INTO tasks
	(id, client_id, title, description, status, priority, assigned_to, due_date, checklist_json, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		client_id = excluded.client_id,
		title = excluded.title,
		description = excluded.description,
		status = excluded.status,
		priority = excluded.priority,
		assigned_to = excluded.assigned_to,
		due_date = excluded.due_date,
		checklist_json = excluded.checklist_json,
		updated_at = excluded.updated_at
	`

	_, err = s.db.Exec(query,
		task.ID,
		nullString(task.ClientID),
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.AssignedTo,
		dueDate,
		string(checklistJSON),
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

const taskColumns = `id, client_id, title, description, status, priority, assigned_to, due_date, checklist_json, created_at, updated_at`

// GetTask retrieves a task by ID
func (s *Storage) GetTask(id string) (*Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns tasks matching filters, soonest due first
func (s *Storage) ListTasks(filters TaskFilters) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	args := []interface{}{}

	if filters.ClientID != "" {
		query += " AND client_id = ?"
		args = append(args, filters.ClientID)
	}
	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}
	if filters.AssignedTo != "" {
		query += " AND assigned_to = ?"
		args = append(args, filters.AssignedTo)
	}

	query += " ORDER BY due_date IS NULL, due_date, created_at LIMIT ? OFFSET ?"
	args = append(args, normalizeLimit(filters.Limit), filters.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	tasks := []Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// DeleteTask removes a task
func (s *Storage) DeleteTask(id string) error {
	return s.deleteByID("tasks", id)
}

// SetChecklistItem marks one checklist item and saves the task
func (s *Storage) SetChecklistItem(taskID, itemID string, done bool) (*Task, error) {
	task, err := s.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil || !setChecklistItem(task, itemID, done) {
		return nil, ErrNotFound
	}

	if err := s.SaveTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

func scanTask(row rowScanner) (*Task, error) {
	t := &Task{}
	var clientID sql.NullString
	var dueDate sql.NullTime
	var checklistJSON string

	err := row.Scan(
		&t.ID,
		&clientID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.AssignedTo,
		&dueDate,
		&checklistJSON,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.ClientID = clientID.String
	if dueDate.Valid {
		due := dueDate.Time
		t.DueDate = &due
	}
	if err := json.Unmarshal([]byte(checklistJSON), &t.Checklist); err != nil {
		return nil, fmt.Errorf("task %s: corrupt checklist: %w", t.ID, err)
	}
	t.Checklist = checklistOrEmpty(t.Checklist)
	return t, nil
}

// ================================================================
// VARIANCE ANALYSES
// ================================================================

// SaveVarianceAnalysis stores an analysis. Records and summary are kept as JSON.
func (s *Storage) SaveVarianceAnalysis(analysis *VarianceAnalysis) error {
	if analysis.ID == "" {
		analysis.ID = uuid.NewString()
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now().UTC()
	}

	recordsJSON, err := json.Marshal(analysis.Records)
	if err != nil {
		return fmt.Errorf("failed to encode variance records: %w", err)
	}
	summaryJSON, err := json.Marshal(analysis.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode variance summary: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO variance_analyses
	(id, client_id, name, moderate_pct, significant_pct, account_count,
	 significant_count, moderate_count, records_json, summary_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(query,
		analysis.ID,
		nullString(analysis.ClientID),
		analysis.Name,
		analysis.Thresholds.Moderate,
		analysis.Thresholds.Significant,
		analysis.Summary.AccountCount,
		analysis.Summary.SignificantCount,
		analysis.Summary.ModerateCount,
		string(recordsJSON),
		string(summaryJSON),
		analysis.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save variance analysis: %w", err)
	}
	return nil
}

const analysisColumns = `id, client_id, name, moderate_pct, significant_pct, records_json, summary_json, created_at`

// GetVarianceAnalysis retrieves an analysis by ID
func (s *Storage) GetVarianceAnalysis(id string) (*VarianceAnalysis, error) {
	row := s.db.QueryRow(`SELECT `+analysisColumns+` FROM variance_analyses WHERE id = ?`, id)

	analysis, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

// ListVarianceAnalyses returns analyses newest first
func (s *Storage) ListVarianceAnalyses(clientID string, limit int) ([]VarianceAnalysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM variance_analyses`
	args := []interface{}{}
	if clientID != "" {
		query += " WHERE client_id = ?"
		args = append(args, clientID)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, normalizeLimit(limit))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	analyses := []VarianceAnalysis{}
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *analysis)
	}
	return analyses, rows.Err()
}

func scanAnalysis(row rowScanner) (*VarianceAnalysis, error) {
	a := &VarianceAnalysis{}
	var clientID sql.NullString
	var recordsJSON, summaryJSON string

	err := row.Scan(
		&a.ID,
		&clientID,
		&a.Name,
		&a.Thresholds.Moderate,
		&a.Thresholds.Significant,
		&recordsJSON,
		&summaryJSON,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.ClientID = clientID.String
	if err := json.Unmarshal([]byte(recordsJSON), &a.Records); err != nil {
		return nil, fmt.Errorf("analysis %s: corrupt records: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(summaryJSON), &a.Summary); err != nil {
		return nil, fmt.Errorf("analysis %s: corrupt summary: %w", a.ID, err)
	}
	return a, nil
}

// ================================================================
// SAMPLE RUNS
// ================================================================

// SaveSampleRun stores a sample selection with its parameters and result
func (s *Storage) SaveSampleRun(run *SampleRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("failed to encode sample params: %w", err)
	}
	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("failed to encode sample result: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO sample_runs
	(id, client_id, name, module, strategy, seed, population_size, sample_size,
	 params_json, result_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	// The driver rejects uint64 values above MaxInt64, so the seed is stored
	// as its int64 bit pattern.
	_, err = s.db.Exec(query,
		run.ID,
		nullString(run.ClientID),
		run.Name,
		string(run.Module),
		string(run.Params.Strategy),
		int64(run.Seed),
		run.Result.PopulationSize,
		len(run.Result.Sample),
		string(paramsJSON),
		string(resultJSON),
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save sample run: %w", err)
	}
	return nil
}

const sampleColumns = `id, client_id, name, module, seed, params_json, result_json, created_at`

// GetSampleRun retrieves a sample run by ID
func (s *Storage) GetSampleRun(id string) (*SampleRun, error) {
	row := s.db.QueryRow(`SELECT `+sampleColumns+` FROM sample_runs WHERE id = ?`, id)

	run, err := scanSampleRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListSampleRuns returns sample runs newest first
func (s *Storage) ListSampleRuns(clientID string, limit int) ([]SampleRun, error) {
	query := `SELECT ` + sampleColumns + ` FROM sample_runs`
	args := []interface{}{}
	if clientID != "" {
		query += " WHERE client_id = ?"
		args = append(args, clientID)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, normalizeLimit(limit))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	runs := []SampleRun{}
	for rows.Next() {
		run, err := scanSampleRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanSampleRun(row rowScanner) (*SampleRun, error) {
	r := &SampleRun{}
	var clientID sql.NullString
	var module string
	var seed int64
	var paramsJSON, resultJSON string

	err := row.Scan(
		&r.ID,
		&clientID,
		&r.Name,
		&module,
		&seed,
		&paramsJSON,
		&resultJSON,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.ClientID = clientID.String
	r.Module = sampling.ModuleKind(module)
	r.Seed = uint64(seed)
	if err := json.Unmarshal([]byte(paramsJSON), &r.Params); err != nil {
		return nil, fmt.Errorf("sample run %s: corrupt params: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(resultJSON), &r.Result); err != nil {
		return nil, fmt.Errorf("sample run %s: corrupt result: %w", r.ID, err)
	}
	return r, nil
}

// ================================================================
// STATS
// ================================================================

// GetStats returns aggregate counts across all tables
func (s *Storage) GetStats() (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRow(`
	SELECT
		COUNT(*),
		COUNT(CASE WHEN status = 'active' THEN 1 END)
	FROM clients
	`).Scan(&stats.ClientCount, &stats.ActiveClientCount)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRow(`
	SELECT
		COUNT(*),
		COUNT(CASE WHEN status != 'done' THEN 1 END)
	FROM tasks
	`).Scan(&stats.TaskCount, &stats.OpenTaskCount)
	if err != nil {
		return nil, err
	}

	overdue, err := s.countOverdueTasks(time.Now())
	if err != nil {
		return nil, err
	}
	stats.OverdueTaskCount = overdue

	err = s.db.QueryRow(`
	SELECT
		COUNT(*),
		COALESCE(SUM(significant_count + moderate_count), 0)
	FROM variance_analyses
	`).Scan(&stats.AnalysisCount, &stats.FlaggedAccounts)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRow(`
	SELECT
		COUNT(*),
		COALESCE(SUM(sample_size), 0)
	FROM sample_runs
	`).Scan(&stats.SampleRunCount, &stats.SampledTransaction)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// countOverdueTasks compares due dates in Go since SQLite stores them as text
func (s *Storage) countOverdueTasks(now time.Time) (int, error) {
	rows, err := s.db.Query(`SELECT status, due_date FROM tasks WHERE status != 'done' AND due_date IS NOT NULL`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()

	count := 0
	for rows.Next() {
		var t Task
		var due time.Time
		if err := rows.Scan(&t.Status, &due); err != nil {
			return 0, err
		}
		t.DueDate = &due
		if t.IsOverdue(now) {
			count++
		}
	}
	return count, rows.Err()
}

// ================================================================
// HELPERS
// ================================================================

func (s *Storage) deleteByID(table, id string) error {
	res, err := s.db.Exec(`DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// withForeignKeys adds the go-sqlite3 flag enabling foreign keys per connection
func withForeignKeys(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath + "&_foreign_keys=on"
	}
	return dbPath + "?_foreign_keys=on"
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func assignChecklistIDs(items []ChecklistItem) {
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
	}
}

func checklistOrEmpty(items []ChecklistItem) []ChecklistItem {
	if items == nil {
		return []ChecklistItem{}
	}
	return items
}

// setChecklistItem updates the item in place, reporting whether it exists
func setChecklistItem(task *Task, itemID string, done bool) bool {
	for i := range task.Checklist {
		if task.Checklist[i].ID == itemID {
			task.Checklist[i].Done = done
			return true
		}
	}
	return false
}
