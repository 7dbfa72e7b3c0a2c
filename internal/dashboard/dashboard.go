// Package dashboard serves the read-only JSON feed behind the audit
// dashboard UI: headline stats, recent analyses and samples, overdue work.
package dashboard

import (
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/auditflow/internal/infrastructure/storage"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 100
)

// Server exposes dashboard endpoints over a storage.Repository.
type Server struct {
	repo   storage.Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewServer creates a dashboard server.
func NewServer(repo storage.Repository, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{repo: repo, logger: logger, now: time.Now}
}

// StatsResponse is the headline numbers card.
type StatsResponse struct {
	storage.Stats
	FlaggedRate float64 `json:"flagged_rate"` // flagged accounts per analysis
	GeneratedAt string  `json:"generated_at"`
}

// AnalysisSummary is one row of the recent analyses table.
type AnalysisSummary struct {
	ID               string  `json:"id"`
	ClientID         string  `json:"client_id,omitempty"`
	Name             string  `json:"name"`
	AccountCount     int     `json:"account_count"`
	SignificantCount int     `json:"significant_count"`
	ModerateCount    int     `json:"moderate_count"`
	TotalVariance    float64 `json:"total_variance"`
	CreatedAt        string  `json:"created_at"`
}

// SampleSummary is one row of the recent samples table.
type SampleSummary struct {
	ID             string  `json:"id"`
	ClientID       string  `json:"client_id,omitempty"`
	Name           string  `json:"name"`
	Module         string  `json:"module"`
	Strategy       string  `json:"strategy"`
	PopulationSize int     `json:"population_size"`
	SampleSize     int     `json:"sample_size"`
	Coverage       float64 `json:"coverage"` // sampled share of the population, in percent
	CreatedAt      string  `json:"created_at"`
}

// OverdueTask is one row of the overdue work list.
type OverdueTask struct {
	ID         string `json:"id"`
	ClientID   string `json:"client_id,omitempty"`
	Title      string `json:"title"`
	AssignedTo string `json:"assigned_to,omitempty"`
	Priority   string `json:"priority"`
	DueDate    string `json:"due_date"`
	DaysLate   int    `json:"days_late"`
}

// Router builds the gin engine. Pass the allowed CORS origins.
func (s *Server) Router(allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/api/health"},
	}))

	router.Use(cors.New(corsConfig(allowedOrigins)))

	api := router.Group("/api")
	{
		api.GET("/health", s.getHealth)
		api.GET("/stats", s.getStats)
		api.GET("/analyses/recent", s.getRecentAnalyses)
		api.GET("/samples/recent", s.getRecentSamples)
		api.GET("/tasks/overdue", s.getOverdueTasks)
	}

	return router
}

func (s *Server) getHealth(c *gin.Context) {
	if _, err := s.repo.GetStats(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) getStats(c *gin.Context) {
	stats, err := s.repo.GetStats()
	if err != nil {
		s.logger.Error("failed to fetch stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	response := StatsResponse{
		Stats:       *stats,
		GeneratedAt: s.now().UTC().Format(time.RFC3339),
	}
	if stats.AnalysisCount > 0 {
		response.FlaggedRate = float64(stats.FlaggedAccounts) / float64(stats.AnalysisCount)
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) getRecentAnalyses(c *gin.Context) {
	analyses, err := s.repo.ListVarianceAnalyses(c.Query("client_id"), recentLimit(c))
	if err != nil {
		s.logger.Error("failed to fetch recent analyses", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recent analyses"})
		return
	}

	rows := make([]AnalysisSummary, 0, len(analyses))
	for _, a := range analyses {
		rows = append(rows, AnalysisSummary{
			ID:               a.ID,
			ClientID:         a.ClientID,
			Name:             a.Name,
			AccountCount:     a.Summary.AccountCount,
			SignificantCount: a.Summary.SignificantCount,
			ModerateCount:    a.Summary.ModerateCount,
			TotalVariance:    a.Summary.TotalVariance,
			CreatedAt:        a.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) getRecentSamples(c *gin.Context) {
	runs, err := s.repo.ListSampleRuns(c.Query("client_id"), recentLimit(c))
	if err != nil {
		s.logger.Error("failed to fetch recent samples", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recent samples"})
		return
	}

	rows := make([]SampleSummary, 0, len(runs))
	for _, r := range runs {
		row := SampleSummary{
			ID:             r.ID,
			ClientID:       r.ClientID,
			Name:           r.Name,
			Module:         string(r.Module),
			Strategy:       string(r.Result.Strategy),
			PopulationSize: r.Result.PopulationSize,
			SampleSize:     len(r.Result.Sample),
			CreatedAt:      r.CreatedAt.Format(time.RFC3339),
		}
		if row.PopulationSize > 0 {
			row.Coverage = float64(row.SampleSize) / float64(row.PopulationSize) * 100
		}
		rows = append(rows, row)
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) getOverdueTasks(c *gin.Context) {
	tasks, err := s.repo.ListTasks(storage.TaskFilters{ClientID: c.Query("client_id"), Limit: 1000})
	if err != nil {
		s.logger.Error("failed to fetch tasks", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}

	now := s.now()
	rows := make([]OverdueTask, 0)
	for _, t := range tasks {
		if !t.IsOverdue(now) {
			continue
		}
		rows = append(rows, OverdueTask{
			ID:         t.ID,
			ClientID:   t.ClientID,
			Title:      t.Title,
			AssignedTo: t.AssignedTo,
			Priority:   t.Priority,
			DueDate:    t.DueDate.Format("2006-01-02"),
			DaysLate:   int(now.Sub(*t.DueDate).Hours() / 24),
		})
	}
	c.JSON(http.StatusOK, rows)
}

// corsConfig allows the given origins. "*" allows any origin without
// credentials; an empty list falls back to the local dev servers.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	if len(origins) == 0 {
		origins = DefaultOrigins()
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// DefaultOrigins are the local dashboard dev servers.
func DefaultOrigins() []string {
	return []string{"http://localhost:3000", "http://localhost:5173", "http://localhost:8080"}
}

func recentLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultRecentLimit)))
	if err != nil || limit <= 0 {
		return defaultRecentLimit
	}
	return min(limit, maxRecentLimit)
}
