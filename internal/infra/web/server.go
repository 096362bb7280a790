package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ai-task-orchestrator/internal/domain"
	"ai-task-orchestrator/internal/domain/model"
	"ai-task-orchestrator/internal/infra/ratelimit"
	"ai-task-orchestrator/internal/usecase"
)

type Server struct {
	planner     usecase.Planner
	executor    usecase.ChainExecutor
	router      usecase.Router
	ipLimiter   *ratelimit.Limiter
	userLimiter *ratelimit.Limiter
	jwtSecret   []byte
	log         *zerolog.Logger
}

func NewServer(
	planner usecase.Planner,
	executor usecase.ChainExecutor,
	router usecase.Router,
	ipLimiter, userLimiter *ratelimit.Limiter,
	jwtSecret string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		planner:     planner,
		executor:    executor,
		router:      router,
		ipLimiter:   ipLimiter,
		userLimiter: userLimiter,
		jwtSecret:   []byte(jwtSecret),
		log:         &l,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.jwtSecret))
		r.Use(RateLimitMiddleware(s.ipLimiter, s.userLimiter))

		r.Post("/orchestrate", s.handleOrchestrate)
		r.Post("/route", s.handleRoute)
		r.Get("/route", s.handleGetTask)
	})
	return r
}

type orchestrateRequest struct {
	Goal          string             `json:"goal"`
	Input         map[string]any     `json:"input,omitempty"`
	Files         []string           `json:"files,omitempty"`
	Preferences   *preferencesDTO    `json:"preferences,omitempty"`
	PreferredType string             `json:"preferredTaskType,omitempty"`
}

type preferencesDTO struct {
	Budget   string `json:"budget,omitempty"`
	Quality  string `json:"quality,omitempty"`
	Speed    string `json:"speed,omitempty"`
	Priority string `json:"priority,omitempty"`
}

type stepResultDTO struct {
	StepID  string         `json:"stepId"`
	TaskID  string         `json:"taskId,omitempty"`
	Status  string         `json:"status"`
	Result  map[string]any `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
	Skipped bool           `json:"skipped,omitempty"`
}

func (s *Server) handleOrchestrate(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	var req orchestrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	prefs := model.Preferences{}
	if req.Preferences != nil {
		prefs = model.Preferences{
			Budget:   req.Preferences.Budget,
			Quality:  req.Preferences.Quality,
			Speed:    req.Preferences.Speed,
			Priority: req.Preferences.Priority,
		}
	}

	plan, err := s.planner.Plan(r.Context(), usecase.PlanRequest{
		Goal:          req.Goal,
		Input:         req.Input,
		Files:         req.Files,
		Profile:       model.UserProfile{ID: userID, Tier: UserTier(r.Context())},
		Preferences:   prefs,
		PreferredType: model.TaskType(req.PreferredType),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	results, err := s.executor.Execute(r.Context(), userID, plan)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]stepResultDTO, 0, len(results))
	for _, res := range results {
		out = append(out, stepResultDTO{
			StepID:  res.StepID,
			TaskID:  res.TaskID,
			Status:  string(res.Status),
			Result:  res.Result,
			Error:   res.Error,
			Skipped: res.Skipped,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"chainId":    plan.ID,
		"stepsCount": len(plan.Steps),
		"results":    out,
	})
}

type routeRequest struct {
	TaskType string         `json:"taskType"`
	Priority string         `json:"priority,omitempty"`
	Model    string         `json:"model,omitempty"`
	Input    map[string]any `json:"input,omitempty"`
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	task, err := s.router.Route(r.Context(), userID, usecase.TaskRequest{
		Type:     model.TaskType(req.TaskType),
		Model:    req.Model,
		Priority: model.ParsePriority(req.Priority),
		Input:    req.Input,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"taskId":        task.ID,
		"status":        string(task.Status),
		"estimatedTime": s.router.EstimateSeconds(task.Type),
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	taskID := r.URL.Query().Get("taskId")
	if taskID == "" {
		http.Error(w, "taskId is required", http.StatusBadRequest)
		return
	}

	task, err := s.router.Get(r.Context(), taskID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if task.UserID != userID {
		s.writeError(w, domain.ErrPermissionDenied)
		return
	}

	resp := map[string]any{
		"taskId":    task.ID,
		"status":    string(task.Status),
		"type":      string(task.Type),
		"progress":  task.Progress,
		"createdAt": task.CreatedAt.Format(time.RFC3339),
	}
	if task.Model != "" {
		resp["model"] = task.Model
	}
	if task.ResultData != nil {
		resp["result"] = task.ResultData
	}
	if task.LastError != "" {
		resp["error"] = task.LastError
	}
	if task.CompletedAt != nil {
		resp["completedAt"] = task.CompletedAt.Format(time.RFC3339)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("response encode failed")
	}
}

// writeError maps domain sentinels onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrUnknownTaskType),
		errors.Is(err, domain.ErrInvalidPlan):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientCredits):
		status = http.StatusPaymentRequired
	case errors.Is(err, domain.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrProviderUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrQueueFull):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrTimeout):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
		http.Error(w, "Internal Server Error", status)
		return
	}
	http.Error(w, err.Error(), status)
}
