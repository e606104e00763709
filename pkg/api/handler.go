// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wishub-ai/skillhub/pkg/config"
	"github.com/wishub-ai/skillhub/pkg/database"
	"github.com/wishub-ai/skillhub/pkg/database/model"
	"github.com/wishub-ai/skillhub/pkg/discovery"
	"github.com/wishub-ai/skillhub/pkg/errors"
	"github.com/wishub-ai/skillhub/pkg/registry"
	"github.com/wishub-ai/skillhub/pkg/scheduler"
	"github.com/wishub-ai/skillhub/pkg/workflow"
)

// healthCheckTimeout bounds each dependency probe.
const healthCheckTimeout = 2 * time.Second

// RegistryService is the registry surface the handlers use.
type RegistryService interface {
	Register(ctx context.Context, req *registry.RegisterRequest) (*model.Skill, error)
	Resolve(ctx context.Context, skillID, version string) (*model.Skill, error)
	Versions(ctx context.Context, skillID string) ([]*model.Skill, error)
	CodeURL(ctx context.Context, skill *model.Skill) (string, error)
	Delete(ctx context.Context, skillID string) error
}

// InvocationService dispatches single-skill executions.
type InvocationService interface {
	Invoke(ctx context.Context, req scheduler.InvokeRequest) (scheduler.Snapshot, error)
	Status(ctx context.Context, executionID string) (scheduler.Snapshot, error)
}

// WorkflowService runs and reports skill workflow graphs.
type WorkflowService interface {
	Run(ctx context.Context, def *workflow.Definition) (*workflow.Result, error)
	Status(ctx context.Context, executionID string) (*workflow.Result, error)
}

// DiscoveryService serves the search and catalog endpoints.
type DiscoveryService interface {
	Search(ctx context.Context, req discovery.Request) (*discovery.Result, error)
	Categories(ctx context.Context) ([]database.CategoryCount, error)
	Languages(ctx context.Context) ([]string, error)
}

// HealthChecker probes one backing dependency.
type HealthChecker func(ctx context.Context) error

// Handler handles API requests for the skill protocol server
type Handler struct {
	cfg       *config.Config
	registry  RegistryService
	invoker   InvocationService
	workflows WorkflowService
	discovery DiscoveryService
	health    map[string]HealthChecker
}

// NewHandler creates a new Handler
func NewHandler(
	cfg *config.Config,
	registrySvc RegistryService,
	invokerSvc InvocationService,
	workflowSvc WorkflowService,
	discoverySvc DiscoveryService,
	health map[string]HealthChecker,
) *Handler {
	return &Handler{
		cfg:       cfg,
		registry:  registrySvc,
		invoker:   invokerSvc,
		workflows: workflowSvc,
		discovery: discoverySvc,
		health:    health,
	}
}

// RegisterRoutes registers API routes
func RegisterRoutes(router *gin.Engine, h *Handler) {
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	prefix := h.cfg.Server.Prefix
	if prefix == "" {
		prefix = "/api/v1"
	}

	auth := router.Group(prefix)
	auth.Use(AuthMiddleware(h.cfg.Auth))
	{
		auth.POST("/skill/register", h.RegisterSkill)
		auth.POST("/skill/invoke", h.InvokeSkill)
		auth.GET("/skill/status/:execution_id", h.ExecutionStatus)

		auth.GET("/skill/discovery", h.DiscoverSkills)
		auth.GET("/skill/categories", h.Categories)
		auth.GET("/skill/languages", h.Languages)

		auth.GET("/skill/:skill_id", h.GetSkill)
		auth.DELETE("/skill/:skill_id", h.DeleteSkill)

		auth.POST("/skill/orchestrate", h.Orchestrate)
		auth.GET("/skill/workflow/:execution_id", h.WorkflowStatus)
	}
}

// --- Request/Response Types ---

// InvokeSkillRequest represents a request to execute one skill
type InvokeSkillRequest struct {
	SkillID        string                 `json:"skill_id" binding:"required"`
	Version        string                 `json:"version"`
	Inputs         map[string]interface{} `json:"inputs"`
	TimeoutSeconds int                    `json:"timeout_seconds"`
	Async          bool                   `json:"async"`
}

// --- Handlers ---

// Health reports service liveness and the state of each backing
// dependency. Degraded dependencies yield 503 so load balancers can
// rotate the instance out.
func (h *Handler) Health(c *gin.Context) {
	dependencies := make(map[string]string, len(h.health))
	healthy := true

	for name, check := range h.health {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		if err := check(ctx); err != nil {
			dependencies[name] = err.Error()
			healthy = false
		} else {
			dependencies[name] = "ok"
		}
		cancel()
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, gin.H{
		"status":       status,
		"dependencies": dependencies,
	})
}

// RegisterSkill stores a new skill version.
func (h *Handler) RegisterSkill(c *gin.Context) {
	var req registry.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	skill, err := h.registry.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccessMessage(c, "skill registered", gin.H{
		"skill_id":   skill.SkillID,
		"skill_name": skill.SkillName,
		"version":    skill.Version,
		"created_at": skill.CreatedAt,
	})
}

// InvokeSkill executes one skill. Synchronous calls block and map the
// terminal state onto the HTTP status; asynchronous calls return the
// execution id immediately.
func (h *Handler) InvokeSkill(c *gin.Context) {
	var req InvokeSkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	snap, err := h.invoker.Invoke(c.Request.Context(), scheduler.InvokeRequest{
		SkillID:        req.SkillID,
		Version:        req.Version,
		Inputs:         req.Inputs,
		TimeoutSeconds: req.TimeoutSeconds,
		Async:          req.Async,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if req.Async {
		respondSuccess(c, gin.H{
			"execution_id": snap.ExecutionID,
			"state":        snap.State,
			"status_url":   h.statusURL(snap.ExecutionID),
		})
		return
	}

	h.respondTerminal(c, snap)
}

// respondTerminal maps a finished synchronous execution onto the wire.
func (h *Handler) respondTerminal(c *gin.Context, snap scheduler.Snapshot) {
	if snap.State == model.ExecutionStateCompleted {
		respondSuccess(c, snap)
		return
	}

	code := errorCodeForState(snap)
	detail := fmt.Sprintf("execution %s %s", snap.ExecutionID, snap.State)
	if snap.Error != nil && snap.Error.Detail != "" {
		detail = fmt.Sprintf("%s: %s", detail, snap.Error.Detail)
	}
	respondErrorCode(c, code, "skill execution did not complete", detail)
}

func errorCodeForState(snap scheduler.Snapshot) string {
	if snap.State == model.ExecutionStateTimedOut {
		return errors.CodeExecutionTimeout
	}
	if snap.Error != nil && snap.Error.Code != "" {
		return snap.Error.Code
	}
	return errors.CodeExecutionFailed
}

// ExecutionStatus reports an execution by id. Workflow executions
// carry the exec_wf_ prefix and are served from the workflow store.
func (h *Handler) ExecutionStatus(c *gin.Context) {
	executionID := c.Param("execution_id")

	if strings.HasPrefix(executionID, scheduler.WorkflowExecutionIDPrefix) {
		result, err := h.workflows.Status(c.Request.Context(), executionID)
		if err != nil {
			respondError(c, err)
			return
		}
		respondSuccess(c, result)
		return
	}

	snap, err := h.invoker.Status(c.Request.Context(), executionID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, snap)
}

// DiscoverSkills searches the catalog.
func (h *Handler) DiscoverSkills(c *gin.Context) {
	req := discovery.Request{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Language: c.Query("language"),
		SortBy:   c.Query("sort"),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "page_size"),
	}

	result, err := h.discovery.Search(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, result)
}

// Categories lists the categories in use with their skill counts.
func (h *Handler) Categories(c *gin.Context) {
	categories, err := h.discovery.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, gin.H{"categories": categories})
}

// Languages lists sandbox-supported languages and those in use.
func (h *Handler) Languages(c *gin.Context) {
	inUse, err := h.discovery.Languages(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, gin.H{
		"supported": model.SupportedLanguages(),
		"in_use":    inUse,
	})
}

// GetSkill returns one skill version (latest when ?version is absent)
// plus the full version list.
func (h *Handler) GetSkill(c *gin.Context) {
	skillID := c.Param("skill_id")

	skill, err := h.registry.Resolve(c.Request.Context(), skillID, c.Query("version"))
	if err != nil {
		respondError(c, err)
		return
	}

	rows, err := h.registry.Versions(c.Request.Context(), skillID)
	if err != nil {
		respondError(c, err)
		return
	}
	versions := make([]string, 0, len(rows))
	for _, row := range rows {
		versions = append(versions, row.Version)
	}

	data := gin.H{
		"skill":    skill,
		"versions": versions,
	}
	// Best-effort: the skill detail stays useful when the blob store
	// cannot sign a download URL.
	if url, err := h.registry.CodeURL(c.Request.Context(), skill); err == nil && url != "" {
		data["code_url"] = url
	}
	respondSuccess(c, data)
}

// DeleteSkill removes every version of a skill. Deleting an unknown
// skill succeeds: the end state is the same.
func (h *Handler) DeleteSkill(c *gin.Context) {
	skillID := c.Param("skill_id")
	if err := h.registry.Delete(c.Request.Context(), skillID); err != nil {
		respondError(c, err)
		return
	}
	respondSuccessMessage(c, "skill deleted", gin.H{"skill_id": skillID})
}

// Orchestrate validates and runs a workflow graph, blocking until the
// run is terminal. Graph-level validation failures map onto the HTTP
// status; node failures are reported inside the result.
func (h *Handler) Orchestrate(c *gin.Context) {
	var def workflow.Definition
	if err := c.ShouldBindJSON(&def); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	result, err := h.workflows.Run(c.Request.Context(), &def)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, result)
}

// WorkflowStatus reports a persisted workflow run by id.
func (h *Handler) WorkflowStatus(c *gin.Context) {
	result, err := h.workflows.Status(c.Request.Context(), c.Param("execution_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, result)
}

func (h *Handler) statusURL(executionID string) string {
	prefix := h.cfg.Server.Prefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	return prefix + "/skill/status/" + executionID
}

func queryInt(c *gin.Context, name string) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return value
}
