// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wishub-ai/skillhub/pkg/api"
	"github.com/wishub-ai/skillhub/pkg/config"
	"github.com/wishub-ai/skillhub/pkg/database"
	"github.com/wishub-ai/skillhub/pkg/discovery"
	"github.com/wishub-ai/skillhub/pkg/embedding"
	"github.com/wishub-ai/skillhub/pkg/logger/conf"
	"github.com/wishub-ai/skillhub/pkg/logger/log"
	"github.com/wishub-ai/skillhub/pkg/registry"
	"github.com/wishub-ai/skillhub/pkg/sandbox"
	"github.com/wishub-ai/skillhub/pkg/scheduler"
	"github.com/wishub-ai/skillhub/pkg/search"
	"github.com/wishub-ai/skillhub/pkg/storage"
	"github.com/wishub-ai/skillhub/pkg/workflow"
)

// Server represents the skill protocol server
type Server struct {
	config     *config.Config
	db         *gorm.DB
	httpServer *http.Server
	scheduler  *scheduler.Scheduler
	handler    *api.Handler
}

// NewServer loads configuration and wires every subsystem.
func NewServer() (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := initLogger(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	skillFacade := database.NewSkillFacade(db)
	execFacade := database.NewExecutionFacade(db)
	workflowFacade := database.NewWorkflowFacade(db)

	store, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	// The discovery index is optional; a failed connection degrades
	// search to the database path rather than blocking startup.
	var index search.Index
	if cfg.Search.Enabled {
		osIndex, err := search.NewOpenSearchIndex(cfg.Search)
		if err != nil {
			log.Warnf("Search index unavailable, falling back to database search: %v", err)
		} else {
			index = osIndex
		}
	}

	embedder := embedding.NewEmbedder(cfg.Embedding)

	runtime, err := sandbox.NewRuntime(cfg.Sandbox)
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox runtime: %w", err)
	}

	reg := registry.NewSkillsRegistry(skillFacade, store, index, embedder)
	sched := scheduler.NewScheduler(reg, runtime, execFacade, skillFacade, cfg.Scheduler, cfg.Sandbox)
	orch := workflow.NewOrchestrator(sched, workflowFacade, cfg.Scheduler)
	disc := discovery.NewService(skillFacade, index, embedder)

	handler := api.NewHandler(cfg, reg, sched, orch, disc,
		healthChecks(db, store, runtime, index))

	return &Server{
		config:    cfg,
		db:        db,
		scheduler: sched,
		handler:   handler,
	}, nil
}

// Start launches the scheduler and serves HTTP until shutdown.
func (s *Server) Start() error {
	s.scheduler.Start()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	api.RegisterRoutes(router, s.handler)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler: router,
	}

	log.Infof("Skill API listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop drains in-flight requests, then stops the scheduler.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.scheduler.Stop()
	return err
}

func initLogger(cfg config.LogConfig) error {
	logConf := conf.DefaultConfig()
	logConf.Level = conf.ParseLevel(cfg.Level)
	logConf.Formatter = conf.Formatter(cfg.Format)
	logConf.FileName = cfg.File
	return log.InitGlobalLogger(logConf.Validate())
}

// healthChecks builds the dependency probes served by /health.
func healthChecks(db *gorm.DB, store storage.Storage, runtime sandbox.Runtime, index search.Index) map[string]api.HealthChecker {
	checks := map[string]api.HealthChecker{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"storage": func(ctx context.Context) error {
			_, err := store.Exists(ctx, "healthcheck")
			return err
		},
		"sandbox": func(ctx context.Context) error {
			if !runtime.Healthy(ctx) {
				return fmt.Errorf("sandbox runtime cannot launch guests")
			}
			return nil
		},
	}
	if index != nil {
		checks["search"] = func(ctx context.Context) error {
			_, _, err := index.Search(ctx, search.Query{Size: 1})
			return err
		}
	}
	return checks
}
