package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/liliang-cn/gmassist/internal/domain"
	"github.com/liliang-cn/gmassist/internal/repository"
)

// Version is reported by GET /api/status
var Version = "0.1.0"

// Invalidator drops cached script lookups
type Invalidator interface {
	Invalidate()
}

// AdminService handles admin operations
type AdminService struct {
	store  repository.ScriptStore
	cache  Invalidator
	driver string
	logger *zap.Logger
}

// NewAdminService creates a new admin service. cache may be nil.
func NewAdminService(store repository.ScriptStore, cache Invalidator, driver string, logger *zap.Logger) *AdminService {
	return &AdminService{
		store:  store,
		cache:  cache,
		driver: driver,
		logger: logger,
	}
}

func (s *AdminService) invalidate() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
}

// Script operations

func (s *AdminService) CreateScript(ctx context.Context, req *domain.CreateScriptRequest) (*domain.Script, error) {
	script := &domain.Script{
		Title:             req.Title,
		Description:       req.Description,
		Content:           req.Content,
		SceneDescriptions: req.SceneDescriptions,
	}
	if err := s.store.Create(ctx, script); err != nil {
		return nil, err
	}
	s.invalidate()
	s.logger.Info("script created", zap.String("id", script.ID), zap.String("title", script.Title))
	return script, nil
}

func (s *AdminService) GetScript(ctx context.Context, id string) (*domain.Script, error) {
	script, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if script == nil {
		return nil, fmt.Errorf("script %s: %w", id, domain.ErrNotFound)
	}
	return script, nil
}

func (s *AdminService) ListScripts(ctx context.Context, page, pageSize int) (*domain.ScriptListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	scripts, err := s.store.List(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	if scripts == nil {
		scripts = []*domain.Script{}
	}

	return &domain.ScriptListResponse{
		Scripts:  scripts,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *AdminService) UpdateScript(ctx context.Context, id string, req *domain.UpdateScriptRequest) (*domain.Script, error) {
	script, err := s.GetScript(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		script.Title = req.Title
	}
	if req.Description != "" {
		script.Description = req.Description
	}
	if req.Content != "" {
		script.Content = req.Content
	}
	if req.SceneDescriptions != nil {
		script.SceneDescriptions = req.SceneDescriptions
	}

	if err := s.store.Update(ctx, script); err != nil {
		return nil, err
	}
	s.invalidate()
	return script, nil
}

func (s *AdminService) DeleteScript(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate()
	s.logger.Info("script deleted", zap.String("id", id))
	return nil
}

// Stats

func (s *AdminService) GetStats(ctx context.Context) (*domain.Stats, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.Stats{TotalScripts: n, StoreDriver: s.driver}, nil
}

// Status pings the store. A failed ping is reported, not returned.
func (s *AdminService) Status(ctx context.Context) *domain.Status {
	status := &domain.Status{
		Status:   "ok",
		Store:    "connected",
		Database: s.store.Database(),
		Version:  Version,
	}
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("store ping failed", zap.Error(err))
		status.Store = "disconnected"
	}
	return status
}
