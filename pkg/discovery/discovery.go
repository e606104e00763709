// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package discovery

import (
	"context"

	"github.com/wishub-ai/skillhub/pkg/database"
	"github.com/wishub-ai/skillhub/pkg/database/model"
	"github.com/wishub-ai/skillhub/pkg/embedding"
	"github.com/wishub-ai/skillhub/pkg/errors"
	"github.com/wishub-ai/skillhub/pkg/logger/log"
	"github.com/wishub-ai/skillhub/pkg/search"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Request is one discovery query. Zero values mean "no filter".
type Request struct {
	Query    string
	Category string
	Language string
	SortBy   string // name, date, popularity
	Page     int    // 1-indexed
	PageSize int    // 1..100, default 20
}

// Result is one page of discovered skills.
type Result struct {
	Skills     []*model.Skill `json:"skills"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// Service answers discovery queries from the search index when one is
// configured, falling back to the relational store. The database is the
// source of truth; the index only ranks.
type Service struct {
	facade   database.SkillFacadeInterface
	index    search.Index // nil when search is disabled
	embedder embedding.Embedder
}

// NewService creates a discovery service. index and embedder may be nil.
func NewService(facade database.SkillFacadeInterface, index search.Index, embedder embedding.Embedder) *Service {
	if embedder == nil {
		embedder = &embedding.NullEmbedder{}
	}
	return &Service{facade: facade, index: index, embedder: embedder}
}

// Search runs one paginated discovery query.
func (s *Service) Search(ctx context.Context, req Request) (*Result, error) {
	req = normalize(req)

	if s.index != nil {
		result, err := s.searchIndexed(ctx, req)
		if err == nil {
			return result, nil
		}
		log.Warnf("Search index query failed, falling back to database: %v", err)
	}
	return s.searchDatabase(ctx, req)
}

// Categories aggregates registered categories with skill counts.
func (s *Service) Categories(ctx context.Context) ([]database.CategoryCount, error) {
	categories, err := s.facade.DistinctCategories(ctx)
	if err != nil {
		return nil, errors.WrapError(err, "aggregate categories", errors.CodeRegistryInternal)
	}
	return categories, nil
}

// Languages lists languages that have at least one registered skill.
func (s *Service) Languages(ctx context.Context) ([]string, error) {
	languages, err := s.facade.DistinctLanguages(ctx)
	if err != nil {
		return nil, errors.WrapError(err, "aggregate languages", errors.CodeRegistryInternal)
	}
	return languages, nil
}

// searchIndexed ranks via the search index, then hydrates metadata rows
// from the database preserving index order.
func (s *Service) searchIndexed(ctx context.Context, req Request) (*Result, error) {
	ids, total, err := s.index.Search(ctx, search.Query{
		Text:     req.Query,
		Category: req.Category,
		Language: req.Language,
		SortBy:   req.SortBy,
		From:     (req.Page - 1) * req.PageSize,
		Size:     req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	skills := make([]*model.Skill, 0, len(ids))
	if len(ids) > 0 {
		rows, _, err := s.facade.List(ctx, database.SkillListFilter{
			SkillIDs:   ids,
			LatestOnly: true,
			Limit:      len(ids),
		})
		if err != nil {
			return nil, err
		}
		byID := make(map[string]*model.Skill, len(rows))
		for _, row := range rows {
			byID[row.SkillID] = row
		}
		for _, id := range ids {
			if row, ok := byID[id]; ok {
				skills = append(skills, row)
			}
		}
	}

	skills = s.rerank(ctx, req.Query, skills)
	return s.page(req, skills, total), nil
}

// searchDatabase is the fallback path: SQL token match and sorting.
func (s *Service) searchDatabase(ctx context.Context, req Request) (*Result, error) {
	skills, total, err := s.facade.List(ctx, database.SkillListFilter{
		Query:      req.Query,
		Category:   req.Category,
		Language:   req.Language,
		SortBy:     req.SortBy,
		LatestOnly: true,
		Offset:     (req.Page - 1) * req.PageSize,
		Limit:      req.PageSize,
	})
	if err != nil {
		return nil, errors.WrapError(err, "search skills", errors.CodeRegistryInternal)
	}

	skills = s.rerank(ctx, req.Query, skills)
	return s.page(req, skills, total), nil
}

// rerank reorders one result page by embedding distance to the query.
// Best-effort: any failure keeps the original order.
func (s *Service) rerank(ctx context.Context, query string, skills []*model.Skill) []*model.Skill {
	if query == "" || len(skills) < 2 {
		return skills
	}
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		log.Warnf("Failed to embed discovery query: %v", err)
		return skills
	}
	if len(vector) == 0 {
		return skills
	}

	ids := make([]string, 0, len(skills))
	byID := make(map[string]*model.Skill, len(skills))
	for _, skill := range skills {
		ids = append(ids, skill.SkillID)
		byID[skill.SkillID] = skill
	}

	ranked, err := s.facade.SemanticRank(ctx, vector, ids, len(ids))
	if err != nil {
		log.Warnf("Semantic rerank failed: %v", err)
		return skills
	}

	result := make([]*model.Skill, 0, len(skills))
	seen := make(map[string]bool, len(ranked))
	for _, id := range ranked {
		if skill, ok := byID[id]; ok && !seen[id] {
			result = append(result, skill)
			seen[id] = true
		}
	}
	// Skills without embeddings keep their prior relative order.
	for _, skill := range skills {
		if !seen[skill.SkillID] {
			result = append(result, skill)
		}
	}
	return result
}

func (s *Service) page(req Request, skills []*model.Skill, total int64) *Result {
	totalPages := int((total + int64(req.PageSize) - 1) / int64(req.PageSize))
	return &Result{
		Skills:     skills,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	}
}

func normalize(req Request) Request {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}
	return req
}
