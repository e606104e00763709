// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package database

import (
	"context"
	"strings"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/wishub-ai/skillhub/pkg/database/model"
)

// SkillListFilter narrows List queries. Zero values mean "no filter".
type SkillListFilter struct {
	Query      string // token match across skill_name and description
	Category   string
	Language   string
	SkillIDs   []string // restrict to these skill ids (search-index hits)
	SortBy     string   // name, date, popularity
	LatestOnly bool     // one row per skill_id, newest version
	Offset     int
	Limit      int
}

// CategoryCount is one row of the category aggregation.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// SkillFacadeInterface defines the interface for Skill operations
type SkillFacadeInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Skill, error)
	GetBySkillIDAndVersion(ctx context.Context, skillID, version string) (*model.Skill, error)
	ListVersions(ctx context.Context, skillID string) ([]*model.Skill, error)
	Exists(ctx context.Context, skillID, version string) (bool, error)
	List(ctx context.Context, filter SkillListFilter) ([]*model.Skill, int64, error)
	Create(ctx context.Context, skill *model.Skill) error
	DeleteByID(ctx context.Context, id int64) error
	DeleteBySkillID(ctx context.Context, skillID string) (int64, error)
	IncrementStats(ctx context.Context, skillID string, success bool) error
	UpdateEmbedding(ctx context.Context, id int64, embedding pgvector.Vector) error
	SemanticRank(ctx context.Context, queryEmbedding []float32, skillIDs []string, limit int) ([]string, error)
	DistinctCategories(ctx context.Context) ([]CategoryCount, error)
	DistinctLanguages(ctx context.Context) ([]string, error)
}

// SkillFacade implements SkillFacadeInterface
type SkillFacade struct {
	db *gorm.DB
}

// NewSkillFacade creates a new SkillFacade
func NewSkillFacade(db *gorm.DB) *SkillFacade {
	return &SkillFacade{db: db}
}

// GetByID retrieves a skill row by primary key
func (f *SkillFacade) GetByID(ctx context.Context, id int64) (*model.Skill, error) {
	var skill model.Skill
	err := f.db.WithContext(ctx).Where("id = ?", id).First(&skill).Error
	if err != nil {
		return nil, err
	}
	return &skill, nil
}

// GetBySkillIDAndVersion retrieves one registered version
func (f *SkillFacade) GetBySkillIDAndVersion(ctx context.Context, skillID, version string) (*model.Skill, error) {
	var skill model.Skill
	err := f.db.WithContext(ctx).
		Where("skill_id = ? AND version = ?", skillID, version).
		First(&skill).Error
	if err != nil {
		return nil, err
	}
	return &skill, nil
}

// ListVersions retrieves every registered version of a skill
func (f *SkillFacade) ListVersions(ctx context.Context, skillID string) ([]*model.Skill, error) {
	var skills []*model.Skill
	err := f.db.WithContext(ctx).
		Where("skill_id = ?", skillID).
		Order("created_at DESC").
		Find(&skills).Error
	if err != nil {
		return nil, err
	}
	return skills, nil
}

// Exists reports whether the (skill_id, version) pair is registered
func (f *SkillFacade) Exists(ctx context.Context, skillID, version string) (bool, error) {
	var count int64
	err := f.db.WithContext(ctx).Model(&model.Skill{}).
		Where("skill_id = ? AND version = ?", skillID, version).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// List retrieves filtered, sorted, paginated skills with the total count
func (f *SkillFacade) List(ctx context.Context, filter SkillListFilter) ([]*model.Skill, int64, error) {
	var skills []*model.Skill
	var total int64

	query := f.db.WithContext(ctx).Model(&model.Skill{})

	if filter.Query != "" {
		for _, token := range strings.Fields(filter.Query) {
			pattern := "%" + token + "%"
			query = query.Where("skill_name ILIKE ? OR description ILIKE ?", pattern, pattern)
		}
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Language != "" {
		query = query.Where("language = ?", filter.Language)
	}
	if len(filter.SkillIDs) > 0 {
		query = query.Where("skill_id IN ?", filter.SkillIDs)
	}
	if filter.LatestOnly {
		query = query.Where("id IN (SELECT DISTINCT ON (skill_id) id FROM skills ORDER BY skill_id, created_at DESC)")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order(orderClause(filter.SortBy)).
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&skills).Error
	if err != nil {
		return nil, 0, err
	}

	return skills, total, nil
}

func orderClause(sortBy string) string {
	switch sortBy {
	case "name":
		return "skill_name ASC"
	case "popularity":
		return "popularity DESC"
	default: // date
		return "created_at DESC"
	}
}

// Create creates a new skill version row
func (f *SkillFacade) Create(ctx context.Context, skill *model.Skill) error {
	return f.db.WithContext(ctx).Create(skill).Error
}

// DeleteByID removes a single version row by primary key
func (f *SkillFacade) DeleteByID(ctx context.Context, id int64) error {
	return f.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Skill{}).Error
}

// DeleteBySkillID removes all versions of a skill, returning rows affected
func (f *SkillFacade) DeleteBySkillID(ctx context.Context, skillID string) (int64, error) {
	result := f.db.WithContext(ctx).Where("skill_id = ?", skillID).Delete(&model.Skill{})
	return result.RowsAffected, result.Error
}

// IncrementStats bumps the usage counters for every version of skillID
// atomically after a terminal invocation.
func (f *SkillFacade) IncrementStats(ctx context.Context, skillID string, success bool) error {
	updates := map[string]interface{}{
		"total_calls": gorm.Expr("total_calls + 1"),
		"popularity":  gorm.Expr("popularity + 1"),
	}
	if success {
		updates["success_count"] = gorm.Expr("success_count + 1")
	}
	return f.db.WithContext(ctx).Model(&model.Skill{}).
		Where("skill_id = ?", skillID).
		UpdateColumns(updates).Error
}

// UpdateEmbedding stores the semantic search vector for a skill row
func (f *SkillFacade) UpdateEmbedding(ctx context.Context, id int64, embedding pgvector.Vector) error {
	return f.db.WithContext(ctx).Model(&model.Skill{}).
		Where("id = ?", id).
		UpdateColumn("embedding", embedding).Error
}

// SemanticRank orders the given skill ids by cosine distance to the query
// embedding. Uses raw SQL for proper pgvector operator handling.
func (f *SkillFacade) SemanticRank(ctx context.Context, queryEmbedding []float32, skillIDs []string, limit int) ([]string, error) {
	vectorStr := pgvector.NewVector(queryEmbedding).String()

	var results []string
	query := `SELECT skill_id FROM skills WHERE embedding IS NOT NULL`
	args := []interface{}{}
	if len(skillIDs) > 0 {
		query += ` AND skill_id IN ?`
		args = append(args, skillIDs)
	}
	query += ` ORDER BY embedding <=> ? LIMIT ?`
	args = append(args, vectorStr, limit)

	err := f.db.WithContext(ctx).Raw(query, args...).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// DistinctCategories aggregates non-empty categories with skill counts
func (f *SkillFacade) DistinctCategories(ctx context.Context) ([]CategoryCount, error) {
	var results []CategoryCount
	err := f.db.WithContext(ctx).Model(&model.Skill{}).
		Select("category, COUNT(DISTINCT skill_id) AS count").
		Where("category <> ''").
		Group("category").
		Order("count DESC").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// DistinctLanguages lists languages with at least one registered skill
func (f *SkillFacade) DistinctLanguages(ctx context.Context) ([]string, error) {
	var results []string
	err := f.db.WithContext(ctx).Model(&model.Skill{}).
		Distinct("language").
		Order("language ASC").
		Pluck("language", &results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
