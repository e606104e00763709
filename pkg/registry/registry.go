// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package registry

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/wishub-ai/skillhub/pkg/database"
	"github.com/wishub-ai/skillhub/pkg/database/model"
	"github.com/wishub-ai/skillhub/pkg/embedding"
	"github.com/wishub-ai/skillhub/pkg/errors"
	"github.com/wishub-ai/skillhub/pkg/logger/log"
	"github.com/wishub-ai/skillhub/pkg/metrics"
	"github.com/wishub-ai/skillhub/pkg/schema"
	"github.com/wishub-ai/skillhub/pkg/search"
	"github.com/wishub-ai/skillhub/pkg/storage"
)

const (
	cacheTTL   = 5 * time.Minute
	cacheSweep = 10 * time.Minute

	minTimeoutSeconds     = 1
	maxTimeoutSeconds     = 600
	defaultTimeoutSeconds = 30
)

// RegisterRequest carries one skill version to register. Code arrives
// base64-encoded and is stored as raw bytes.
type RegisterRequest struct {
	SkillID        string                 `json:"skill_id"`
	SkillName      string                 `json:"skill_name"`
	Description    string                 `json:"description"`
	Version        string                 `json:"version"`
	Language       string                 `json:"language"`
	Code           string                 `json:"code"`
	TimeoutSeconds int                    `json:"timeout_seconds"`
	Dependencies   map[string]interface{} `json:"dependencies"`
	InputSchema    map[string]interface{} `json:"input_schema"`
	OutputSchema   map[string]interface{} `json:"output_schema"`
	Tags           []string               `json:"tags"`
	Author         string                 `json:"author"`
	License        string                 `json:"license"`
	Category       string                 `json:"category"`
}

// SkillsRegistry is the validated, immutable-per-version skill store.
// Metadata lives in the database, code blobs in object storage, and the
// discovery index is kept in sync best-effort.
type SkillsRegistry struct {
	facade   database.SkillFacadeInterface
	store    storage.Storage
	index    search.Index // nil when search is disabled
	embedder embedding.Embedder
	cache    *gocache.Cache
}

// NewSkillsRegistry creates a new SkillsRegistry. index may be nil.
func NewSkillsRegistry(
	facade database.SkillFacadeInterface,
	store storage.Storage,
	index search.Index,
	embedder embedding.Embedder,
) *SkillsRegistry {
	if embedder == nil {
		embedder = &embedding.NullEmbedder{}
	}
	return &SkillsRegistry{
		facade:   facade,
		store:    store,
		index:    index,
		embedder: embedder,
		cache:    gocache.New(cacheTTL, cacheSweep),
	}
}

// Register validates and persists one skill version. The metadata row is
// written first; a blob write failure rolls the row back so the version
// never becomes resolvable without code.
func (r *SkillsRegistry) Register(ctx context.Context, req *RegisterRequest) (*model.Skill, error) {
	code, err := r.validate(req)
	if err != nil {
		metrics.SkillRegistrations.WithLabelValues("rejected").Inc()
		return nil, err
	}

	exists, dbErr := r.facade.Exists(ctx, req.SkillID, req.Version)
	if dbErr != nil {
		metrics.SkillRegistrations.WithLabelValues("error").Inc()
		return nil, errors.WrapError(dbErr, "check existing versions", errors.CodeRegistryInternal)
	}
	if exists {
		metrics.SkillRegistrations.WithLabelValues("duplicate").Inc()
		return nil, errors.WrapMessage(
			fmt.Sprintf("skill %s version %s is already registered", req.SkillID, req.Version),
			errors.CodeDuplicateSkill)
	}

	skill := &model.Skill{
		SkillID:        req.SkillID,
		Version:        req.Version,
		SkillName:      req.SkillName,
		Description:    req.Description,
		Category:       req.Category,
		Language:       req.Language,
		Author:         req.Author,
		License:        req.License,
		TimeoutSeconds: req.TimeoutSeconds,
		Dependencies:   model.JSONDocument(req.Dependencies),
		InputSchema:    model.SchemaDocument(req.InputSchema),
		OutputSchema:   model.SchemaDocument(req.OutputSchema),
		Tags:           model.SkillTags(req.Tags),
		StorageKey:     storage.SkillKey(req.SkillID, req.Version, req.Language),
		CodeSize:       int64(len(code)),
	}

	if err := r.facade.Create(ctx, skill); err != nil {
		// The unique index closes the Exists/Create race.
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			metrics.SkillRegistrations.WithLabelValues("duplicate").Inc()
			return nil, errors.WrapMessage(
				fmt.Sprintf("skill %s version %s is already registered", req.SkillID, req.Version),
				errors.CodeDuplicateSkill)
		}
		metrics.SkillRegistrations.WithLabelValues("error").Inc()
		return nil, errors.WrapError(err, "persist skill metadata", errors.CodeRegistryInternal)
	}

	if err := r.store.UploadBytes(ctx, skill.StorageKey, code); err != nil {
		if rbErr := r.facade.DeleteByID(ctx, skill.ID); rbErr != nil {
			log.Errorf("Failed to roll back metadata for %s@%s after blob write failure: %v",
				skill.SkillID, skill.Version, rbErr)
		}
		metrics.SkillRegistrations.WithLabelValues("error").Inc()
		return nil, errors.WrapError(err, "persist code blob", errors.CodeRegistryInternal)
	}

	r.purgeCache(skill.SkillID, skill.Version)
	r.syncIndex(ctx, skill)
	r.generateEmbedding(ctx, skill)

	metrics.SkillRegistrations.WithLabelValues("success").Inc()
	log.Infof("Registered skill %s@%s (%s, %d bytes)",
		skill.SkillID, skill.Version, skill.Language, skill.CodeSize)
	return skill, nil
}

// Resolve returns the requested version, or the latest by semantic
// version ordering when version is empty.
func (r *SkillsRegistry) Resolve(ctx context.Context, skillID, version string) (*model.Skill, error) {
	key := cacheKey(skillID, version)
	if cached, ok := r.cache.Get(key); ok {
		return cached.(*model.Skill), nil
	}

	var skill *model.Skill
	var err error
	if version == "" {
		skill, err = r.latest(ctx, skillID)
	} else {
		skill, err = r.facade.GetBySkillIDAndVersion(ctx, skillID, version)
	}
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) || errors.GetCode(err) == errors.CodeSkillNotFound {
			return nil, errors.WrapMessage(
				fmt.Sprintf("skill not found: %s", describeSkill(skillID, version)),
				errors.CodeSkillNotFound)
		}
		return nil, errors.WrapError(err, "resolve skill", errors.CodeRegistryInternal)
	}

	r.cache.Set(key, skill, gocache.DefaultExpiration)
	return skill, nil
}

// Code fetches the skill's code blob from object storage.
func (r *SkillsRegistry) Code(ctx context.Context, skill *model.Skill) ([]byte, error) {
	data, err := r.store.DownloadBytes(ctx, skill.StorageKey)
	if err != nil {
		return nil, errors.WrapError(err,
			fmt.Sprintf("fetch code blob for %s@%s", skill.SkillID, skill.Version),
			errors.CodeRegistryInternal)
	}
	return data, nil
}

// CodeURL returns a time-limited download URL for the skill's code blob.
func (r *SkillsRegistry) CodeURL(ctx context.Context, skill *model.Skill) (string, error) {
	url, err := r.store.GetURL(ctx, skill.StorageKey)
	if err != nil {
		return "", errors.WrapError(err,
			fmt.Sprintf("sign code URL for %s@%s", skill.SkillID, skill.Version),
			errors.CodeRegistryInternal)
	}
	return url, nil
}

// Versions lists every registered version of a skill, newest first.
func (r *SkillsRegistry) Versions(ctx context.Context, skillID string) ([]*model.Skill, error) {
	return r.facade.ListVersions(ctx, skillID)
}

// Delete removes all versions of a skill: metadata rows, code blobs, the
// cache entries, and the index document. Succeeds whether or not the
// skill existed; running executions keep their already-fetched blobs.
func (r *SkillsRegistry) Delete(ctx context.Context, skillID string) error {
	removed, err := r.facade.DeleteBySkillID(ctx, skillID)
	if err != nil {
		return errors.WrapError(err, "delete skill metadata", errors.CodeRegistryInternal)
	}

	r.purgeCacheAll(skillID)

	objects, err := r.store.ListObjects(ctx, storage.SkillPrefix(skillID))
	if err != nil {
		log.Warnf("Failed to list blobs for deleted skill %s: %v", skillID, err)
	}
	for _, obj := range objects {
		if err := r.store.Delete(ctx, obj.Key); err != nil {
			log.Warnf("Failed to delete blob %s: %v", obj.Key, err)
		}
	}

	if r.index != nil {
		if err := r.index.Delete(ctx, skillID); err != nil {
			log.Warnf("Failed to remove skill %s from search index: %v", skillID, err)
		}
	}

	if removed > 0 {
		log.Infof("Deleted skill %s (%d versions)", skillID, removed)
	}
	return nil
}

// List returns filtered, paginated skill metadata.
func (r *SkillsRegistry) List(ctx context.Context, filter database.SkillListFilter) ([]*model.Skill, int64, error) {
	return r.facade.List(ctx, filter)
}

// validate runs the registration pipeline and returns the decoded blob.
func (r *SkillsRegistry) validate(req *RegisterRequest) ([]byte, error) {
	var missing []string
	for field, value := range map[string]string{
		"skill_id":   req.SkillID,
		"skill_name": req.SkillName,
		"version":    req.Version,
		"language":   req.Language,
		"code":       req.Code,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, errors.WrapMessage(
			"missing required fields: "+strings.Join(missing, ", "),
			errors.CodeValidationFailed)
	}

	if !model.IsSupportedLanguage(req.Language) {
		return nil, errors.WrapMessage(
			fmt.Sprintf("unsupported language %q, supported: %s",
				req.Language, strings.Join(model.SupportedLanguages(), ", ")),
			errors.CodeValidationFailed)
	}

	if _, err := parseSemver(req.Version); err != nil {
		return nil, errors.WrapError(err, "invalid version", errors.CodeValidationFailed)
	}

	code, err := base64.StdEncoding.DecodeString(req.Code)
	if err != nil {
		return nil, errors.WrapError(err, "code is not valid base64", errors.CodeInvalidCode)
	}
	if len(code) == 0 {
		return nil, errors.WrapMessage("code decodes to an empty blob", errors.CodeInvalidCode)
	}

	for name, doc := range map[string]map[string]interface{}{
		"input_schema":  req.InputSchema,
		"output_schema": req.OutputSchema,
	} {
		if len(doc) == 0 {
			continue
		}
		if _, err := schema.Compile(doc); err != nil {
			return nil, errors.WrapError(err,
				fmt.Sprintf("%s is not a valid JSON-Schema document", name),
				errors.CodeValidationFailed)
		}
	}

	if req.TimeoutSeconds == 0 {
		req.TimeoutSeconds = defaultTimeoutSeconds
	}
	if req.TimeoutSeconds < minTimeoutSeconds || req.TimeoutSeconds > maxTimeoutSeconds {
		return nil, errors.WrapMessage(
			fmt.Sprintf("timeout_seconds must be in [%d, %d], got %d",
				minTimeoutSeconds, maxTimeoutSeconds, req.TimeoutSeconds),
			errors.CodeValidationFailed)
	}

	return code, nil
}

// latest picks the highest semantic version among registered versions.
func (r *SkillsRegistry) latest(ctx context.Context, skillID string) (*model.Skill, error) {
	versions, err := r.facade.ListVersions(ctx, skillID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, errors.WrapMessage(
			fmt.Sprintf("skill not found: %s", skillID), errors.CodeSkillNotFound)
	}

	best := versions[0]
	for _, candidate := range versions[1:] {
		if compareVersions(candidate.Version, best.Version) > 0 {
			best = candidate
		}
	}
	return best, nil
}

// syncIndex upserts the discovery document; failures only log, the
// database stays the source of truth.
func (r *SkillsRegistry) syncIndex(ctx context.Context, skill *model.Skill) {
	if r.index == nil {
		return
	}
	if err := r.index.Upsert(ctx, skill); err != nil {
		log.Warnf("Failed to index skill %s@%s: %v", skill.SkillID, skill.Version, err)
	}
}

// generateEmbedding stores a semantic vector for the skill, best-effort.
func (r *SkillsRegistry) generateEmbedding(ctx context.Context, skill *model.Skill) {
	text := skill.SkillName + "\n" + skill.Description
	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		log.Warnf("Failed to embed skill %s@%s: %v", skill.SkillID, skill.Version, err)
		return
	}
	if len(vector) == 0 {
		return
	}
	if err := r.facade.UpdateEmbedding(ctx, skill.ID, pgvector.NewVector(vector)); err != nil {
		log.Warnf("Failed to store embedding for %s@%s: %v", skill.SkillID, skill.Version, err)
	}
}

func (r *SkillsRegistry) purgeCache(skillID, version string) {
	r.cache.Delete(cacheKey(skillID, version))
	r.cache.Delete(cacheKey(skillID, ""))
}

// purgeCacheAll drops every cached version of a skill.
func (r *SkillsRegistry) purgeCacheAll(skillID string) {
	prefix := skillID + "@"
	for key := range r.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			r.cache.Delete(key)
		}
	}
}

func cacheKey(skillID, version string) string {
	if version == "" {
		return skillID + "@latest"
	}
	return skillID + "@" + version
}

func describeSkill(skillID, version string) string {
	if version == "" {
		return skillID
	}
	return skillID + "@" + version
}
