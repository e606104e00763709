// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package registry

import (
	"bytes"
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/wishub-ai/skillhub/pkg/database"
	"github.com/wishub-ai/skillhub/pkg/database/model"
	"github.com/wishub-ai/skillhub/pkg/errors"
	"github.com/wishub-ai/skillhub/pkg/search"
	"github.com/wishub-ai/skillhub/pkg/storage"
)

// memFacade is an in-memory SkillFacadeInterface.
type memFacade struct {
	nextID       int64
	rows         map[string]*model.Skill // skill_id@version
	hideExisting bool                    // Exists reports false, like a racing writer
}

func newMemFacade() *memFacade {
	return &memFacade{rows: make(map[string]*model.Skill)}
}

func rowKey(skillID, version string) string { return skillID + "@" + version }

func (f *memFacade) GetByID(ctx context.Context, id int64) (*model.Skill, error) {
	for _, row := range f.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *memFacade) GetBySkillIDAndVersion(ctx context.Context, skillID, version string) (*model.Skill, error) {
	if row, ok := f.rows[rowKey(skillID, version)]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *memFacade) ListVersions(ctx context.Context, skillID string) ([]*model.Skill, error) {
	var result []*model.Skill
	for _, row := range f.rows {
		if row.SkillID == skillID {
			result = append(result, row)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Version < result[j].Version })
	return result, nil
}

func (f *memFacade) Exists(ctx context.Context, skillID, version string) (bool, error) {
	if f.hideExisting {
		return false, nil
	}
	_, ok := f.rows[rowKey(skillID, version)]
	return ok, nil
}

func (f *memFacade) List(ctx context.Context, filter database.SkillListFilter) ([]*model.Skill, int64, error) {
	var result []*model.Skill
	for _, row := range f.rows {
		result = append(result, row)
	}
	return result, int64(len(result)), nil
}

func (f *memFacade) Create(ctx context.Context, skill *model.Skill) error {
	key := rowKey(skill.SkillID, skill.Version)
	if _, ok := f.rows[key]; ok {
		return gorm.ErrDuplicatedKey
	}
	f.nextID++
	skill.ID = f.nextID
	f.rows[key] = skill
	return nil
}

func (f *memFacade) DeleteByID(ctx context.Context, id int64) error {
	for key, row := range f.rows {
		if row.ID == id {
			delete(f.rows, key)
			return nil
		}
	}
	return nil
}

func (f *memFacade) DeleteBySkillID(ctx context.Context, skillID string) (int64, error) {
	var removed int64
	for key, row := range f.rows {
		if row.SkillID == skillID {
			delete(f.rows, key)
			removed++
		}
	}
	return removed, nil
}

func (f *memFacade) IncrementStats(ctx context.Context, skillID string, success bool) error {
	return nil
}

func (f *memFacade) UpdateEmbedding(ctx context.Context, id int64, embedding pgvector.Vector) error {
	return nil
}

func (f *memFacade) SemanticRank(ctx context.Context, queryEmbedding []float32, skillIDs []string, limit int) ([]string, error) {
	return nil, nil
}

func (f *memFacade) DistinctCategories(ctx context.Context) ([]database.CategoryCount, error) {
	return nil, nil
}

func (f *memFacade) DistinctLanguages(ctx context.Context) ([]string, error) {
	return nil, nil
}

// memStorage is an in-memory storage.Storage.
type memStorage struct {
	blobs     map[string][]byte
	failWrite bool
}

func newMemStorage() *memStorage {
	return &memStorage{blobs: make(map[string][]byte)}
}

func (s *memStorage) Upload(ctx context.Context, key string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	return s.UploadBytes(ctx, key, data)
}

func (s *memStorage) UploadBytes(ctx context.Context, key string, data []byte) error {
	if s.failWrite {
		return stderrors.New("storage unavailable")
	}
	s.blobs[key] = data
	return nil
}

func (s *memStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	data, err := s.DownloadBytes(ctx, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStorage) DownloadBytes(ctx context.Context, key string) ([]byte, error) {
	data, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("no such key: %s", key)
	}
	return data, nil
}

func (s *memStorage) Delete(ctx context.Context, key string) error {
	delete(s.blobs, key)
	return nil
}

func (s *memStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := s.blobs[key]
	return ok, nil
}

func (s *memStorage) GetURL(ctx context.Context, key string) (string, error) {
	return "mem://" + key, nil
}

func (s *memStorage) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var objects []storage.ObjectInfo
	for key, data := range s.blobs {
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return objects, nil
}

// fakeIndex records index operations.
type fakeIndex struct {
	upserts []string
	deletes []string
}

func (i *fakeIndex) Upsert(ctx context.Context, skill *model.Skill) error {
	i.upserts = append(i.upserts, skill.SkillID)
	return nil
}

func (i *fakeIndex) Delete(ctx context.Context, skillID string) error {
	i.deletes = append(i.deletes, skillID)
	return nil
}

func (i *fakeIndex) Search(ctx context.Context, query search.Query) ([]string, int64, error) {
	return nil, 0, nil
}

func validRequest() *RegisterRequest {
	return &RegisterRequest{
		SkillID:   "skill_square",
		SkillName: "Square",
		Version:   "1.0.0",
		Language:  "python",
		Code:      base64.StdEncoding.EncodeToString([]byte("def execute(inputs):\n    return {\"result\": inputs[\"value\"] ** 2}\n")),
		Category:  "math",
	}
}

func TestParseSemver(t *testing.T) {
	tests := []struct {
		version string
		wantErr bool
	}{
		{"1.0.0", false},
		{"0.0.1", false},
		{"10.20.30", false},
		{"1.0.0-alpha", false},
		{"1.0.0-rc.1", false},
		{"1.0", true},
		{"1.0.0.0", true},
		{"v1.0.0", true},
		{"1.0.x", true},
		{"1.01.0", true},
		{"1.0.0-", true},
		{"", true},
	}
	for _, tt := range tests {
		_, err := parseSemver(tt.version)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSemver(%q) error = %v, wantErr %v", tt.version, err, tt.wantErr)
		}
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.1", "1.0.0", 1},
		{"1.10.0", "1.9.0", 1},
		{"2.0.0", "1.99.99", 1},
		{"1.0.0-alpha", "1.0.0", -1},
		{"1.0.0-alpha", "1.0.0-beta", -1},
	}
	for _, tt := range tests {
		if got := compareVersions(tt.a, tt.b); got != tt.want {
			t.Errorf("compareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
		if got := compareVersions(tt.b, tt.a); got != -tt.want {
			t.Errorf("compareVersions(%q, %q) = %d, want %d", tt.b, tt.a, got, -tt.want)
		}
	}
}

func TestRegistry_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success persists row, blob and index document", func(t *testing.T) {
		facade := newMemFacade()
		store := newMemStorage()
		index := &fakeIndex{}
		reg := NewSkillsRegistry(facade, store, index, nil)

		skill, err := reg.Register(ctx, validRequest())
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if skill.TimeoutSeconds != defaultTimeoutSeconds {
			t.Errorf("TimeoutSeconds = %d, want default %d", skill.TimeoutSeconds, defaultTimeoutSeconds)
		}
		wantKey := "skill_square/1.0.0/skill.py"
		if skill.StorageKey != wantKey {
			t.Errorf("StorageKey = %s, want %s", skill.StorageKey, wantKey)
		}
		if _, ok := store.blobs[wantKey]; !ok {
			t.Error("code blob was not written")
		}
		if len(index.upserts) != 1 || index.upserts[0] != "skill_square" {
			t.Errorf("index upserts = %v, want [skill_square]", index.upserts)
		}
	})

	t.Run("duplicate version is rejected", func(t *testing.T) {
		reg := NewSkillsRegistry(newMemFacade(), newMemStorage(), nil, nil)
		if _, err := reg.Register(ctx, validRequest()); err != nil {
			t.Fatalf("first Register() error = %v", err)
		}
		_, err := reg.Register(ctx, validRequest())
		if errors.GetCode(err) != errors.CodeDuplicateSkill {
			t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.CodeDuplicateSkill)
		}
	})

	t.Run("concurrent duplicate caught by the unique index", func(t *testing.T) {
		facade := newMemFacade()
		reg := NewSkillsRegistry(facade, newMemStorage(), nil, nil)
		if _, err := reg.Register(ctx, validRequest()); err != nil {
			t.Fatalf("first Register() error = %v", err)
		}
		// The pre-check misses the row, as when a racing writer commits
		// between Exists and Create. The unique index still rejects the
		// insert and the translated error maps to the duplicate code.
		facade.hideExisting = true
		_, err := reg.Register(ctx, validRequest())
		if errors.GetCode(err) != errors.CodeDuplicateSkill {
			t.Errorf("error code = %s, want %s (err: %v)", errors.GetCode(err), errors.CodeDuplicateSkill, err)
		}
	})

	t.Run("validation failures", func(t *testing.T) {
		tests := []struct {
			name     string
			mutate   func(*RegisterRequest)
			wantCode string
		}{
			{
				name:     "missing skill_name",
				mutate:   func(r *RegisterRequest) { r.SkillName = "" },
				wantCode: errors.CodeValidationFailed,
			},
			{
				name:     "unsupported language",
				mutate:   func(r *RegisterRequest) { r.Language = "cobol" },
				wantCode: errors.CodeValidationFailed,
			},
			{
				name:     "bad version",
				mutate:   func(r *RegisterRequest) { r.Version = "1.0" },
				wantCode: errors.CodeValidationFailed,
			},
			{
				name:     "code not base64",
				mutate:   func(r *RegisterRequest) { r.Code = "not*base64!" },
				wantCode: errors.CodeInvalidCode,
			},
			{
				name:     "code decodes empty",
				mutate:   func(r *RegisterRequest) { r.Code = base64.StdEncoding.EncodeToString(nil) },
				wantCode: errors.CodeValidationFailed,
			},
			{
				name: "malformed input schema",
				mutate: func(r *RegisterRequest) {
					r.InputSchema = map[string]interface{}{"type": 42}
				},
				wantCode: errors.CodeValidationFailed,
			},
			{
				name:     "timeout above bound",
				mutate:   func(r *RegisterRequest) { r.TimeoutSeconds = 601 },
				wantCode: errors.CodeValidationFailed,
			},
			{
				name:     "timeout below bound",
				mutate:   func(r *RegisterRequest) { r.TimeoutSeconds = -1 },
				wantCode: errors.CodeValidationFailed,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				reg := NewSkillsRegistry(newMemFacade(), newMemStorage(), nil, nil)
				req := validRequest()
				tt.mutate(req)
				_, err := reg.Register(ctx, req)
				if errors.GetCode(err) != tt.wantCode {
					t.Errorf("error code = %s, want %s (err: %v)", errors.GetCode(err), tt.wantCode, err)
				}
			})
		}
	})

	t.Run("blob write failure rolls the metadata row back", func(t *testing.T) {
		facade := newMemFacade()
		store := newMemStorage()
		store.failWrite = true
		reg := NewSkillsRegistry(facade, store, nil, nil)

		_, err := reg.Register(ctx, validRequest())
		if errors.GetCode(err) != errors.CodeRegistryInternal {
			t.Fatalf("error code = %s, want %s", errors.GetCode(err), errors.CodeRegistryInternal)
		}
		if len(facade.rows) != 0 {
			t.Error("metadata row survived a failed blob write")
		}

		// The version must be registrable again once storage recovers.
		store.failWrite = false
		if _, err := reg.Register(ctx, validRequest()); err != nil {
			t.Errorf("re-register after rollback error = %v", err)
		}
	})
}

func TestRegistry_Resolve(t *testing.T) {
	ctx := context.Background()
	reg := NewSkillsRegistry(newMemFacade(), newMemStorage(), nil, nil)

	for _, version := range []string{"1.2.0", "1.10.0", "2.0.0-beta", "1.9.3"} {
		req := validRequest()
		req.Version = version
		if _, err := reg.Register(ctx, req); err != nil {
			t.Fatalf("Register(%s) error = %v", version, err)
		}
	}

	t.Run("exact version", func(t *testing.T) {
		skill, err := reg.Resolve(ctx, "skill_square", "1.2.0")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if skill.Version != "1.2.0" {
			t.Errorf("Version = %s, want 1.2.0", skill.Version)
		}
	})

	t.Run("latest orders semantically, pre-release below release", func(t *testing.T) {
		skill, err := reg.Resolve(ctx, "skill_square", "")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		// 2.0.0-beta is newest lexically but a pre-release still
		// outranks every 1.x release here.
		if skill.Version != "2.0.0-beta" {
			t.Errorf("latest = %s, want 2.0.0-beta", skill.Version)
		}
	})

	t.Run("unknown skill maps to not found", func(t *testing.T) {
		_, err := reg.Resolve(ctx, "skill_missing", "")
		if errors.GetCode(err) != errors.CodeSkillNotFound {
			t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.CodeSkillNotFound)
		}
	})

	t.Run("unknown version maps to not found", func(t *testing.T) {
		_, err := reg.Resolve(ctx, "skill_square", "9.9.9")
		if errors.GetCode(err) != errors.CodeSkillNotFound {
			t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.CodeSkillNotFound)
		}
	})
}

func TestRegistry_Code(t *testing.T) {
	ctx := context.Background()
	reg := NewSkillsRegistry(newMemFacade(), newMemStorage(), nil, nil)

	req := validRequest()
	skill, err := reg.Register(ctx, req)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	code, err := reg.Code(ctx, skill)
	if err != nil {
		t.Fatalf("Code() error = %v", err)
	}
	want, _ := base64.StdEncoding.DecodeString(req.Code)
	if !bytes.Equal(code, want) {
		t.Error("stored blob differs from registered code")
	}
}

func TestRegistry_CodeURL(t *testing.T) {
	ctx := context.Background()
	reg := NewSkillsRegistry(newMemFacade(), newMemStorage(), nil, nil)

	skill, err := reg.Register(ctx, validRequest())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	url, err := reg.CodeURL(ctx, skill)
	if err != nil {
		t.Fatalf("CodeURL() error = %v", err)
	}
	if url != "mem://skill_square/1.0.0/skill.py" {
		t.Errorf("CodeURL() = %s, want mem://skill_square/1.0.0/skill.py", url)
	}
}

func TestRegistry_Delete(t *testing.T) {
	ctx := context.Background()
	facade := newMemFacade()
	store := newMemStorage()
	index := &fakeIndex{}
	reg := NewSkillsRegistry(facade, store, index, nil)

	for _, version := range []string{"1.0.0", "1.1.0"} {
		req := validRequest()
		req.Version = version
		if _, err := reg.Register(ctx, req); err != nil {
			t.Fatalf("Register(%s) error = %v", version, err)
		}
	}

	if err := reg.Delete(ctx, "skill_square"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(facade.rows) != 0 {
		t.Errorf("%d metadata rows survived delete", len(facade.rows))
	}
	if len(store.blobs) != 0 {
		t.Errorf("%d blobs survived delete", len(store.blobs))
	}
	if len(index.deletes) != 1 || index.deletes[0] != "skill_square" {
		t.Errorf("index deletes = %v, want [skill_square]", index.deletes)
	}

	// Resolution after delete must miss, including the cache path.
	if _, err := reg.Resolve(ctx, "skill_square", "1.0.0"); errors.GetCode(err) != errors.CodeSkillNotFound {
		t.Errorf("Resolve after delete code = %s, want %s", errors.GetCode(err), errors.CodeSkillNotFound)
	}

	// Deleting an unknown skill still succeeds.
	if err := reg.Delete(ctx, "skill_unknown"); err != nil {
		t.Errorf("Delete(unknown) error = %v", err)
	}
}
