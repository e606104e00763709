// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "storage-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	storage, err := NewLocalStorage(tmpDir, "http://localhost:8080/blobs")
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	return storage
}

func TestSkillKey(t *testing.T) {
	tests := []struct {
		language string
		want     string
	}{
		{"python", "skill_square/1.0.0/skill.py"},
		{"typescript", "skill_square/1.0.0/skill.ts"},
		{"go", "skill_square/1.0.0/skill.go"},
		{"fortran", "skill_square/1.0.0/skill.bin"},
	}
	for _, tt := range tests {
		if got := SkillKey("skill_square", "1.0.0", tt.language); got != tt.want {
			t.Errorf("SkillKey(%s) = %v, want %v", tt.language, got, tt.want)
		}
	}

	if got := SkillPrefix("skill_square"); got != "skill_square/" {
		t.Errorf("SkillPrefix() = %v, want skill_square/", got)
	}
}

func TestLocalStorage_UploadAndDownload(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	key := SkillKey("skill_square", "1.0.0", "python")
	code := []byte("def run(inputs):\n    return {\"value\": inputs[\"value\"] ** 2}\n")

	if err := storage.UploadBytes(ctx, key, code); err != nil {
		t.Errorf("UploadBytes() error = %v", err)
	}

	exists, err := storage.Exists(ctx, key)
	if err != nil {
		t.Errorf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("Exists() = false, want true")
	}

	downloaded, err := storage.DownloadBytes(ctx, key)
	if err != nil {
		t.Errorf("DownloadBytes() error = %v", err)
	}
	if !bytes.Equal(downloaded, code) {
		t.Errorf("DownloadBytes() = %v, want %v", downloaded, code)
	}

	reader, err := storage.Download(ctx, key)
	if err != nil {
		t.Errorf("Download() error = %v", err)
	}
	defer reader.Close()

	readContent, err := io.ReadAll(reader)
	if err != nil {
		t.Errorf("Failed to read: %v", err)
	}
	if !bytes.Equal(readContent, code) {
		t.Errorf("Download() content = %v, want %v", readContent, code)
	}
}

func TestLocalStorage_Upload(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	key := SkillKey("skill_fetch", "2.1.0", "typescript")
	code := []byte("export function run(inputs) { return inputs; }\n")

	if err := storage.Upload(ctx, key, bytes.NewReader(code)); err != nil {
		t.Errorf("Upload() error = %v", err)
	}

	// Nested version directories are created on demand.
	filePath := filepath.Join(storage.basePath, key)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		t.Error("Upload() did not create file")
	}
}

func TestLocalStorage_Delete(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	key := SkillKey("skill_old", "0.1.0", "python")

	if err := storage.UploadBytes(ctx, key, []byte("print(1)")); err != nil {
		t.Fatalf("UploadBytes() error = %v", err)
	}

	if err := storage.Delete(ctx, key); err != nil {
		t.Errorf("Delete() error = %v", err)
	}

	exists, err := storage.Exists(ctx, key)
	if err != nil {
		t.Errorf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists() = true after delete, want false")
	}
}

func TestLocalStorage_GetURL(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	key := SkillKey("skill_square", "1.0.0", "python")

	url, err := storage.GetURL(ctx, key)
	if err != nil {
		t.Errorf("GetURL() error = %v", err)
	}

	expectedURL := "http://localhost:8080/blobs/" + key
	if url != expectedURL {
		t.Errorf("GetURL() = %v, want %v", url, expectedURL)
	}
}

func TestLocalStorage_ListObjects(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	// Three versions of one skill plus an unrelated skill.
	blobs := map[string][]byte{
		SkillKey("skill_square", "1.0.0", "python"): []byte("v1"),
		SkillKey("skill_square", "1.1.0", "python"): []byte("v11"),
		SkillKey("skill_square", "2.0.0", "python"): []byte("v200"),
		SkillKey("skill_fetch", "1.0.0", "go"):      []byte("other"),
	}
	for key, content := range blobs {
		if err := storage.UploadBytes(ctx, key, content); err != nil {
			t.Fatalf("UploadBytes() error = %v", err)
		}
	}

	objects, err := storage.ListObjects(ctx, SkillPrefix("skill_square"))
	if err != nil {
		t.Errorf("ListObjects() error = %v", err)
	}
	if len(objects) != 3 {
		t.Errorf("ListObjects() returned %d objects, want 3", len(objects))
	}
	for _, obj := range objects {
		expectedSize := int64(len(blobs[obj.Key]))
		if obj.Size != expectedSize {
			t.Errorf("Object %s size = %d, want %d", obj.Key, obj.Size, expectedSize)
		}
	}

	// Missing prefix lists empty, not an error.
	objects, err = storage.ListObjects(ctx, SkillPrefix("skill_ghost"))
	if err != nil {
		t.Errorf("ListObjects() error = %v", err)
	}
	if len(objects) != 0 {
		t.Errorf("ListObjects() returned %d objects for unknown prefix, want 0", len(objects))
	}
}

func TestLocalStorage_NonExistentFile(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	if _, err := storage.Download(ctx, "skill_ghost/1.0.0/skill.py"); err == nil {
		t.Error("Download() expected error for non-existent file")
	}

	exists, err := storage.Exists(ctx, "skill_ghost/1.0.0/skill.py")
	if err != nil {
		t.Errorf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists() = true for non-existent file")
	}

	// Deleting a missing blob succeeds.
	if err := storage.Delete(ctx, "skill_ghost/1.0.0/skill.py"); err != nil {
		t.Errorf("Delete() should not error for non-existent file: %v", err)
	}
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	if err := storage.UploadBytes(ctx, "../escape.txt", []byte("nope")); err == nil {
		t.Error("UploadBytes() expected error for key escaping the base path")
	}
	if _, err := storage.DownloadBytes(ctx, "../../etc/passwd"); err == nil {
		t.Error("DownloadBytes() expected error for key escaping the base path")
	}
}
