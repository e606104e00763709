// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/wishub-ai/skillhub/pkg/config"
)

// Storage defines the interface for blob storage operations
type Storage interface {
	// Upload uploads a file to the storage from an io.Reader
	Upload(ctx context.Context, key string, reader io.Reader) error

	// UploadBytes uploads bytes to the storage
	UploadBytes(ctx context.Context, key string, data []byte) error

	// Download downloads a file from the storage
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// DownloadBytes downloads a file and returns its content as bytes
	DownloadBytes(ctx context.Context, key string) ([]byte, error)

	// Delete deletes a file from the storage
	Delete(ctx context.Context, key string) error

	// Exists checks if a file exists in the storage
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns a presigned URL for the file (for S3-compatible storage)
	GetURL(ctx context.Context, key string) (string, error)

	// ListObjects lists all objects with the given prefix
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// ObjectInfo represents information about a stored object
type ObjectInfo struct {
	Key  string
	Size int64
}

// SkillKey builds the canonical blob key for a skill version.
func SkillKey(skillID, version, language string) string {
	return fmt.Sprintf("%s/%s/skill.%s", skillID, version, codeExtension(language))
}

// SkillPrefix is the key prefix covering every blob of a skill.
func SkillPrefix(skillID string) string {
	return skillID + "/"
}

func codeExtension(language string) string {
	switch language {
	case "python":
		return "py"
	case "typescript":
		return "ts"
	case "go":
		return "go"
	default:
		return "bin"
	}
}

// NewStorage creates a new Storage instance based on configuration
func NewStorage(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Provider {
	case "minio", "":
		return NewMinioStorage(MinioConfig{
			Endpoint:  cfg.Endpoint,
			Bucket:    cfg.Bucket,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			URLExpiry: time.Hour,
		})
	case "s3":
		return NewS3Storage(S3Config{
			Endpoint:        cfg.Endpoint,
			Region:          cfg.Region,
			Bucket:          cfg.Bucket,
			AccessKeyID:     cfg.AccessKey,
			SecretAccessKey: cfg.SecretKey,
			URLExpiry:       time.Hour,
		})
	case "local":
		return NewLocalStorage(cfg.LocalDir, "file://"+cfg.LocalDir)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
}
