// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the skill protocol server configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Search    SearchConfig    `yaml:"search"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Sandbox   SandboxConfig   `yaml:"sandbox"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Prefix string `yaml:"prefix"`
}

// AuthConfig represents API authentication configuration
type AuthConfig struct {
	Required bool   `yaml:"required"`
	Header   string `yaml:"header"`
	APIKey   string `yaml:"api_key"` // empty accepts any non-empty key
}

// DatabaseConfig represents relational store configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"db_name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// StorageConfig represents object storage configuration
type StorageConfig struct {
	Provider  string `yaml:"provider"` // minio, s3, local
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	LocalDir  string `yaml:"local_dir"`
}

// SearchConfig represents the optional discovery index backend
type SearchConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Index           string `yaml:"index"`
	InsecureSkipTLS bool   `yaml:"insecure_skip_tls"`
}

// EmbeddingConfig represents the optional embedding service used for
// semantic discovery re-ranking
type EmbeddingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
}

// SandboxConfig represents sandbox runtime configuration
type SandboxConfig struct {
	Backend         string `yaml:"backend"` // subprocess, docker
	WorkDir         string `yaml:"work_dir"`
	MaxOutputBytes  int64  `yaml:"max_output_bytes"`
	MaxMemoryMB     int    `yaml:"max_memory_mb"`
	GraceSeconds    int    `yaml:"grace_seconds"`
	PythonBin       string `yaml:"python_bin"`
	NodeBin         string `yaml:"node_bin"`
	GoBin           string `yaml:"go_bin"`
	DockerBin       string `yaml:"docker_bin"`
	ImagePython     string `yaml:"image_python"`
	ImageTypeScript string `yaml:"image_typescript"`
	ImageGo         string `yaml:"image_go"`
	NetworkDisabled bool   `yaml:"network_disabled"`
}

// SchedulerConfig represents invocation scheduler configuration
type SchedulerConfig struct {
	MaxConcurrent    int `yaml:"max_concurrent"`
	QueueSize        int `yaml:"queue_size"` // 0 means unbounded
	RetentionMinutes int `yaml:"retention_minutes"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console, structured
	File   string `yaml:"file"`   // empty logs to stdout
}

// Load loads configuration from environment variables and config file.
// Unrecognized environment variables are ignored.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:   getEnv("API_HOST", "0.0.0.0"),
			Port:   getEnvInt("API_PORT", 8000),
			Prefix: getEnv("API_PREFIX", "/api/v1"),
		},
		Auth: AuthConfig{
			Required: getEnvBool("AUTH_REQUIRED", true),
			Header:   getEnv("AUTH_HEADER", "X-API-Key"),
			APIKey:   getEnv("API_KEY", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			DBName:   getEnv("POSTGRES_DB", "skillhub"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Storage: StorageConfig{
			Provider:  getEnv("STORAGE_PROVIDER", "minio"),
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			Bucket:    getEnv("MINIO_BUCKET", "skills"),
			Region:    getEnv("S3_REGION", "us-east-1"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			LocalDir:  getEnv("STORAGE_LOCAL_DIR", "/var/lib/skillhub/blobs"),
		},
		Search: SearchConfig{
			Enabled:         getEnvBool("SEARCH_ENABLED", false),
			Host:            getEnv("SEARCH_HOST", "localhost"),
			Port:            getEnvInt("SEARCH_PORT", 9200),
			Username:        getEnv("SEARCH_USERNAME", ""),
			Password:        getEnv("SEARCH_PASSWORD", ""),
			Index:           getEnv("SEARCH_INDEX", "skills"),
			InsecureSkipTLS: getEnvBool("SEARCH_INSECURE_SKIP_TLS", true),
		},
		Embedding: EmbeddingConfig{
			Enabled:    getEnvBool("EMBEDDING_ENABLED", false),
			Model:      getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 1536),
			APIKey:     getEnv("EMBEDDING_API_KEY", ""),
			BaseURL:    getEnv("EMBEDDING_BASE_URL", ""),
		},
		Sandbox: SandboxConfig{
			Backend:         getEnv("SANDBOX_BACKEND", "subprocess"),
			WorkDir:         getEnv("SANDBOX_WORKDIR", os.TempDir()),
			MaxOutputBytes:  getEnvInt64("SANDBOX_MAX_OUTPUT_BYTES", 10*1024*1024),
			MaxMemoryMB:     getEnvInt("SANDBOX_MAX_MEMORY_MB", 512),
			GraceSeconds:    getEnvInt("SANDBOX_GRACE_SECONDS", 1),
			PythonBin:       getEnv("SANDBOX_PYTHON_BIN", "python3"),
			NodeBin:         getEnv("SANDBOX_NODE_BIN", "node"),
			GoBin:           getEnv("SANDBOX_GO_BIN", "go"),
			DockerBin:       getEnv("DOCKER_BIN", "docker"),
			ImagePython:     getEnv("DOCKER_IMAGE_PYTHON", "python:3.11-slim"),
			ImageTypeScript: getEnv("DOCKER_IMAGE_TYPESCRIPT", "node:20-slim"),
			ImageGo:         getEnv("DOCKER_IMAGE_GO", "golang:1.21-alpine"),
			NetworkDisabled: getEnvBool("DOCKER_NETWORK_DISABLED", true),
		},
		Scheduler: SchedulerConfig{
			MaxConcurrent:    getEnvInt("SCHEDULER_MAX_CONCURRENT", 100),
			QueueSize:        getEnvInt("SCHEDULER_QUEUE_SIZE", 0),
			RetentionMinutes: getEnvInt("SCHEDULER_RETENTION_MINUTES", 60),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
			File:   getEnv("LOG_FILE", ""),
		},
	}

	// Try to load from config file
	configPath := getEnv("CONFIG_PATH", "/etc/skillhub/config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
