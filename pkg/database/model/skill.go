// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/pgvector/pgvector-go"
)

const TableNameSkills = "skills"

// Skill represents one registered skill version. The code blob itself
// lives in object storage under StorageKey; the row holds metadata only.
type Skill struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement:true" json:"-"`
	SkillID     string `gorm:"column:skill_id;not null;uniqueIndex:idx_skill_id_version" json:"skill_id"`
	Version     string `gorm:"column:version;not null;uniqueIndex:idx_skill_id_version" json:"version"`
	SkillName   string `gorm:"column:skill_name;not null" json:"skill_name"`
	Description string `gorm:"column:description" json:"description"`
	Category    string `gorm:"column:category;index" json:"category"`
	Language    string `gorm:"column:language;not null;index" json:"language"`
	Author      string `gorm:"column:author" json:"author"`
	License     string `gorm:"column:license" json:"license"`

	TimeoutSeconds int            `gorm:"column:timeout_seconds;not null;default:30" json:"timeout_seconds"`
	Dependencies   JSONDocument   `gorm:"column:dependencies;default:{}" json:"dependencies"`
	InputSchema    SchemaDocument `gorm:"column:input_schema;default:{}" json:"input_schema"`
	OutputSchema   SchemaDocument `gorm:"column:output_schema;default:{}" json:"output_schema"`
	Tags           SkillTags      `gorm:"column:tags;default:[]" json:"tags"`

	// StorageKey locates the code blob in the object store
	StorageKey string `gorm:"column:storage_key;not null" json:"-"`
	CodeSize   int64  `gorm:"column:code_size;not null;default:0" json:"code_size"`

	// Usage statistics, updated atomically after each terminal invocation
	TotalCalls   int64 `gorm:"column:total_calls;default:0" json:"total_calls"`
	SuccessCount int64 `gorm:"column:success_count;default:0" json:"success_count"`
	Popularity   int64 `gorm:"column:popularity;default:0" json:"popularity"`

	// Semantic search (not exposed in JSON response)
	Embedding pgvector.Vector `gorm:"type:vector(1536)" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name
func (*Skill) TableName() string {
	return TableNameSkills
}

// SuccessRate returns successes over total calls, 0 when never invoked.
func (s *Skill) SuccessRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.TotalCalls)
}

// JSONDocument is a custom type for arbitrary JSONB object fields
type JSONDocument map[string]interface{}

// Value implements driver.Valuer interface
func (d JSONDocument) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(d)
	return string(b), err
}

// Scan implements sql.Scanner interface
func (d *JSONDocument) Scan(value interface{}) error {
	if value == nil {
		*d = make(JSONDocument)
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return errors.New("type assertion to []byte or string failed")
	}
}

// SchemaDocument is a JSONB field holding a JSON-Schema document.
// An empty document is permissive.
type SchemaDocument map[string]interface{}

// Value implements driver.Valuer interface
func (d SchemaDocument) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(d)
	return string(b), err
}

// Scan implements sql.Scanner interface
func (d *SchemaDocument) Scan(value interface{}) error {
	if value == nil {
		*d = make(SchemaDocument)
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return errors.New("type assertion to []byte or string failed")
	}
}

// IsEmpty reports whether the schema imposes no constraints.
func (d SchemaDocument) IsEmpty() bool {
	return len(d) == 0
}

// SkillTags is a custom type for JSONB tags array field
type SkillTags []string

// Value implements driver.Valuer interface
func (t SkillTags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal(t)
	return string(b), err
}

// Scan implements sql.Scanner interface
func (t *SkillTags) Scan(value interface{}) error {
	if value == nil {
		*t = make(SkillTags, 0)
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return errors.New("type assertion to []byte or string failed")
	}
}

// Supported skill languages
const (
	LanguagePython     = "python"
	LanguageTypeScript = "typescript"
	LanguageGo         = "go"
)

// SupportedLanguages returns the sandbox-supported language set.
func SupportedLanguages() []string {
	return []string{LanguagePython, LanguageTypeScript, LanguageGo}
}

// IsSupportedLanguage reports whether the sandbox can run the language.
func IsSupportedLanguage(language string) bool {
	switch language {
	case LanguagePython, LanguageTypeScript, LanguageGo:
		return true
	default:
		return false
	}
}
