// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package search

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go"
	"github.com/opensearch-project/opensearch-go/opensearchapi"

	"github.com/wishub-ai/skillhub/pkg/config"
	"github.com/wishub-ai/skillhub/pkg/database/model"
	"github.com/wishub-ai/skillhub/pkg/logger/log"
)

// Query narrows a discovery search. Zero values mean "no filter".
type Query struct {
	Text     string
	Category string
	Language string
	SortBy   string // name, date, popularity; empty scores by relevance
	From     int
	Size     int
}

// Index is the discovery search index. One document per skill_id,
// kept at the latest registered version; the database stays the
// source of truth.
type Index interface {
	Upsert(ctx context.Context, skill *model.Skill) error
	Delete(ctx context.Context, skillID string) error
	Search(ctx context.Context, query Query) ([]string, int64, error)
}

// skillDocument is the indexed projection of a skill row.
type skillDocument struct {
	SkillID     string   `json:"skill_id"`
	Version     string   `json:"version"`
	SkillName   string   `json:"skill_name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Language    string   `json:"language"`
	Tags        []string `json:"tags"`
	Popularity  int64    `json:"popularity"`
	CreatedAt   string   `json:"created_at"`
}

const indexMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 1
  },
  "mappings": {
    "properties": {
      "skill_id":    {"type": "keyword"},
      "version":     {"type": "keyword"},
      "skill_name":  {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "description": {"type": "text"},
      "category":    {"type": "keyword"},
      "language":    {"type": "keyword"},
      "tags":        {"type": "keyword"},
      "popularity":  {"type": "long"},
      "created_at":  {"type": "date"}
    }
  }
}`

// OpenSearchIndex implements Index on an OpenSearch cluster.
type OpenSearchIndex struct {
	client *opensearch.Client
	index  string
}

// NewOpenSearchIndex connects to the configured cluster and ensures the
// skill index exists.
func NewOpenSearchIndex(cfg config.SearchConfig) (*OpenSearchIndex, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{
			fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port),
		},
		Username: cfg.Username,
		Password: cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipTLS,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize opensearch client: %w", err)
	}

	idx := &OpenSearchIndex{client: client, index: cfg.Index}
	if err := idx.ensureIndex(context.Background()); err != nil {
		return nil, err
	}
	return idx, nil
}

// ensureIndex creates the skill index with its mapping if it is missing.
func (s *OpenSearchIndex) ensureIndex(ctx context.Context) error {
	exists := opensearchapi.IndicesExistsRequest{Index: []string{s.index}}
	res, err := exists.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("check index %s: %w", s.index, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	create := opensearchapi.IndicesCreateRequest{
		Index: s.index,
		Body:  strings.NewReader(indexMapping),
	}
	res, err = create.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("create index %s: %w", s.index, err)
	}
	defer res.Body.Close()
	// A concurrent replica may have created the index first.
	if res.IsError() && res.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("create index %s: %s", s.index, res.String())
	}
	return nil
}

// Upsert writes the skill document, replacing any previous version.
func (s *OpenSearchIndex) Upsert(ctx context.Context, skill *model.Skill) error {
	doc := skillDocument{
		SkillID:     skill.SkillID,
		Version:     skill.Version,
		SkillName:   skill.SkillName,
		Description: skill.Description,
		Category:    skill.Category,
		Language:    skill.Language,
		Tags:        skill.Tags,
		Popularity:  skill.Popularity,
		CreatedAt:   skill.CreatedAt.Format(time.RFC3339),
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal skill document: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      s.index,
		DocumentID: skill.SkillID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index skill %s: %w", skill.SkillID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index skill %s: %s", skill.SkillID, res.String())
	}
	return nil
}

// Delete removes a skill document. Missing documents are not an error.
func (s *OpenSearchIndex) Delete(ctx context.Context, skillID string) error {
	req := opensearchapi.DeleteRequest{
		Index:      s.index,
		DocumentID: skillID,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("delete skill %s from index: %w", skillID, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete skill %s from index: %s", skillID, res.String())
	}
	return nil
}

// Search runs the discovery query and returns matching skill ids in rank
// order plus the total hit count.
func (s *OpenSearchIndex) Search(ctx context.Context, query Query) ([]string, int64, error) {
	body := buildQuery(query)
	queryBytes, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal search query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(queryBytes)),
		s.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search skills: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, fmt.Errorf("search skills: %s", res.String())
	}

	var osResp struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source skillDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&osResp); err != nil {
		return nil, 0, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]string, 0, len(osResp.Hits.Hits))
	for _, hit := range osResp.Hits.Hits {
		ids = append(ids, hit.Source.SkillID)
	}
	log.Debugf("Search %q matched %d skills", query.Text, osResp.Hits.Total.Value)
	return ids, osResp.Hits.Total.Value, nil
}

// buildQuery assembles the OpenSearch request body for a discovery query.
func buildQuery(query Query) map[string]interface{} {
	var must []map[string]interface{}
	if query.Text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query.Text,
				"fields": []string{"skill_name^2", "description", "tags"},
			},
		})
	}

	var filter []map[string]interface{}
	if query.Category != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"category": query.Category},
		})
	}
	if query.Language != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"language": query.Language},
		})
	}

	boolQuery := map[string]interface{}{}
	if len(must) > 0 {
		boolQuery["must"] = must
	} else {
		boolQuery["must"] = []map[string]interface{}{
			{"match_all": map[string]interface{}{}},
		}
	}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}

	body := map[string]interface{}{
		"from":  query.From,
		"size":  query.Size,
		"query": map[string]interface{}{"bool": boolQuery},
	}
	if sort := sortClause(query); sort != nil {
		body["sort"] = sort
	}
	return body
}

func sortClause(query Query) []map[string]interface{} {
	switch query.SortBy {
	case "name":
		return []map[string]interface{}{
			{"skill_name.keyword": map[string]interface{}{"order": "asc"}},
		}
	case "popularity":
		return []map[string]interface{}{
			{"popularity": map[string]interface{}{"order": "desc"}},
		}
	case "date":
		return []map[string]interface{}{
			{"created_at": map[string]interface{}{"order": "desc"}},
		}
	default:
		// Relevance order when a text query is present, newest first otherwise.
		if query.Text != "" {
			return nil
		}
		return []map[string]interface{}{
			{"created_at": map[string]interface{}{"order": "desc"}},
		}
	}
}
