// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package search

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		check func(t *testing.T, body map[string]interface{})
	}{
		{
			name:  "empty query matches all, newest first",
			query: Query{From: 0, Size: 20},
			check: func(t *testing.T, body map[string]interface{}) {
				boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
				must := boolQuery["must"].([]interface{})
				require.Len(t, must, 1)
				assert.Contains(t, must[0].(map[string]interface{}), "match_all")
				sort := body["sort"].([]interface{})
				assert.Contains(t, sort[0].(map[string]interface{}), "created_at")
			},
		},
		{
			name:  "text query ranks by relevance",
			query: Query{Text: "parse pdf", Size: 20},
			check: func(t *testing.T, body map[string]interface{}) {
				boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
				must := boolQuery["must"].([]interface{})
				require.Len(t, must, 1)
				assert.Contains(t, must[0].(map[string]interface{}), "multi_match")
				assert.NotContains(t, body, "sort")
			},
		},
		{
			name:  "filters become term clauses",
			query: Query{Category: "data", Language: "python", Size: 20},
			check: func(t *testing.T, body map[string]interface{}) {
				boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
				filter := boolQuery["filter"].([]interface{})
				require.Len(t, filter, 2)
			},
		},
		{
			name:  "explicit popularity sort",
			query: Query{Text: "csv", SortBy: "popularity", Size: 20},
			check: func(t *testing.T, body map[string]interface{}) {
				sort := body["sort"].([]interface{})
				assert.Contains(t, sort[0].(map[string]interface{}), "popularity")
			},
		},
		{
			name:  "name sort uses keyword field",
			query: Query{SortBy: "name", Size: 20},
			check: func(t *testing.T, body map[string]interface{}) {
				sort := body["sort"].([]interface{})
				assert.Contains(t, sort[0].(map[string]interface{}), "skill_name.keyword")
			},
		},
		{
			name:  "pagination passes through",
			query: Query{From: 40, Size: 20},
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, float64(40), body["from"])
				assert.Equal(t, float64(20), body["size"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(buildQuery(tt.query))
			require.NoError(t, err)
			// Round-trip through JSON so the assertions see what the
			// cluster would receive.
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(raw, &body))
			tt.check(t, body)
		})
	}
}
