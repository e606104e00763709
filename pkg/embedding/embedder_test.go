// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package embedding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wishub-ai/skillhub/pkg/config"
)

// stubEmbedder points the client at a local server returning a fixed body.
func stubEmbedder(t *testing.T, body string) *OpenAIEmbedder {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return NewOpenAIEmbedder(config.EmbeddingConfig{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
		Model:   "text-embedding-3-small",
	})
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	e := stubEmbedder(t, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"model":"text-embedding-3-small"}`)

	vec, err := e.Embed(context.Background(), "square a number")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("len(vec) = %d, want 3", len(vec))
	}
}

func TestOpenAIEmbedder_EmptyResponse(t *testing.T) {
	e := stubEmbedder(t, `{"object":"list","data":[],"model":"text-embedding-3-small"}`)

	if _, err := e.Embed(context.Background(), "square a number"); err == nil {
		t.Fatal("Embed() expected error for a response with no data")
	}
}

func TestNewEmbedder_Fallbacks(t *testing.T) {
	if _, ok := NewEmbedder(config.EmbeddingConfig{Enabled: false}).(*NullEmbedder); !ok {
		t.Error("disabled config should yield NullEmbedder")
	}
	if _, ok := NewEmbedder(config.EmbeddingConfig{Enabled: true}).(*NullEmbedder); !ok {
		t.Error("missing API key should yield NullEmbedder")
	}
}
