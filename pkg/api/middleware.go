// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wishub-ai/skillhub/pkg/config"
)

const defaultAuthHeader = "X-API-Key"

// contextKeyAPIKey is where the middleware stores the caller's key.
const contextKeyAPIKey = "api_key"

// AuthMiddleware enforces API-key authentication on the skill routes.
// When no key is configured, any non-empty key is accepted; the header
// must still be present so callers are identifiable in the access log.
func AuthMiddleware(cfg config.AuthConfig) gin.HandlerFunc {
	header := cfg.Header
	if header == "" {
		header = defaultAuthHeader
	}

	return func(c *gin.Context) {
		if !cfg.Required {
			c.Next()
			return
		}

		key := c.GetHeader(header)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{
				Status:  "error",
				Message: "missing API key",
				Error:   &errorDetail{Code: codeUnauthorized, Details: "set the " + header + " header"},
			})
			return
		}
		if cfg.APIKey != "" && key != cfg.APIKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{
				Status:  "error",
				Message: "invalid API key",
				Error:   &errorDetail{Code: codeUnauthorized},
			})
			return
		}

		c.Set(contextKeyAPIKey, key)
		c.Next()
	}
}
