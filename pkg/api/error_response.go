// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wishub-ai/skillhub/pkg/errors"
)

// Transport-level failure codes. Requests rejected before reaching a
// service never map through the service error table.
const (
	codeUnauthorized = "UNAUTHORIZED"
	codeBadRequest   = "BAD_REQUEST"
)

// envelope is the wire shape of every response.
type envelope struct {
	Status  string       `json:"status"`
	Message string       `json:"message,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
	Error   *errorDetail `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// respondSuccess sends the success envelope.
func respondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{Status: "success", Data: data})
}

// respondSuccessMessage sends the success envelope with a message.
func respondSuccessMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, envelope{Status: "success", Message: message, Data: data})
}

// respondError maps a service error to the error envelope, using the
// error-code table for the HTTP status.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.CodeInvocationInternal
	}

	message := err.Error()
	details := ""
	if e, ok := err.(*errors.Error); ok {
		message = e.Message
		if e.InnerError != nil {
			details = e.InnerError.Error()
		}
	}

	c.JSON(errors.HTTPStatus(code), envelope{
		Status:  "error",
		Message: message,
		Error:   &errorDetail{Code: code, Details: details},
	})
}

// respondErrorCode sends the error envelope for an explicit code.
func respondErrorCode(c *gin.Context, code, message, details string) {
	c.JSON(errors.HTTPStatus(code), envelope{
		Status:  "error",
		Message: message,
		Error:   &errorDetail{Code: code, Details: details},
	})
}

// respondBadRequest rejects malformed request bodies and parameters.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, envelope{
		Status:  "error",
		Message: "malformed request",
		Error:   &errorDetail{Code: codeBadRequest, Details: message},
	})
}
