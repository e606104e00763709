// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Violation is one schema validation failure, located by JSON pointer.
type Violation struct {
	Pointer string `json:"pointer"`
	Keyword string `json:"keyword"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Pointer == "" {
		return v.Message
	}
	return fmt.Sprintf("%s: %s", v.Pointer, v.Message)
}

// Compile checks that doc is itself a well-formed JSON-Schema document
// (draft-07) and returns the compiled schema. A nil or empty document
// compiles to a permissive schema.
func Compile(doc map[string]interface{}) (*jsonschema.Schema, error) {
	if len(doc) == 0 {
		doc = map[string]interface{}{}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource("schema.json", strings.NewReader(string(b))); err != nil {
		return nil, err
	}
	return c.Compile("schema.json")
}

// Validate checks document against schemaDoc. A nil result means the
// document passes; otherwise every violation found is returned. An empty
// schema is permissive.
func Validate(document interface{}, schemaDoc map[string]interface{}) ([]Violation, error) {
	if len(schemaDoc) == 0 {
		return nil, nil
	}
	compiled, err := Compile(schemaDoc)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return ValidateCompiled(document, compiled), nil
}

// ValidateCompiled checks document against an already-compiled schema.
func ValidateCompiled(document interface{}, compiled *jsonschema.Schema) []Violation {
	if compiled == nil {
		return nil
	}
	err := compiled.Validate(normalize(document))
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if verr, ok := err.(*jsonschema.ValidationError); ok {
		ve = verr
	} else {
		return []Violation{{Message: err.Error()}}
	}
	return flatten(ve)
}

// flatten walks the validation error tree and keeps the leaves, which
// carry the concrete keyword failures.
func flatten(ve *jsonschema.ValidationError) []Violation {
	if len(ve.Causes) == 0 {
		return []Violation{{
			Pointer: pointerOf(ve.InstanceLocation),
			Keyword: keywordOf(ve.KeywordLocation),
			Message: ve.Message,
		}}
	}
	var out []Violation
	for _, cause := range ve.Causes {
		out = append(out, flatten(cause)...)
	}
	return out
}

func pointerOf(instanceLocation string) string {
	if instanceLocation == "" {
		return "/"
	}
	return instanceLocation
}

func keywordOf(keywordLocation string) string {
	parts := strings.Split(keywordLocation, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return ""
}

// normalize re-marshals Go-typed documents into the interface tree the
// validator expects. JSON numbers must arrive as json.Number or float64.
func normalize(document interface{}) interface{} {
	if document == nil {
		return map[string]interface{}{}
	}
	switch document.(type) {
	case map[string]interface{}, []interface{}, string, float64, bool, json.Number:
		return document
	}
	b, err := json.Marshal(document)
	if err != nil {
		return document
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return document
	}
	return out
}
