// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package workflow

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// placeholderPattern matches ${node} and ${node.field.subfield}.
var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_-]+(?:\.[A-Za-z0-9_-]+)*)\}`)

// referenceError marks a placeholder whose source field does not exist.
// The owning node fails with kind reference_missing before invocation.
type referenceError struct {
	ref string
}

func (e *referenceError) Error() string {
	return fmt.Sprintf("reference ${%s} has no value", e.ref)
}

// collectReferences returns the root node names of every placeholder in
// an inputs template.
func collectReferences(value interface{}) []string {
	var refs []string
	walkStrings(value, func(s string) {
		for _, match := range placeholderPattern.FindAllStringSubmatch(s, -1) {
			root := strings.SplitN(match[1], ".", 2)[0]
			refs = append(refs, root)
		}
	})
	return refs
}

func walkStrings(value interface{}, visit func(string)) {
	switch v := value.(type) {
	case string:
		visit(v)
	case map[string]interface{}:
		for _, item := range v {
			walkStrings(item, visit)
		}
	case []interface{}:
		for _, item := range v {
			walkStrings(item, visit)
		}
	}
}

// resolveInputs substitutes upstream results into an inputs template. A
// string that is exactly one placeholder takes the referenced JSON value
// with its type preserved; placeholders embedded in longer strings
// substitute textually.
func resolveInputs(template map[string]interface{}, results map[string]interface{}) (map[string]interface{}, error) {
	if template == nil {
		return map[string]interface{}{}, nil
	}
	resolved, err := resolveValue(template, results)
	if err != nil {
		return nil, err
	}
	return resolved.(map[string]interface{}), nil
}

func resolveValue(value interface{}, results map[string]interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return resolveString(v, results)
	case map[string]interface{}:
		resolved := make(map[string]interface{}, len(v))
		for key, item := range v {
			r, err := resolveValue(item, results)
			if err != nil {
				return nil, err
			}
			resolved[key] = r
		}
		return resolved, nil
	case []interface{}:
		resolved := make([]interface{}, len(v))
		for i, item := range v {
			r, err := resolveValue(item, results)
			if err != nil {
				return nil, err
			}
			resolved[i] = r
		}
		return resolved, nil
	default:
		return value, nil
	}
}

func resolveString(s string, results map[string]interface{}) (interface{}, error) {
	// Whole-value placeholder: structural substitution.
	if match := placeholderPattern.FindStringSubmatch(s); match != nil && match[0] == s {
		value, ok := lookup(match[1], results)
		if !ok {
			return nil, &referenceError{ref: match[1]}
		}
		return value, nil
	}

	// Embedded placeholders: textual substitution.
	var refErr error
	replaced := placeholderPattern.ReplaceAllStringFunc(s, func(raw string) string {
		path := placeholderPattern.FindStringSubmatch(raw)[1]
		value, ok := lookup(path, results)
		if !ok {
			if refErr == nil {
				refErr = &referenceError{ref: path}
			}
			return raw
		}
		return stringify(value)
	})
	if refErr != nil {
		return nil, refErr
	}
	return replaced, nil
}

// lookup walks a dotted path through the results map.
func lookup(path string, results map[string]interface{}) (interface{}, bool) {
	segments := strings.Split(path, ".")
	value, ok := results[segments[0]]
	if !ok {
		return nil, false
	}
	for _, segment := range segments[1:] {
		object, isMap := value.(map[string]interface{})
		if !isMap {
			return nil, false
		}
		value, ok = object[segment]
		if !ok {
			return nil, false
		}
	}
	return value, true
}

// stringify renders a value for embedding inside a larger string.
// Scalars print bare; structured values embed as JSON.
func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return "null"
	case float64, bool, int, int64:
		return fmt.Sprint(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}
