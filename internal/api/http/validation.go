package http

import (
	"fmt"
	"regexp"

	"github.com/GriffinCanCode/devext/internal/shared/id"
	"github.com/GriffinCanCode/devext/internal/types"
)

const (
	maxToolIDLen = 128
	maxParamKeys = 64
	maxDepth     = 10
)

var toolIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_.]*$`)

func validateToolID(toolID string) error {
	if len(toolID) > maxToolIDLen {
		return fmt.Errorf("tool_id exceeds %d characters", maxToolIDLen)
	}
	if !toolIDPattern.MatchString(toolID) {
		return fmt.Errorf("tool_id %q is malformed", toolID)
	}
	return nil
}

func validateSessionID(sessionID string) error {
	if !id.IsSessionID(sessionID) {
		return fmt.Errorf("session_id %q is malformed", sessionID)
	}
	return nil
}

func validateCategory(raw string) error {
	switch types.Category(raw) {
	case types.CategoryDevelopment, types.CategoryI18n, types.CategoryAI:
		return nil
	}
	return fmt.Errorf("unknown category %q", raw)
}

func validateParams(params map[string]interface{}) error {
	if len(params) > maxParamKeys {
		return fmt.Errorf("too many params: %d (max %d)", len(params), maxParamKeys)
	}
	return checkDepth(params, 0)
}

func checkDepth(v interface{}, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("params nested deeper than %d levels", maxDepth)
	}
	switch val := v.(type) {
	case map[string]interface{}:
		for _, item := range val {
			if err := checkDepth(item, depth+1); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, item := range val {
			if err := checkDepth(item, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
