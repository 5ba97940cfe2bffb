package providers

import (
	"fmt"

	"github.com/GriffinCanCode/devext/internal/types"
)

// Success creates successful result
func Success(data map[string]interface{}) (*types.Result, error) {
	return &types.Result{Success: true, Data: data}, nil
}

// Text creates successful result with a human-readable rendering
func Text(text string, data map[string]interface{}) (*types.Result, error) {
	return &types.Result{Success: true, Text: text, Data: data}, nil
}

// Failure creates failed result
func Failure(message string) (*types.Result, error) {
	msg := message
	return &types.Result{Success: false, Text: message, Error: &msg}, nil
}

// Failuref formats a failed result
func Failuref(format string, args ...interface{}) (*types.Result, error) {
	return Failure(fmt.Sprintf(format, args...))
}

// GetString extracts string parameter
func GetString(params map[string]interface{}, key string, required bool) (string, error) {
	val, ok := params[key]
	if !ok || val == nil {
		if required {
			return "", fmt.Errorf("%s parameter required", key)
		}
		return "", nil
	}

	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%s must be string", key)
	}

	if required && str == "" {
		return "", fmt.Errorf("%s cannot be empty", key)
	}

	return str, nil
}

// GetBool extracts bool parameter
func GetBool(params map[string]interface{}, key string, defaultVal bool) bool {
	b, ok := params[key].(bool)
	if !ok {
		return defaultVal
	}
	return b
}

// GetStringSlice extracts a list of strings; JSON arrays arrive as []interface{}
func GetStringSlice(params map[string]interface{}, key string) ([]string, error) {
	switch v := params[key].(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be string", key, i)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be an array of strings", key)
	}
}

// GetStringMap extracts an object whose values are strings
func GetStringMap(params map[string]interface{}, key string, required bool) (map[string]string, error) {
	switch v := params[key].(type) {
	case nil:
		if required {
			return nil, fmt.Errorf("%s parameter required", key)
		}
		return nil, nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		out := make(map[string]string, len(v))
		for k, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s.%s must be string", key, k)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be an object", key)
	}
}
