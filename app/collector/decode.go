package collector

import (
	stdjson "encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/self-ai-0084/selfailab-public/app/dto"
	"github.com/self-ai-0084/selfailab-public/app/utils"
)

// Numbers stay json.Number so each field converts, and fails, on its own.
var json = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// ErrNotObject is returned for well-formed JSON that is not an object
var ErrNotObject = errors.New("message is not a JSON object")

// DecodeReport parses one line into a Report. Fields with the wrong type or out of
// range are nulled and listed in degraded; only unparseable or non-object input is an error.
func DecodeReport(line []byte) (*dto.Report, []string, error) {
	var raw interface{}
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, nil, fmt.Errorf("invalid JSON: %w", err)
	}
	msg, ok := raw.(map[string]interface{})
	if !ok {
		return nil, nil, ErrNotObject
	}

	var degraded []string
	report := &dto.Report{
		ClientID:  identityField(msg, "client_id"),
		PCName:    identityField(msg, "pc_name"),
		Timestamp: textField(msg, "timestamp"),
		Status:    textField(msg, "status"),
	}

	for _, f := range []struct {
		key string
		dst **string
	}{
		{"current_user", &report.CurrentUser},
		{"session_type", &report.SessionType},
		{"gpu_name", &report.GPUName},
	} {
		v, ok := nullableText(msg, f.key)
		if !ok {
			degraded = append(degraded, f.key)
		}
		*f.dst = v
	}

	usage, ok := numberField(msg, "gpu_usage_percent")
	if !ok {
		degraded = append(degraded, "gpu_usage_percent")
	}
	report.GPUUsagePercent = usage

	memory, ok := numberField(msg, "gpu_memory_used_mb")
	if !ok {
		degraded = append(degraded, "gpu_memory_used_mb")
	}
	switch {
	case memory == nil:
	case *memory < 0 || *memory >= math.MaxInt64:
		degraded = append(degraded, "gpu_memory_used_mb")
	default:
		mb := int64(*memory)
		report.GPUMemoryUsedMB = &mb
	}

	invalid, err := utils.InvalidFields(report)
	if err != nil {
		return nil, nil, fmt.Errorf("validate report: %w", err)
	}
	for _, name := range invalid {
		if report.ClearField(name) {
			degraded = append(degraded, name)
		}
	}

	return report, degraded, nil
}

// identityField accepts strings and numbers, matching how agents that send numeric ids expect to be keyed.
func identityField(msg map[string]interface{}, key string) string {
	switch v := msg[key].(type) {
	case string:
		return v
	case stdjson.Number:
		return v.String()
	}
	return ""
}

func textField(msg map[string]interface{}, key string) string {
	if v, ok := msg[key].(string); ok {
		return v
	}
	return ""
}

// nullableText returns ok=false when the key holds something other than a string or null.
func nullableText(msg map[string]interface{}, key string) (*string, bool) {
	switch v := msg[key].(type) {
	case nil:
		return nil, true
	case string:
		if v == "" {
			return nil, true
		}
		return &v, true
	}
	return nil, false
}

// numberField accepts JSON numbers and numeric strings; ok=false means the value was unusable.
func numberField(msg map[string]interface{}, key string) (*float64, bool) {
	var f float64
	switch v := msg[key].(type) {
	case nil:
		return nil, true
	case stdjson.Number:
		parsed, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return nil, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, true
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		f = parsed
	default:
		return nil, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return &f, true
}
