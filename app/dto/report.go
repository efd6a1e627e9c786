package dto

// Report is one heartbeat message as sent by a reporting agent
type Report struct {
	ClientID        string   `json:"client_id"`
	PCName          string   `json:"pc_name"`
	Status          string   `json:"status"`
	CurrentUser     *string  `json:"current_user"`
	SessionType     *string  `json:"session_type"`
	GPUName         *string  `json:"gpu_name"`
	GPUUsagePercent *float64 `json:"gpu_usage_percent" validate:"omitempty,min=0,max=100"`
	GPUMemoryUsedMB *int64   `json:"gpu_memory_used_mb" validate:"omitempty,min=0"`
	Timestamp       string   `json:"timestamp"`
}

// ClearField nulls the field with the given json name.
// Only the nullable descriptive fields can be cleared.
func (r *Report) ClearField(name string) bool {
	switch name {
	case "current_user":
		r.CurrentUser = nil
	case "session_type":
		r.SessionType = nil
	case "gpu_name":
		r.GPUName = nil
	case "gpu_usage_percent":
		r.GPUUsagePercent = nil
	case "gpu_memory_used_mb":
		r.GPUMemoryUsedMB = nil
	default:
		return false
	}
	return true
}
