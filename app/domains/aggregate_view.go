package domains

// ClientView is the read projection of a SnapshotRecord
type ClientView struct {
	ClientID             string   `json:"client_id"`
	PCName               string   `json:"pc_name"`
	IPAddress            string   `json:"ip_address"`
	Port                 int      `json:"port"`
	Status               string   `json:"status"`
	CurrentUser          *string  `json:"current_user"`
	SessionType          *string  `json:"session_type"`
	GPUUsagePercent      *float64 `json:"gpu_usage_percent"`
	GPUMemoryUsedMB      *int64   `json:"gpu_memory_used_mb"`
	GPUName              *string  `json:"gpu_name"`
	LastReportedAt       string   `json:"last_reported_at"`
	SecondsSinceLastSeen float64  `json:"seconds_since_last_seen"`
}

// AggregateView is the fleet state at one instant
type AggregateView struct {
	GeneratedAt         string       `json:"generated_at"`
	OfflineAfterSeconds int          `json:"offline_after_seconds"`
	Clients             []ClientView `json:"clients"`
}

// OnlineCount counts clients whose projected status is not offline
func (v *AggregateView) OnlineCount() int {
	n := 0
	for _, c := range v.Clients {
		if c.Status != StatusOffline {
			n++
		}
	}
	return n
}
