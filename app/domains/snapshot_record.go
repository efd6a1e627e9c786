package domains

import "time"

// StatusOnline is the status assumed when a report carries none
const StatusOnline = "online"

// StatusOffline is forced on clients whose last report is older than the threshold
const StatusOffline = "offline"

// SnapshotRecord is the latest known state of one reporting client
type SnapshotRecord struct {
	ClientID        string
	PCName          string
	IPAddress       string
	Port            int
	Status          string
	CurrentUser     *string
	SessionType     *string
	GPUName         *string
	GPUUsagePercent *float64
	GPUMemoryUsedMB *int64
	// LastReportedAt is whatever the client claimed; display only.
	LastReportedAt string
	// LastSeen is set by the server and carries a monotonic reading.
	LastSeen time.Time
}
