package services

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/self-ai-0084/selfailab-public/app/domains"
	"github.com/self-ai-0084/selfailab-public/app/dto"
	"github.com/self-ai-0084/selfailab-public/app/utils"
)

// RegistryService holds the latest snapshot of every client that has ever reported
type RegistryService struct {
	mu                  sync.RWMutex
	clients             map[string]*domains.SnapshotRecord
	offlineAfterSeconds int
	clock               utils.Clock
}

// NewRegistryService creates a registry. A nil clock means the system clock.
func NewRegistryService(offlineAfterSeconds int, clock utils.Clock) *RegistryService {
	if clock == nil {
		clock = utils.SystemClock
	}
	return &RegistryService{
		clients:             make(map[string]*domains.SnapshotRecord),
		offlineAfterSeconds: offlineAfterSeconds,
		clock:               clock,
	}
}

// ClientIdentity picks the registry key for a report
func ClientIdentity(report *dto.Report, ipAddress string) string {
	if report.ClientID != "" {
		return report.ClientID
	}
	if report.PCName != "" {
		return report.PCName
	}
	return ipAddress
}

// Upsert creates or overwrites the record for the report's client and returns a copy of it
func (s *RegistryService) Upsert(report *dto.Report, ipAddress string, port int) domains.SnapshotRecord {
	clientID := ClientIdentity(report, ipAddress)

	status := report.Status
	if status == "" {
		status = domains.StatusOnline
	}
	reportedAt := report.Timestamp
	if reportedAt == "" {
		reportedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	client, ok := s.clients[clientID]
	if !ok {
		pcName := report.PCName
		if pcName == "" {
			pcName = clientID
		}
		client = &domains.SnapshotRecord{ClientID: clientID, PCName: pcName, LastSeen: now}
		s.clients[clientID] = client
	}

	if report.PCName != "" {
		client.PCName = report.PCName
	}
	client.IPAddress = ipAddress
	client.Port = port
	client.Status = status
	client.CurrentUser = cloneString(report.CurrentUser)
	client.SessionType = cloneString(report.SessionType)
	client.GPUName = cloneString(report.GPUName)
	client.GPUUsagePercent = cloneFloat(report.GPUUsagePercent)
	client.GPUMemoryUsedMB = cloneInt(report.GPUMemoryUsedMB)
	client.LastReportedAt = reportedAt
	if now.After(client.LastSeen) {
		client.LastSeen = now
	}

	return *client
}

// Get returns a copy of the record for clientID
func (s *RegistryService) Get(clientID string) (domains.SnapshotRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	client, ok := s.clients[clientID]
	if !ok {
		return domains.SnapshotRecord{}, false
	}
	return *client, true
}

// Len returns the number of known clients
func (s *RegistryService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// View is Snapshot with the configured threshold
func (s *RegistryService) View() *domains.AggregateView {
	return s.Snapshot(s.offlineAfterSeconds)
}

// Snapshot projects every record at the current instant. Clients silent for longer
// than offlineAfterSeconds are reported offline whatever they last claimed.
func (s *RegistryService) Snapshot(offlineAfterSeconds int) *domains.AggregateView {
	s.mu.RLock()
	records := make([]domains.SnapshotRecord, 0, len(s.clients))
	for _, client := range s.clients {
		records = append(records, *client)
	}
	now := s.clock()
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		a, b := strings.ToLower(records[i].PCName), strings.ToLower(records[j].PCName)
		if a != b {
			return a < b
		}
		return records[i].ClientID < records[j].ClientID
	})

	threshold := time.Duration(offlineAfterSeconds) * time.Second
	views := make([]domains.ClientView, len(records))
	for i, rec := range records {
		elapsed := now.Sub(rec.LastSeen)
		if elapsed < 0 {
			elapsed = 0
		}
		status := rec.Status
		if elapsed > threshold {
			status = domains.StatusOffline
		}
		views[i] = domains.ClientView{
			ClientID:             rec.ClientID,
			PCName:               rec.PCName,
			IPAddress:            rec.IPAddress,
			Port:                 rec.Port,
			Status:               status,
			CurrentUser:          rec.CurrentUser,
			SessionType:          rec.SessionType,
			GPUUsagePercent:      rec.GPUUsagePercent,
			GPUMemoryUsedMB:      rec.GPUMemoryUsedMB,
			GPUName:              rec.GPUName,
			LastReportedAt:       rec.LastReportedAt,
			SecondsSinceLastSeen: utils.RoundTo(elapsed.Seconds(), 1),
		}
	}

	return &domains.AggregateView{
		GeneratedAt:         now.UTC().Format(time.RFC3339Nano),
		OfflineAfterSeconds: offlineAfterSeconds,
		Clients:             views,
	}
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
