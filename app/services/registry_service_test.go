package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/self-ai-0084/selfailab-public/app/domains"
	"github.com/self-ai-0084/selfailab-public/app/dto"
	"github.com/self-ai-0084/selfailab-public/app/utils/clocktest"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
func intPtr(i int64) *int64       { return &i }

func newTestRegistry(t *testing.T) (*RegistryService, *clocktest.ManualClock) {
	t.Helper()
	clock := clocktest.NewManualClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	return NewRegistryService(30, clock.Now), clock
}

func TestUpsertOverwritesFields(t *testing.T) {
	registry, _ := newTestRegistry(t)

	registry.Upsert(&dto.Report{
		ClientID:        "lab-01",
		PCName:          "LAB-01",
		Status:          "busy",
		CurrentUser:     strPtr("alice"),
		SessionType:     strPtr("console"),
		GPUName:         strPtr("RTX 4090"),
		GPUUsagePercent: floatPtr(55.5),
		GPUMemoryUsedMB: intPtr(2048),
		Timestamp:       "2026-01-02T03:04:00+00:00",
	}, "10.0.0.1", 50000)

	rec := registry.Upsert(&dto.Report{ClientID: "lab-01"}, "10.0.0.2", 50001)

	assert.Equal(t, 1, registry.Len())
	assert.Equal(t, "lab-01", rec.ClientID)
	assert.Equal(t, "LAB-01", rec.PCName, "display name survives a report without pc_name")
	assert.Equal(t, "10.0.0.2", rec.IPAddress)
	assert.Equal(t, 50001, rec.Port)
	assert.Equal(t, domains.StatusOnline, rec.Status)
	assert.Nil(t, rec.CurrentUser)
	assert.Nil(t, rec.SessionType)
	assert.Nil(t, rec.GPUName)
	assert.Nil(t, rec.GPUUsagePercent)
	assert.Nil(t, rec.GPUMemoryUsedMB)
	assert.NotEmpty(t, rec.LastReportedAt)
	assert.NotEqual(t, "2026-01-02T03:04:00+00:00", rec.LastReportedAt)
}

func TestUpsertLatestMessageWins(t *testing.T) {
	registry, _ := newTestRegistry(t)

	for i := 0; i < 5; i++ {
		registry.Upsert(&dto.Report{
			ClientID:        "lab-02",
			PCName:          fmt.Sprintf("PC-%d", i),
			Status:          fmt.Sprintf("state-%d", i),
			GPUUsagePercent: floatPtr(float64(i)),
			Timestamp:       fmt.Sprintf("ts-%d", i),
		}, "10.0.0.3", 40000+i)
	}

	rec, ok := registry.Get("lab-02")
	require.True(t, ok)
	assert.Equal(t, 1, registry.Len())
	assert.Equal(t, "PC-4", rec.PCName)
	assert.Equal(t, "state-4", rec.Status)
	assert.Equal(t, 4.0, *rec.GPUUsagePercent)
	assert.Equal(t, "ts-4", rec.LastReportedAt)
	assert.Equal(t, 40004, rec.Port)
}

func TestUpsertIdentityFallback(t *testing.T) {
	registry, _ := newTestRegistry(t)

	rec := registry.Upsert(&dto.Report{PCName: "LAB-07"}, "10.0.0.5", 1234)
	assert.Equal(t, "LAB-07", rec.ClientID)

	rec = registry.Upsert(&dto.Report{}, "10.0.0.5", 1235)
	assert.Equal(t, "10.0.0.5", rec.ClientID)
	assert.Equal(t, "10.0.0.5", rec.PCName)

	_, ok := registry.Get("LAB-07")
	assert.True(t, ok)
	assert.Equal(t, 2, registry.Len())
}

func TestSnapshotMarksStaleClientsOffline(t *testing.T) {
	registry, clock := newTestRegistry(t)
	registry.Upsert(&dto.Report{ClientID: "a", Status: "maintenance"}, "10.0.0.1", 1)

	view := registry.Snapshot(30)
	require.Len(t, view.Clients, 1)
	assert.Equal(t, "maintenance", view.Clients[0].Status)
	assert.Equal(t, 30, view.OfflineAfterSeconds)

	clock.Advance(30 * time.Second)
	assert.Equal(t, "maintenance", registry.Snapshot(30).Clients[0].Status, "threshold is inclusive")

	clock.Advance(1500 * time.Millisecond)
	view = registry.Snapshot(30)
	assert.Equal(t, domains.StatusOffline, view.Clients[0].Status)
	assert.Equal(t, 31.5, view.Clients[0].SecondsSinceLastSeen)

	clock.Advance(time.Minute)
	assert.Equal(t, domains.StatusOffline, registry.Snapshot(30).Clients[0].Status)

	rec, _ := registry.Get("a")
	assert.Equal(t, "maintenance", rec.Status, "snapshot must not mutate stored state")

	registry.Upsert(&dto.Report{ClientID: "a"}, "10.0.0.1", 1)
	view = registry.Snapshot(30)
	assert.Equal(t, domains.StatusOnline, view.Clients[0].Status)
	assert.Equal(t, 0.0, view.Clients[0].SecondsSinceLastSeen)
}

func TestViewUsesConfiguredThreshold(t *testing.T) {
	clock := clocktest.NewManualClock(time.Unix(1000, 0))
	registry := NewRegistryService(5, clock.Now)
	registry.Upsert(&dto.Report{ClientID: "a"}, "10.0.0.1", 1)

	clock.Advance(6 * time.Second)
	view := registry.View()
	assert.Equal(t, 5, view.OfflineAfterSeconds)
	assert.Equal(t, domains.StatusOffline, view.Clients[0].Status)
	assert.Equal(t, 1, len(view.Clients))
	assert.Equal(t, 0, view.OnlineCount())
}

func TestSnapshotGeneratedAtFollowsClock(t *testing.T) {
	registry, clock := newTestRegistry(t)
	registry.Upsert(&dto.Report{ClientID: "a"}, "10.0.0.1", 1)

	clock.Advance(90 * time.Second)
	view := registry.Snapshot(30)
	assert.Equal(t, "2026-01-02T03:05:35Z", view.GeneratedAt)
	assert.Equal(t, 90.0, view.Clients[0].SecondsSinceLastSeen)
}

func TestSnapshotSortedCaseInsensitive(t *testing.T) {
	registry, _ := newTestRegistry(t)
	for _, name := range []string{"delta", "Bravo", "alpha", "Charlie"} {
		registry.Upsert(&dto.Report{PCName: name}, "10.0.0.9", 1)
	}

	view := registry.Snapshot(30)
	names := make([]string, 0, len(view.Clients))
	for _, c := range view.Clients {
		names = append(names, c.PCName)
	}
	assert.Equal(t, []string{"alpha", "Bravo", "Charlie", "delta"}, names)
}

func TestLastSeenNeverMovesBackwards(t *testing.T) {
	start := time.Unix(5000, 0)
	times := []time.Time{start, start.Add(-10 * time.Second)}
	var mu sync.Mutex
	i := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		if i < len(times) {
			ts := times[i]
			i++
			return ts
		}
		return start
	}
	registry := NewRegistryService(30, clock)

	registry.Upsert(&dto.Report{ClientID: "a"}, "10.0.0.1", 1)
	rec := registry.Upsert(&dto.Report{ClientID: "a"}, "10.0.0.1", 1)
	assert.Equal(t, start, rec.LastSeen)
}

func TestConcurrentUpsertsKeepEveryClient(t *testing.T) {
	registry := NewRegistryService(30, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				registry.Upsert(&dto.Report{
					ClientID:        fmt.Sprintf("client-%d", i),
					GPUMemoryUsedMB: intPtr(int64(j)),
				}, "10.0.0.1", j)
				_ = registry.View()
			}
		}(i)
	}
	wg.Wait()

	view := registry.View()
	require.Len(t, view.Clients, 50)
	for _, c := range view.Clients {
		assert.Equal(t, int64(19), *c.GPUMemoryUsedMB)
		assert.Equal(t, 19, c.Port)
	}
}

func TestSnapshotIsDetachedFromRegistry(t *testing.T) {
	registry, _ := newTestRegistry(t)
	registry.Upsert(&dto.Report{ClientID: "a", CurrentUser: strPtr("alice")}, "10.0.0.1", 1)

	view := registry.View()
	registry.Upsert(&dto.Report{ClientID: "a", CurrentUser: strPtr("bob")}, "10.0.0.1", 1)

	assert.Equal(t, "alice", *view.Clients[0].CurrentUser)
}
