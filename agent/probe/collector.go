package probe

import (
	"context"
	"time"

	"github.com/self-ai-0084/selfailab-public/app/domains"
	"github.com/self-ai-0084/selfailab-public/app/dto"
)

// Collector assembles a heartbeat report from the host and GPU probes
type Collector struct {
	clientID string
	system   *SystemProbe
	gpu      *GPUProbe
	now      func() time.Time
}

// NewCollector creates a collector reporting as clientID
func NewCollector(clientID string, system *SystemProbe, gpu *GPUProbe) *Collector {
	return &Collector{
		clientID: clientID,
		system:   system,
		gpu:      gpu,
		now:      time.Now,
	}
}

// Collect builds one report
func (c *Collector) Collect(ctx context.Context) *dto.Report {
	session := c.system.SessionType()
	gpu := c.gpu.Collect(ctx)

	return &dto.Report{
		ClientID:        c.clientID,
		PCName:          c.system.Hostname(),
		Status:          domains.StatusOnline,
		CurrentUser:     c.system.CurrentUser(),
		SessionType:     &session,
		GPUName:         gpu.Name,
		GPUUsagePercent: gpu.UsagePercent,
		GPUMemoryUsedMB: gpu.MemoryUsedMB,
		Timestamp:       c.now().UTC().Format(time.RFC3339Nano),
	}
}
