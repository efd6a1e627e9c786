package agent

import (
	"context"

	"github.com/self-ai-0084/selfailab-public/agent/clients"
	"github.com/self-ai-0084/selfailab-public/agent/probe"
	"github.com/self-ai-0084/selfailab-public/agent/services"
	"github.com/self-ai-0084/selfailab-public/app/logger"
)

// Agent is the reporting side of the monitor
type Agent struct {
	Config    *Config
	Heartbeat *services.HeartbeatService
}

// Bootstrap wires the probes, the TCP client and the heartbeat loop
func Bootstrap(cfg *Config) *Agent {
	collector := probe.NewCollector(cfg.ClientID, probe.NewSystemProbe(), probe.NewGPUProbe(cfg.Timeout()))
	sender := clients.NewTCPClient(cfg.ServerAddr(), cfg.Timeout())

	return &Agent{
		Config:    cfg,
		Heartbeat: services.NewHeartbeatService(collector, sender, cfg.Interval(), logger.WithComponent("heartbeat")),
	}
}

// Run reports until ctx is cancelled
func (a *Agent) Run(ctx context.Context) {
	a.Heartbeat.Start(ctx)
}
