package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/self-ai-0084/selfailab-public/app/dto"
)

// ReportCollector builds the next report
type ReportCollector interface {
	Collect(ctx context.Context) *dto.Report
}

// ReportSender delivers a report to the server
type ReportSender interface {
	Send(ctx context.Context, report *dto.Report) error
}

// HeartbeatService sends a fresh snapshot on every tick
type HeartbeatService struct {
	collector ReportCollector
	sender    ReportSender
	interval  time.Duration
	logger    zerolog.Logger
}

// NewHeartbeatService creates a new heartbeat service
func NewHeartbeatService(collector ReportCollector, sender ReportSender, interval time.Duration, logger zerolog.Logger) *HeartbeatService {
	return &HeartbeatService{
		collector: collector,
		sender:    sender,
		interval:  interval,
		logger:    logger,
	}
}

// Start runs the heartbeat loop until ctx is cancelled
func (h *HeartbeatService) Start(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	// Send initial heartbeat
	h.sendHeartbeat(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sendHeartbeat(ctx)
		}
	}
}

// sendHeartbeat is best effort; a failed send waits for the next tick
func (h *HeartbeatService) sendHeartbeat(ctx context.Context) {
	report := h.collector.Collect(ctx)
	if err := h.sender.Send(ctx, report); err != nil {
		if ctx.Err() != nil {
			return
		}
		h.logger.Warn().Err(err).Str("timestamp", report.Timestamp).Msg("heartbeat failed")
		return
	}
	h.logger.Info().Str("pc_name", report.PCName).Str("timestamp", report.Timestamp).Msg("heartbeat sent")
}
