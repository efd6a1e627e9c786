package clients

import (
	"context"
	"fmt"
	"net"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/self-ai-0084/selfailab-public/app/dto"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TCPClient delivers reports to the monitor server, one connection per report
type TCPClient struct {
	addr    string
	timeout time.Duration
}

// NewTCPClient creates a new TCP client
func NewTCPClient(addr string, timeout time.Duration) *TCPClient {
	return &TCPClient{addr: addr, timeout: timeout}
}

// Send writes the report as one JSON line. Delivery is fire-and-forget: the
// server sends nothing back.
func (c *TCPClient) Send(ctx context.Context, report *dto.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	payload = append(payload, '\n')

	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.addr, err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}
	return nil
}
