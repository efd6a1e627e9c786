package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/self-ai-0084/selfailab-public/app/domains"
	"github.com/self-ai-0084/selfailab-public/app/dto"
)

// Upserter is the registry side of the collector
type Upserter interface {
	Upsert(report *dto.Report, ipAddress string, port int) domains.SnapshotRecord
}

// ListenerConfig holds TCP collector settings
type ListenerConfig struct {
	Addr         string
	MaxLineBytes int
	// IdleTimeout closes connections that send nothing for this long. Zero disables it.
	IdleTimeout time.Duration
}

// Stats is a point-in-time copy of the collector counters
type Stats struct {
	ActiveConnections int64
	TotalConnections  int64
	MessagesAccepted  int64
	MessagesRejected  int64
	BytesReceived     int64
}

// Listener accepts heartbeat connections and feeds every parsed line to the registry.
// A misbehaving connection only ever affects itself.
type Listener struct {
	cfg      ListenerConfig
	registry Upserter
	logger   zerolog.Logger

	ln      net.Listener
	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	closing bool
	wg      sync.WaitGroup

	active   atomic.Int64
	total    atomic.Int64
	accepted atomic.Int64
	rejected atomic.Int64
	received atomic.Int64
}

// NewListener creates a collector; call Listen then Serve
func NewListener(cfg ListenerConfig, registry Upserter, logger zerolog.Logger) *Listener {
	return &Listener{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
		conns:    make(map[net.Conn]struct{}),
	}
}

// Listen binds the TCP address
func (l *Listener) Listen() error {
	ln, err := net.Listen("tcp", l.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.cfg.Addr, err)
	}
	l.ln = ln
	l.logger.Info().Str("addr", ln.Addr().String()).Msg("TCP collector listening")
	return nil
}

// Addr returns the bound address, or nil before Listen
func (l *Listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Serve accepts connections until ctx is cancelled or Close is called, then waits
// for every connection handler to return.
func (l *Listener) Serve(ctx context.Context) error {
	if l.ln == nil {
		if err := l.Listen(); err != nil {
			return err
		}
	}

	stop := context.AfterFunc(ctx, l.Close)
	defer stop()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.isClosing() || errors.Is(err, net.ErrClosed) {
				l.wg.Wait()
				return nil
			}
			l.logger.Warn().Err(err).Msg("error accepting connection")
			time.Sleep(50 * time.Millisecond)
			continue
		}

		if !l.track(conn) {
			_ = conn.Close()
			continue
		}
		go l.handleConn(conn)
	}
}

// Close stops accepting and closes every open connection
func (l *Listener) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closing {
		return
	}
	l.closing = true
	if l.ln != nil {
		_ = l.ln.Close()
	}
	for conn := range l.conns {
		_ = conn.Close()
	}
}

// Stats returns the current counters
func (l *Listener) Stats() Stats {
	return Stats{
		ActiveConnections: l.active.Load(),
		TotalConnections:  l.total.Load(),
		MessagesAccepted:  l.accepted.Load(),
		MessagesRejected:  l.rejected.Load(),
		BytesReceived:     l.received.Load(),
	}
}

func (l *Listener) isClosing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closing
}

func (l *Listener) track(conn net.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closing {
		return false
	}
	l.conns[conn] = struct{}{}
	l.wg.Add(1)
	l.active.Add(1)
	l.total.Add(1)
	return true
}

func (l *Listener) untrack(conn net.Conn) {
	l.mu.Lock()
	delete(l.conns, conn)
	l.mu.Unlock()
	l.active.Add(-1)
	l.wg.Done()
}

func (l *Listener) handleConn(conn net.Conn) {
	defer l.untrack(conn)
	defer conn.Close()

	ip, port := remoteEndpoint(conn.RemoteAddr())
	log := l.logger.With().
		Str("conn_id", uuid.NewString()).
		Str("remote_ip", ip).
		Int("remote_port", port).
		Logger()

	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetKeepAlive(true)
		_ = tcp.SetKeepAlivePeriod(2 * time.Minute)
	}

	log.Debug().Msg("connection opened")

	reader := newLineReader(conn, l.cfg.MaxLineBytes, l.cfg.IdleTimeout)
	defer func() {
		l.received.Add(reader.BytesRead())
	}()

	for {
		line, err := reader.ReadLine()
		if err != nil {
			l.logReadError(log, err)
			return
		}

		report, degraded, err := DecodeReport(line)
		if err != nil {
			l.rejected.Add(1)
			log.Warn().Err(err).Str("line", preview(line)).Msg("ignored invalid message")
			continue
		}
		if len(degraded) > 0 {
			log.Debug().Strs("fields", degraded).Msg("unusable fields reported as null")
		}

		rec := l.registry.Upsert(report, ip, port)
		l.accepted.Add(1)
		log.Debug().Str("client_id", rec.ClientID).Str("status", rec.Status).Msg("snapshot accepted")
	}
}

func (l *Listener) logReadError(log zerolog.Logger, err error) {
	var tooLong *LineTooLongError
	var netErr net.Error

	switch {
	case errors.Is(err, io.EOF):
		log.Debug().Msg("connection closed by peer")
	case errors.As(err, &tooLong):
		l.rejected.Add(1)
		log.Warn().Int("length", tooLong.Length).Str("preview", tooLong.Preview).
			Msg("line exceeds limit, closing connection")
	case errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()):
		log.Info().Msg("connection idle, closing")
	case errors.Is(err, net.ErrClosed) && l.isClosing():
		log.Debug().Msg("connection closed on shutdown")
	default:
		log.Warn().Err(err).Msg("connection read failed")
	}
}

func remoteEndpoint(addr net.Addr) (string, int) {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String(), tcp.Port
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String(), 0
	}
	return host, 0
}

func preview(line []byte) string {
	if len(line) > previewSize {
		return string(line[:previewSize]) + "..."
	}
	return string(line)
}
