package shell

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-trio/internal/pool"
	"github.com/arloliu/go-trio/logger"
	"github.com/arloliu/go-trio/telnet"
)

// debugPreviewLen bounds the raw bytes included in debug traces.
const debugPreviewLen = 200

// Reply is the full result of one command exchange.
type Reply struct {
	// Command is the command as given by the caller, without the trailing CR.
	Command string
	// Raw holds the bytes collected after the command, telnet framing included.
	Raw []byte
	// Text is Raw with telnet framing removed, decoded as UTF-8.
	Text string
	// Response is Text with echo, prompt and blank lines removed.
	Response string
}

// Session is a command-line session with one controller.
//
// The controller shell has no request IDs and no end-of-response marker, so
// a session runs strictly one exchange at a time: a command's reply is fully
// collected, or its window has elapsed, before the next command is sent.
// Exchange, ConnectAndPrime and Drain serialise on an internal mutex. Close
// may be called from any goroutine and aborts a waiting exchange.
type Session struct {
	cfg    *ConnectionConfig
	logger logger.Logger
	conn   net.Conn

	mu      sync.Mutex // serialises socket reads and writes
	readBuf []byte

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error

	metrics SessionMetrics
}

// Dial connects to the controller described by cfg and returns a session.
//
// The dial is bounded by the configured connect timeout and by ctx. The
// returned session has not been primed; call ConnectAndPrime before the
// first Exchange.
func Dial(ctx context.Context, cfg *ConnectionConfig) (*Session, error) {
	if cfg == nil {
		return nil, ErrConnConfigNil
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.connectTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", cfg.Addr())
	if err != nil {
		return nil, fmt.Errorf("shell: connect %s: %w", cfg.Addr(), err)
	}

	return NewSession(conn, cfg)
}

// NewSession wraps an established connection. The session owns conn and
// closes it on Close.
func NewSession(conn net.Conn, cfg *ConnectionConfig) (*Session, error) {
	if cfg == nil {
		return nil, ErrConnConfigNil
	}
	if conn == nil {
		return nil, errors.New("shell: connection is nil")
	}

	return &Session{
		cfg:     cfg,
		logger:  cfg.logger.With("remote", addrString(conn.RemoteAddr())),
		conn:    conn,
		readBuf: make([]byte, cfg.readChunkSize),
		closed:  make(chan struct{}),
	}, nil
}

// Config returns the session configuration.
func (s *Session) Config() *ConnectionConfig { return s.cfg }

// Metrics returns the session metrics.
func (s *Session) Metrics() *SessionMetrics { return &s.metrics }

// RemoteAddr returns the controller address.
func (s *Session) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

// Close closes the connection. A collection or settle wait in progress
// returns ErrSessionClosed. Close is idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.closeErr = s.conn.Close()
	})

	return s.closeErr
}

func (s *Session) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// ConnectAndPrime absorbs what the controller sends on its own right after
// the connection is established and returns it as a banner.
//
// The controller emits an optional banner together with unsolicited telnet
// negotiation requests. ConnectAndPrime waits the connect wait, collects the
// initial bytes and answers the negotiation. When anything arrived it then
// waits briefly and discards whatever followed the initial data. The returned
// banner is the initial data with telnet framing removed and surrounding
// whitespace trimmed; it is empty when the controller said nothing.
func (s *Session) ConnectAndPrime() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed() {
		return "", ErrSessionClosed
	}

	if err := s.sleep(s.cfg.connectWait); err != nil {
		return "", err
	}

	raw, err := s.collect(s.cfg.bannerWindow)
	if err != nil {
		return "", err
	}

	s.logger.Debug("shell: initial data", "len", len(raw), "hex", hexPreview(raw))

	if len(raw) == 0 {
		return "", nil
	}

	reply, err := telnet.Respond(writerFunc(s.write), raw, s.cfg.policy)
	if err != nil {
		return "", fmt.Errorf("shell: send negotiation reply: %w", err)
	}
	if reply != nil {
		s.metrics.incNegotiationReplyCount()
		s.logger.Debug("shell: negotiation replied", "directives", describe(reply))
	}

	// Late banner output must not reach the first exchange.
	if err := s.sleep(s.cfg.negotiationSettle); err != nil {
		return "", err
	}
	late, err := s.collect(s.cfg.negotiationSettle)
	if err != nil {
		return "", err
	}
	if len(late) > 0 {
		s.logger.Debug("shell: discarded late initial data", "len", len(late), "hex", hexPreview(late))
	}

	return strings.TrimSpace(DecodeText(telnet.Strip(raw))), nil
}

// Exchange sends one command and returns the controller's response to it.
//
// An empty response is valid and means the controller printed nothing
// visible. Transport errors are returned as-is (wrapped); Exchange never
// retries.
func (s *Session) Exchange(cmd string) (string, error) {
	reply, err := s.ExchangeRaw(cmd)
	if err != nil {
		return "", err
	}

	return reply.Response, nil
}

// ExchangeRaw is like Exchange but also returns the raw and decoded bytes
// collected for the command.
//
// The exchange runs these steps in order:
//
//  1. Discard stale bytes for the flush window.
//  2. Send the command followed by a carriage return.
//  3. Wait the settle delay.
//  4. Collect the reply until the line is idle for the collect window.
//  5. Remove telnet framing and decode the bytes as text.
//  6. Filter out the echo, the prompt and blank lines.
func (s *Session) ExchangeRaw(cmd string) (*Reply, error) {
	if strings.ContainsAny(cmd, "\r\n") {
		return nil, ErrInvalidCommand
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reply, err := s.exchange(cmd)
	if err != nil {
		s.metrics.incExchangeErrCount()
		return nil, err
	}

	s.metrics.incExchangeCount()
	if reply.Response == "" {
		s.metrics.incEmptyResponseCount()
	}

	return reply, nil
}

func (s *Session) exchange(cmd string) (*Reply, error) {
	if s.isClosed() {
		return nil, ErrSessionClosed
	}

	stale, err := s.collect(s.cfg.flushWindow)
	if err != nil {
		return nil, err
	}
	if len(stale) > 0 {
		s.logger.Debug("shell: flushed stale data", "len", len(stale), "hex", hexPreview(stale))
	}

	if _, err := s.write([]byte(cmd + "\r")); err != nil {
		return nil, err
	}

	if err := s.sleep(s.cfg.settleDelay); err != nil {
		return nil, err
	}

	raw, err := s.collect(s.cfg.collectWindow)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("shell: exchange", "cmd", cmd, "len", len(raw), "hex", hexPreview(raw))

	text := DecodeText(telnet.Strip(raw))

	return &Reply{
		Command:  cmd,
		Raw:      raw,
		Text:     text,
		Response: FilterResponse(text, cmd, s.cfg.echoPrefixLen, s.cfg.prompt),
	}, nil
}

// Drain collects whatever the controller sends until the line is idle for
// window, removes telnet framing and returns the decoded text. It is meant
// for output that arrives after a command's response, such as the messages
// printed while a program is committed to flash.
func (s *Session) Drain(window time.Duration) (string, error) {
	if window <= 0 {
		return "", fmt.Errorf("shell: drain window %v must be positive", window)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed() {
		return "", ErrSessionClosed
	}

	raw, err := s.collect(window)
	if err != nil {
		return "", err
	}

	return DecodeText(telnet.Strip(raw)), nil
}

// collect reads from the connection until the peer closes it, a read stays
// silent for window, or window has elapsed since the call. Each read carries
// its own window deadline, so collect usually returns at the first silence.
//
// Silence and peer close are not errors; collect returns what arrived.
func (s *Session) collect(window time.Duration) ([]byte, error) {
	var data []byte
	deadline := time.Now().Add(window)

	for time.Now().Before(deadline) {
		if err := s.conn.SetReadDeadline(time.Now().Add(window)); err != nil {
			return data, s.transportErr("set read deadline", err)
		}

		n, err := s.conn.Read(s.readBuf)
		if n > 0 {
			data = append(data, s.readBuf[:n]...)
			s.metrics.addBytesRecv(n)
		}

		switch {
		case err == nil && n == 0:
			return data, nil
		case err == nil:
			continue
		case errors.Is(err, io.EOF):
			s.logger.Debug("shell: connection closed by peer")
			return data, nil
		case isTimeout(err):
			return data, nil
		default:
			return data, s.transportErr("read", err)
		}
	}

	return data, nil
}

func (s *Session) write(p []byte) (int, error) {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.sendTimeout)); err != nil {
		return 0, s.transportErr("set write deadline", err)
	}

	n, err := s.conn.Write(p)
	s.metrics.addBytesSent(n)
	if err != nil {
		return n, s.transportErr("write", err)
	}

	return n, nil
}

// sleep blocks for d or until the session is closed.
func (s *Session) sleep(d time.Duration) error {
	if !pool.Wait(d, s.closed) {
		return ErrSessionClosed
	}

	return nil
}

func (s *Session) transportErr(op string, err error) error {
	if s.isClosed() {
		return fmt.Errorf("%w: %s: %w", ErrSessionClosed, op, err)
	}

	return fmt.Errorf("shell: %s: %w", op, err)
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

func hexPreview(b []byte) string {
	if len(b) > debugPreviewLen {
		b = b[:debugPreviewLen]
	}

	return hex.EncodeToString(b)
}

func describe(reply []byte) []string {
	dirs := telnet.Parse(reply)
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, d.String())
	}

	return out
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}

	return addr.String()
}
