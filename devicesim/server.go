package devicesim

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-trio/logger"
	"github.com/arloliu/go-trio/telnet"
)

// BusyMessage is sent to a client connecting while another session is active.
const BusyMessage = "%SESSION BUSY"

// HandlerFunc produces the output lines for one received command line.
type HandlerFunc func(line string) []string

// Server is a simulated controller listening on TCP.
type Server struct {
	cfg    *config
	logger logger.Logger

	ln     net.Listener
	active atomic.Bool
	wg     sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}

	// programs maps a program name to its lines. Values are replaced, never
	// modified in place, so readers may keep the slice they loaded.
	programs  *xsync.MapOf[string, []string]
	committed *xsync.MapOf[string, []string]

	axisMu    sync.Mutex
	axisTypes map[int]int

	handlerMu sync.RWMutex
	handlers  map[string]HandlerFunc

	recMu       sync.Mutex
	commands    []string
	negotiation []telnet.Directive

	closed atomic.Bool
}

// NewServer creates a simulator. It does not listen until Start.
func NewServer(opts ...Option) *Server {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Server{
		cfg:       cfg,
		logger:    cfg.logger.With("component", "devicesim"),
		conns:     make(map[net.Conn]struct{}),
		programs:  xsync.NewMapOf[string, []string](),
		committed: xsync.NewMapOf[string, []string](),
		axisTypes: make(map[int]int, len(cfg.axisTypes)),
		handlers:  make(map[string]HandlerFunc),
	}
	for base, atype := range cfg.axisTypes {
		s.axisTypes[base] = atype
	}

	return s
}

// Start listens on addr (for example "127.0.0.1:0") and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("devicesim: listen %s: %w", addr, err)
	}

	s.ln = ln
	s.wg.Add(1)
	go s.serve()

	s.logger.Info("simulator listening", "addr", ln.Addr().String())

	return nil
}

// Addr returns the listening address. It is nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}

	return s.ln.Addr()
}

// Close stops the listener, drops every connection and waits for the
// handlers to return.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}

	s.connMu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()

	return err
}

// HandleFunc overrides the reply to every line whose trimmed, upper-cased
// text equals match.
func (s *Server) HandleFunc(match string, fn HandlerFunc) {
	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()

	s.handlers[strings.ToUpper(strings.TrimSpace(match))] = fn
}

// SetProgram replaces the lines of a program.
func (s *Server) SetProgram(name string, lines []string) {
	s.programs.Store(strings.ToUpper(name), slices.Clone(lines))
}

// Program returns a copy of the current lines of a program.
func (s *Server) Program(name string) ([]string, bool) {
	lines, ok := s.programs.Load(strings.ToUpper(name))
	if !ok {
		return nil, false
	}

	return slices.Clone(lines), true
}

// Committed returns the program lines as of the last "!<prog>,M".
func (s *Server) Committed(name string) ([]string, bool) {
	lines, ok := s.committed.Load(strings.ToUpper(name))
	if !ok {
		return nil, false
	}

	return slices.Clone(lines), true
}

// AxisType returns the ATYPE of an axis.
func (s *Server) AxisType(base int) int {
	s.axisMu.Lock()
	defer s.axisMu.Unlock()

	return s.axisTypes[base]
}

// Commands returns every command line received so far, in order.
func (s *Server) Commands() []string {
	s.recMu.Lock()
	defer s.recMu.Unlock()

	return slices.Clone(s.commands)
}

// Negotiation returns the telnet directives received from clients.
func (s *Server) Negotiation() []telnet.Directive {
	s.recMu.Lock()
	defer s.recMu.Unlock()

	return slices.Clone(s.negotiation)
}

func (s *Server) serve() {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if !s.closed.Load() && !errors.Is(err, net.ErrClosed) {
				s.logger.Error("accept failed", "error", err)
			}

			return
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) track(c net.Conn, add bool) {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	s.track(conn, true)
	defer s.track(conn, false)

	if !s.active.CompareAndSwap(false, true) {
		s.logger.Warn("rejecting second session", "remote", conn.RemoteAddr().String())
		_, _ = conn.Write([]byte(BusyMessage + "\r\n"))

		return
	}
	defer s.active.Store(false)

	s.logger.Info("session opened", "remote", conn.RemoteAddr().String())

	sess := &session{srv: s, conn: conn, base: 0}
	if err := sess.greet(); err != nil {
		return
	}
	sess.run(bufio.NewReader(conn))

	s.logger.Info("session closed", "remote", conn.RemoteAddr().String())
}

func (s *Server) record(line string) {
	s.recMu.Lock()
	defer s.recMu.Unlock()

	s.commands = append(s.commands, line)
}

func (s *Server) recordDirective(d telnet.Directive) {
	s.recMu.Lock()
	defer s.recMu.Unlock()

	s.negotiation = append(s.negotiation, d)
}

func (s *Server) handler(line string) (HandlerFunc, bool) {
	s.handlerMu.RLock()
	defer s.handlerMu.RUnlock()

	fn, ok := s.handlers[strings.ToUpper(strings.TrimSpace(line))]

	return fn, ok
}

// session is the state of one client connection.
type session struct {
	srv  *Server
	conn net.Conn

	writeMu sync.Mutex

	base     int
	selected string
}

func (ss *session) write(p []byte) error {
	ss.writeMu.Lock()
	defer ss.writeMu.Unlock()

	_, err := ss.conn.Write(p)

	return err
}

func (ss *session) greet() error {
	var buf []byte
	for _, d := range ss.srv.cfg.negotiation {
		buf = append(buf, d.Bytes()...)
	}
	if ss.srv.cfg.banner != "" {
		buf = append(buf, "\r\n"+ss.srv.cfg.banner+"\r\n"...)
	}
	if len(buf) > 0 {
		buf = append(buf, ss.srv.cfg.prompt...)
	}
	if len(buf) == 0 {
		return nil
	}

	return ss.write(buf)
}

// run reads client input until the connection ends. Telnet directives are
// recorded and removed, LF and NUL are ignored, CR terminates a line.
func (ss *session) run(r *bufio.Reader) {
	var line []byte

	for {
		b, err := r.ReadByte()
		if err != nil {
			return
		}

		switch b {
		case telnet.IAC:
			next, err := r.ReadByte()
			if err != nil {
				return
			}
			if next == telnet.IAC {
				line = append(line, b)
				continue
			}
			opt, err := r.ReadByte()
			if err != nil {
				return
			}
			ss.srv.recordDirective(telnet.Directive{Command: next, Option: opt})

		case '\n', 0:

		case '\r':
			if err := ss.respond(string(line)); err != nil {
				return
			}
			line = line[:0]

		default:
			line = append(line, b)
		}
	}
}

func (ss *session) respond(line string) error {
	ss.srv.record(line)

	var out strings.Builder
	if ss.srv.cfg.echo {
		out.WriteString(line + "\r\n")
		if err := ss.write([]byte(out.String())); err != nil {
			return err
		}
		out.Reset()
	}

	if d := ss.srv.cfg.responseDelay; d > 0 {
		time.Sleep(d)
	}

	var lines []string
	if fn, ok := ss.srv.handler(line); ok {
		lines = fn(line)
	} else {
		lines = ss.eval(line)
	}

	for _, l := range lines {
		out.WriteString(l + "\r\n")
	}
	out.WriteString(ss.srv.cfg.prompt)

	return ss.write([]byte(out.String()))
}

// commitLater reports a flash commit after the configured delay, the way the
// controller prints it after the prompt of the commit command.
func (ss *session) commitLater(name string) {
	ss.srv.wg.Add(1)

	go func() {
		defer ss.srv.wg.Done()

		time.Sleep(ss.srv.cfg.commitDelay)
		_ = ss.write([]byte("\r\n" + name + " stored in flash\r\n" + ss.srv.cfg.prompt))
	}()
}
