package shell

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/arloliu/go-trio/logger"
	"github.com/arloliu/go-trio/telnet"
)

// DefaultPort is the controller's command-line port.
const DefaultPort = 23

// Default timing values. They follow the controller's observed behaviour;
// none of them is a protocol guarantee.
const (
	DefaultConnectTimeout    = 5 * time.Second        // TCP dial timeout
	DefaultSendTimeout       = 3 * time.Second        // write deadline per command
	DefaultConnectWait       = 2 * time.Second        // wait before reading the banner
	DefaultBannerWindow      = 2 * time.Second        // idle window for the banner
	DefaultNegotiationSettle = 300 * time.Millisecond // wait and flush after negotiation replies
	DefaultFlushWindow       = 100 * time.Millisecond // stale-byte flush before a command
	DefaultSettleDelay       = 500 * time.Millisecond // wait after sending a command
	DefaultCollectWindow     = 1500 * time.Millisecond
	DefaultEchoPrefixLen     = 20
	DefaultPrompt            = ">>"
	DefaultReadChunkSize     = 4096
)

// MaxWindow is the upper bound accepted for every wait and collection window.
const MaxWindow = 60 * time.Second

// ConnectionConfig holds the configuration of a controller shell session.
type ConnectionConfig struct {
	host string
	port int

	connectTimeout time.Duration
	sendTimeout    time.Duration

	// Connect-and-prime timing.
	connectWait       time.Duration
	bannerWindow      time.Duration
	negotiationSettle time.Duration

	// Per-exchange timing.
	flushWindow   time.Duration
	settleDelay   time.Duration
	collectWindow time.Duration

	// echoPrefixLen is how many leading characters of a command are used to
	// recognise the controller's echo of it.
	echoPrefixLen int
	prompt        string
	readChunkSize int

	policy telnet.Policy
	logger logger.Logger
}

// NewConnectionConfig creates a new session configuration.
//
// host is the controller address and port its command-line port, usually
// DefaultPort. opts are functional options applied in order; see With* functions.
func NewConnectionConfig(host string, port int, opts ...ConnOption) (*ConnectionConfig, error) {
	cfg := &ConnectionConfig{
		connectTimeout:    DefaultConnectTimeout,
		sendTimeout:       DefaultSendTimeout,
		connectWait:       DefaultConnectWait,
		bannerWindow:      DefaultBannerWindow,
		negotiationSettle: DefaultNegotiationSettle,
		flushWindow:       DefaultFlushWindow,
		settleDelay:       DefaultSettleDelay,
		collectWindow:     DefaultCollectWindow,
		echoPrefixLen:     DefaultEchoPrefixLen,
		prompt:            DefaultPrompt,
		readChunkSize:     DefaultReadChunkSize,
		policy:            telnet.AcceptAll,
		logger:            logger.GetLogger(),
	}

	if err := cfg.setHost(host); err != nil {
		return nil, err
	}
	if err := cfg.setPort(port); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (cfg *ConnectionConfig) setHost(host string) error {
	if ip := net.ParseIP(host); ip != nil {
		cfg.host = host
		return nil
	}

	host = strings.TrimSuffix(strings.TrimPrefix(host, "."), ".")
	if host == "" {
		return errors.New("shell: host must not be empty")
	}
	if _, err := net.LookupHost(host); err == nil {
		cfg.host = host
		return nil
	}

	return fmt.Errorf("shell: invalid host %q", host)
}

func (cfg *ConnectionConfig) setPort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("shell: port %d out of range [1, 65535]", port)
	}
	cfg.port = port

	return nil
}

// --- Getters ---

// Host returns the configured host address.
func (cfg *ConnectionConfig) Host() string { return cfg.host }

// Port returns the configured TCP port.
func (cfg *ConnectionConfig) Port() int { return cfg.port }

// Addr returns "host:port".
func (cfg *ConnectionConfig) Addr() string {
	return net.JoinHostPort(cfg.host, strconv.Itoa(cfg.port))
}

func (cfg *ConnectionConfig) ConnectTimeout() time.Duration    { return cfg.connectTimeout }
func (cfg *ConnectionConfig) SendTimeout() time.Duration       { return cfg.sendTimeout }
func (cfg *ConnectionConfig) ConnectWait() time.Duration       { return cfg.connectWait }
func (cfg *ConnectionConfig) BannerWindow() time.Duration      { return cfg.bannerWindow }
func (cfg *ConnectionConfig) NegotiationSettle() time.Duration { return cfg.negotiationSettle }
func (cfg *ConnectionConfig) FlushWindow() time.Duration       { return cfg.flushWindow }
func (cfg *ConnectionConfig) SettleDelay() time.Duration       { return cfg.settleDelay }
func (cfg *ConnectionConfig) CollectWindow() time.Duration     { return cfg.collectWindow }

// EchoPrefixLen returns the number of command characters used for echo suppression.
func (cfg *ConnectionConfig) EchoPrefixLen() int { return cfg.echoPrefixLen }

// Prompt returns the prompt line removed from responses.
func (cfg *ConnectionConfig) Prompt() string { return cfg.prompt }

// Policy returns the telnet negotiation policy.
func (cfg *ConnectionConfig) Policy() telnet.Policy { return cfg.policy }

// GetLogger returns the configured logger.
func (cfg *ConnectionConfig) GetLogger() logger.Logger { return cfg.logger }

// --- ConnOption ---

// ConnOption is a functional option for configuring a ConnectionConfig.
type ConnOption interface {
	apply(*ConnectionConfig) error
}

type connOptFunc func(*ConnectionConfig) error

func (f connOptFunc) apply(cfg *ConnectionConfig) error { return f(cfg) }

func positiveWindow(name string, d time.Duration, dst *time.Duration) error {
	if d <= 0 || d > MaxWindow {
		return fmt.Errorf("shell: %s %v out of range (0, %v]", name, d, MaxWindow)
	}
	*dst = d

	return nil
}

func optionalWait(name string, d time.Duration, dst *time.Duration) error {
	if d < 0 || d > MaxWindow {
		return fmt.Errorf("shell: %s %v out of range [0, %v]", name, d, MaxWindow)
	}
	*dst = d

	return nil
}

// WithConnectTimeout sets the TCP dial timeout.
func WithConnectTimeout(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		return positiveWindow("connect timeout", d, &cfg.connectTimeout)
	})
}

// WithSendTimeout sets the write deadline applied to each command.
func WithSendTimeout(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		return positiveWindow("send timeout", d, &cfg.sendTimeout)
	})
}

// WithConnectWait sets how long ConnectAndPrime waits before reading the banner.
// Zero disables the wait.
func WithConnectWait(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		return optionalWait("connect wait", d, &cfg.connectWait)
	})
}

// WithBannerWindow sets the collection window for the connect banner.
func WithBannerWindow(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		return positiveWindow("banner window", d, &cfg.bannerWindow)
	})
}

// WithNegotiationSettle sets the wait, and the flush window, that follow the
// negotiation replies sent by ConnectAndPrime.
func WithNegotiationSettle(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		return positiveWindow("negotiation settle", d, &cfg.negotiationSettle)
	})
}

// WithFlushWindow sets the window used to discard stale bytes before a command.
func WithFlushWindow(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		return positiveWindow("flush window", d, &cfg.flushWindow)
	})
}

// WithSettleDelay sets the delay between sending a command and reading its reply.
// Zero disables the delay.
func WithSettleDelay(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		return optionalWait("settle delay", d, &cfg.settleDelay)
	})
}

// WithCollectWindow sets the idle window used to collect a command's reply.
func WithCollectWindow(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		return positiveWindow("collect window", d, &cfg.collectWindow)
	})
}

// WithEchoPrefixLen sets how many leading characters of the command identify
// its echo. The controller may truncate or reformat the echo, so matching is
// by prefix rather than equality.
func WithEchoPrefixLen(n int) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if n < 1 {
			return fmt.Errorf("shell: echo prefix length %d must be >= 1", n)
		}
		cfg.echoPrefixLen = n

		return nil
	})
}

// WithPrompt sets the prompt line removed from responses. An empty prompt
// keeps prompt lines in the response.
func WithPrompt(prompt string) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		cfg.prompt = strings.TrimSpace(prompt)

		return nil
	})
}

// WithReadChunkSize sets the buffer size of each socket read.
func WithReadChunkSize(size int) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if size < 16 {
			return fmt.Errorf("shell: read chunk size %d must be >= 16", size)
		}
		cfg.readChunkSize = size

		return nil
	})
}

// WithPolicy sets the telnet negotiation policy. The default accepts everything.
func WithPolicy(p telnet.Policy) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if p == nil {
			return errors.New("shell: policy must not be nil")
		}
		cfg.policy = p

		return nil
	})
}

// WithLogger sets the logger for the session.
func WithLogger(l logger.Logger) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if l == nil {
			return errors.New("shell: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
